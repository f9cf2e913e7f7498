package acl

import "context"

// Permissive grants everything to every user. It is used when no ACL backend
// is configured.
type Permissive struct{}

func (Permissive) IsAdmin(ctx context.Context, username string) (bool, []string) {
	return username != "", nil
}

func (Permissive) IsModerator(ctx context.Context, username string) (bool, []string) {
	return false, nil
}

func (Permissive) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	return username != "" && client != ""
}

func (Permissive) IsClientRW(ctx context.Context, username, client, server string) bool {
	return username != "" && client != ""
}

func (Permissive) IsServerAllowed(ctx context.Context, username, server string) bool {
	return username != ""
}

func (Permissive) IsServerRW(ctx context.Context, username, server string) bool {
	return username != ""
}

var _ ACL = Permissive{}
