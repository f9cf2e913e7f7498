package loader

import (
	"context"
)

const (
	KeyAdmin           = "admin"
	KeyModerator       = "+moderator"
	KeyModeratorGrants = "@moderator"
	KeyPriority        = "priority"
)

// Entry is one key of an ACL definition, for example:
//
//	admin = ["user1", "@admins"]
//	+admins = user2, user3
//	@admins = {"agents": ["srv-*"]}
//	user4 = ["client1", "client2"]
type Entry struct {
	Key   string
	Value string
}

// Source provides the entries of a backend.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
	// Changed returns true if the source was modified since the last call to
	// Entries.
	Changed(ctx context.Context) (bool, error)
}

// WritableSource persists changes made through the admin API.
type WritableSource interface {
	Source
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// MemberKey returns the entry key declaring the members of group.
func MemberKey(group string) string {
	return "+" + trimGroupPrefix(group)
}

// GrantKey returns the entry key declaring the grants of group.
func GrantKey(group string) string {
	return "@" + trimGroupPrefix(group)
}
