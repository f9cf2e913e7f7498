package acl

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotWritable    = errors.New("not writable")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUnknownBackend = errors.New("unknown backend")
)

// ACL answers the access predicates gating every API call. Predicates never
// fail: missing arguments and errors deny access.
type ACL interface {
	// IsAdmin returns true if username is an administrator, and the groups
	// through which this was inherited.
	IsAdmin(ctx context.Context, username string) (bool, []string)
	IsModerator(ctx context.Context, username string) (bool, []string)
	IsClientAllowed(ctx context.Context, username, client, server string) bool
	IsClientRW(ctx context.Context, username, client, server string) bool
	IsServerAllowed(ctx context.Context, username, server string) bool
	IsServerRW(ctx context.Context, username, server string) bool
}

// Backend is a source of grants.
type Backend interface {
	Name() string
	// Priority orders backends, highest first.
	Priority() int
	// Reload registers the backend's grants and groups again.
	Reload(ctx context.Context) error
	// Refresh reloads the backend if its source changed.
	Refresh(ctx context.Context) error
	ACL() ACL
}

// Mutable is implemented by backends able to persist changes made through
// the admin API. Every method returns ErrNotWritable when the backend
// source is read-only.
type Mutable interface {
	Writable() bool

	AddGrant(ctx context.Context, name string, raw string) error
	ModGrant(ctx context.Context, name string, raw string) error
	DelGrant(ctx context.Context, name string) error

	AddGroup(ctx context.Context, name string, raw string) error
	ModGroup(ctx context.Context, name string, raw string) error
	DelGroup(ctx context.Context, name string) error
	AddGroupMember(ctx context.Context, group string, member string) error
	DelGroupMember(ctx context.Context, group string, member string) error

	AddAdmin(ctx context.Context, member string) error
	DelAdmin(ctx context.Context, member string) error
	AddModerator(ctx context.Context, member string) error
	DelModerator(ctx context.Context, member string) error
	SetModeratorGrants(ctx context.Context, raw string) error
}

// Loaded is implemented by backends tracking their last load.
type Loaded interface {
	LoadedAt() time.Time
}
