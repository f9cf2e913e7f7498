package cache

import (
	"context"

	"github.com/bornholm/burpacl/pkg/acl/grant"
)

// Store holds resolved grants keyed by handler version and username.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, version uint64, username string) (*grant.Resolved, bool, error)
	Set(ctx context.Context, version uint64, username string, resolved *grant.Resolved) error
	Clear(ctx context.Context) error
}
