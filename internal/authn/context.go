package authn

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNoUser = errors.New("no user in context")

type contextKey struct{}

// ContextUser returns the authenticated user of the request context.
func ContextUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(contextKey{}).(User)
	if !ok || user == nil {
		return nil, errors.WithStack(ErrNoUser)
	}

	return user, nil
}

// WithContextUser attaches user to ctx.
func WithContextUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}
