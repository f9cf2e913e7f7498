package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

// CheckFunc decides whether username may proceed.
type CheckFunc func(ctx context.Context, a acl.ACL, username string) bool

func IsAdmin(ctx context.Context, a acl.ACL, username string) bool {
	isAdmin, _ := a.IsAdmin(ctx, username)
	return isAdmin
}

func IsAdminOrModerator(ctx context.Context, a acl.ACL, username string) bool {
	if IsAdmin(ctx, a, username) {
		return true
	}

	isModerator, _ := a.IsModerator(ctx, username)
	return isModerator
}

// Require lets the request through if check passes for the authenticated
// user.
func Require(a acl.ACL, check CheckFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, err := authn.ContextUser(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "could not retrieve user", log.Error(errors.WithStack(err)))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if !check(ctx, a, user.UserName()) {
				slog.WarnContext(ctx, "access denied", slog.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(a acl.ACL) func(http.Handler) http.Handler {
	return Require(a, IsAdmin)
}

func RequireAdminOrModerator(a acl.ACL) func(http.Handler) http.Handler {
	return Require(a, IsAdminOrModerator)
}
