package setup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/bornholm/burpacl/internal/config"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

// NewOnAuthenticatedFromConfig returns a hook checking the ACL backends for
// changes and tagging the request logs with the user's role.
func NewOnAuthenticatedFromConfig(ctx context.Context, conf *config.Config) (authn.OnAuthenticatedFunc, error) {
	engine, err := NewEngineFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return func(r *http.Request, user authn.User) (*http.Request, error) {
		ctx := r.Context()

		engine.Refresh(ctx)

		role := "user"
		if isAdmin, _ := engine.IsAdmin(ctx, user.UserName()); isAdmin {
			role = "admin"
		} else if isModerator, _ := engine.IsModerator(ctx, user.UserName()); isModerator {
			role = "moderator"
		}

		ctx = log.WithAttrs(ctx, slog.String("role", role))

		return r.WithContext(ctx), nil
	}, nil
}
