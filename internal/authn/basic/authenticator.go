package basic

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

type UserProvider interface {
	Authenticate(ctx context.Context, username, password string) (authn.User, error)
}

type UserProviderFunc func(ctx context.Context, username, password string) (authn.User, error)

func (fn UserProviderFunc) Authenticate(ctx context.Context, username, password string) (authn.User, error) {
	return fn(ctx, username, password)
}

func NewAuthenticator(userProvider UserProvider) authn.Authenticator {
	return authn.AuthenticateFunc(func(w http.ResponseWriter, r *http.Request) (authn.User, error) {
		ctx := r.Context()
		username, password, ok := r.BasicAuth()
		if ok {
			user, err := userProvider.Authenticate(ctx, username, password)
			if err != nil && !errors.Is(err, authn.ErrUnauthenticated) {
				slog.ErrorContext(ctx, "could not authenticate user", log.Error(errors.WithStack(err)))
			}

			if user != nil {
				return user, nil
			}

			slog.WarnContext(ctx, "authentication failed", slog.String("username", username))
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="burpacl", charset="UTF-8"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return nil, errors.WithStack(authn.ErrCancel)
	})
}
