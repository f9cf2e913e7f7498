package authn

import (
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

var (
	ErrCancel = errors.New("cancel")
)

type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (User, error)
}

type AuthenticateFunc func(w http.ResponseWriter, r *http.Request) (User, error)

func (fn AuthenticateFunc) Authenticate(w http.ResponseWriter, r *http.Request) (User, error) {
	return fn(w, r)
}

// Chain tries each authenticator in turn. The first one returning a user
// wins, an authenticator returning ErrCancel has already answered the
// request.
func Chain(funcs ...MiddlewareOptionFunc) func(http.Handler) http.Handler {
	opts := NewMiddlewareOptions(funcs...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := opts.authenticate(w, r)
			if errors.Is(err, ErrCancel) {
				return
			}

			if err != nil {
				opts.OnError(w, r, err)
				return
			}

			if user == nil {
				opts.UnauthorizedHandler.ServeHTTP(w, r)
				return
			}

			ctx := WithContextUser(r.Context(), user)
			ctx = log.WithAttrs(ctx, slog.String("user", user.UserName()))

			authenticated, err := opts.OnAuthenticated(r.WithContext(ctx), user)
			if err != nil {
				opts.OnError(w, r, err)
				return
			}

			next.ServeHTTP(w, authenticated)
		})
	}
}

func (o *MiddlewareOptions) authenticate(w http.ResponseWriter, r *http.Request) (User, error) {
	for _, auth := range o.Authenticators {
		user, err := auth.Authenticate(w, r)
		if errors.Is(err, ErrCancel) {
			return nil, err
		}

		if user != nil {
			return user, nil
		}

		if err != nil && !errors.Is(err, ErrUnauthenticated) {
			return nil, errors.WithStack(err)
		}
	}

	return nil, nil
}

type OnAuthenticatedFunc func(r *http.Request, user User) (*http.Request, error)
type OnErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

type MiddlewareOptions struct {
	UnauthorizedHandler http.Handler
	Authenticators      []Authenticator
	OnAuthenticated     OnAuthenticatedFunc
	OnError             OnErrorFunc
}

type MiddlewareOptionFunc func(opts *MiddlewareOptions)

func NewMiddlewareOptions(funcs ...MiddlewareOptionFunc) *MiddlewareOptions {
	opts := &MiddlewareOptions{
		OnAuthenticated: func(r *http.Request, user User) (*http.Request, error) {
			return r, nil
		},
		UnauthorizedHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}),
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.ErrorContext(r.Context(), "authentication error", log.Error(errors.WithStack(err)))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	}

	for _, fn := range funcs {
		fn(opts)
	}

	return opts
}

func WithAuthenticators(authenticators ...Authenticator) MiddlewareOptionFunc {
	return func(opts *MiddlewareOptions) {
		opts.Authenticators = authenticators
	}
}

func WithUnauthorizedHandler(h http.Handler) MiddlewareOptionFunc {
	return func(opts *MiddlewareOptions) {
		opts.UnauthorizedHandler = h
	}
}

func WithOnAuthenticated(fn OnAuthenticatedFunc) MiddlewareOptionFunc {
	return func(opts *MiddlewareOptions) {
		opts.OnAuthenticated = fn
	}
}

func WithOnError(fn OnErrorFunc) MiddlewareOptionFunc {
	return func(opts *MiddlewareOptions) {
		opts.OnError = fn
	}
}
