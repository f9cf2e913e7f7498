package setup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/internal/admin"
	"github.com/bornholm/burpacl/internal/authn"
	"github.com/bornholm/burpacl/internal/authn/basic"
	"github.com/bornholm/burpacl/internal/authn/header"
	"github.com/bornholm/burpacl/internal/authz"
	"github.com/bornholm/burpacl/internal/config"
	"github.com/bornholm/burpacl/internal/pprof"
	"github.com/bornholm/burpacl/internal/ratelimit"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"golang.org/x/time/rate"

	sloghttp "github.com/samber/slog-http"
)

const requestIDHeader = "X-Request-Id"

func NewHandlerFromConfig(ctx context.Context, conf *config.Config) (http.Handler, error) {
	mux := &http.ServeMux{}

	slogMiddleware := sloghttp.NewWithConfig(slog.Default(), sloghttp.Config{
		WithRequestID: false,
		WithUserAgent: true,
	})

	engine, err := NewEngineFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	users, err := NewUserProviderFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	onAuthenticated, err := NewOnAuthenticatedFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	authenticators := make([]authn.Authenticator, 0, 2)

	if conf.Auth.ProxyHeader != "" {
		trusted, err := header.ParsePrefixes(conf.Auth.TrustedProxies...)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		authenticators = append(authenticators, header.NewAuthenticator(string(conf.Auth.ProxyHeader), trusted...))
	}

	authenticators = append(authenticators, basic.NewAuthenticator(users))

	apiAuth := authn.Chain(
		authn.WithAuthenticators(authenticators...),
		authn.WithOnAuthenticated(onAuthenticated),
	)

	rateLimiter := ratelimit.New(rate.Limit(conf.HTTP.RateLimit.Rate), int(conf.HTTP.RateLimit.Burst))
	rateLimiterMiddleware := rateLimiter.Middleware(func(r *http.Request) (string, error) {
		user, err := authn.ContextUser(r.Context())
		if err != nil {
			return "", errors.WithStack(err)
		}

		return user.UserName(), nil
	})

	adminHandler := admin.NewHandler("/api/acl", engine)
	mux.Handle("/api/acl/", requestID(slogMiddleware(apiAuth(rateLimiterMiddleware(adminHandler)))))

	if conf.HTTP.Pprof {
		slog.WarnContext(ctx, "profiling endpoints enabled", slog.String("prefix", "/debug/pprof"))
		stats := func() map[string]any {
			backends := make(map[string]int)
			for _, b := range engine.Backends() {
				backends[b.Name()] = b.Priority()
			}

			return map[string]any{
				"version":  engine.Handler().Version(),
				"backends": backends,
			}
		}

		mux.Handle("/debug/pprof/", requestID(slogMiddleware(apiAuth(authz.RequireAdmin(engine)(pprof.NewHandler("/debug/pprof", stats))))))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux, nil
}

// requestID tags the request and its logs with a unique identifier, reusing
// the one provided by the client if any.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := xid.FromString(id); err != nil {
			id = xid.New().String()
		}

		w.Header().Set(requestIDHeader, id)

		ctx := log.WithAttrs(r.Context(), slog.String("requestId", id))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
