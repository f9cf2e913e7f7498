package setup

import (
	"context"
	"log/slog"
	"slices"

	"github.com/bornholm/burpacl/internal/config"
	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"

	_ "github.com/bornholm/burpacl/pkg/acl/loader/all"
)

var NewACLHandlerFromConfig = createFromConfigOnce(func(ctx context.Context, conf *config.Config) (*meta.Handler, error) {
	store, err := NewCacheFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	handler, err := meta.NewHandler(
		meta.WithOptions(meta.Options{
			Extended:     bool(conf.ACL.Extended),
			Legacy:       bool(conf.ACL.Legacy),
			AssumeRW:     bool(conf.ACL.AssumeRW),
			ImplicitLink: bool(conf.ACL.ImplicitLink),
			Standalone:   bool(conf.ACL.Standalone),
		}),
		meta.WithCache(store),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return handler, nil
})

var NewEngineFromConfig = createFromConfigOnce(func(ctx context.Context, conf *config.Config) (*acl.Engine, error) {
	handler, err := NewACLHandlerFromConfig(ctx, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return newEngine(ctx, conf, handler)
})

// newEngine loads the configured backends. A 'none' entry disables every
// backend. Backends failing to load are skipped, unless none of them could be
// loaded.
func newEngine(ctx context.Context, conf *config.Config, handler *meta.Handler) (*acl.Engine, error) {
	funcs := []acl.EngineOptionFunc{
		acl.WithRefreshInterval(conf.ACL.RefreshDuration()),
	}

	permissive := len(conf.ACL.Backends) == 0 || slices.ContainsFunc(conf.ACL.Backends, func(b config.Backend) bool {
		return acl.Type(b.Type) == acl.TypeNone
	})

	if permissive {
		slog.WarnContext(ctx, "acl disabled, every authenticated user is granted full access")
		funcs = append(funcs, acl.WithFallback(acl.Permissive{}))
		return acl.NewEngine(handler, nil, funcs...), nil
	}

	backends := make([]acl.Backend, 0, len(conf.ACL.Backends))

	for _, b := range conf.ACL.Backends {
		backendType := acl.Type(b.Type)

		var options any
		if b.Options != nil {
			options = b.Options.Data
		}

		backend, err := acl.New(ctx, backendType, string(b.Name), handler, options)
		if errors.Is(err, acl.ErrAlreadyExists) {
			return nil, errors.Wrap(err, "acl backend names must be unique")
		}

		if err != nil {
			slog.ErrorContext(ctx, "could not load acl backend", slog.String("type", string(backendType)), slog.String("name", string(b.Name)), log.Error(err))
			continue
		}

		slog.InfoContext(ctx, "acl backend loaded", slog.String("name", backend.Name()), slog.Int("priority", backend.Priority()))

		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, errors.New("none of the configured acl backends could be loaded")
	}

	return acl.NewEngine(handler, backends, funcs...), nil
}
