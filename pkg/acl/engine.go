package acl

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const DefaultRefreshInterval = 30 * time.Second

type EngineOptions struct {
	RefreshInterval time.Duration
	Fallback        ACL
}

type EngineOptionFunc func(opts *EngineOptions)

func NewEngineOptions(funcs ...EngineOptionFunc) *EngineOptions {
	opts := &EngineOptions{
		RefreshInterval: DefaultRefreshInterval,
	}

	for _, fn := range funcs {
		fn(opts)
	}

	return opts
}

func WithRefreshInterval(interval time.Duration) EngineOptionFunc {
	return func(opts *EngineOptions) {
		opts.RefreshInterval = interval
	}
}

// WithFallback sets the ACL answering when no backend grants access.
// Defaults to the meta handler.
func WithFallback(fallback ACL) EngineOptionFunc {
	return func(opts *EngineOptions) {
		opts.Fallback = fallback
	}
}

// Engine queries its backends by descending priority. The first one granting
// access wins, otherwise the fallback decides.
type Engine struct {
	handler  *meta.Handler
	backends []Backend
	fallback ACL
	refresh  *rate.Sometimes

	// rebuilt whenever the handler version changes, backend priorities may
	// have been reloaded
	current atomic.Pointer[engineState]
}

type engineState struct {
	version  uint64
	backends []Backend
	// distinct backend ACLs, the fallback excluded
	acls []ACL
}

func NewEngine(handler *meta.Handler, backends []Backend, funcs ...EngineOptionFunc) *Engine {
	opts := NewEngineOptions(funcs...)

	var fallback ACL = handler
	if opts.Fallback != nil {
		fallback = opts.Fallback
	}

	return &Engine{
		handler:  handler,
		backends: slices.Clone(backends),
		fallback: fallback,
		refresh:  &rate.Sometimes{Interval: opts.RefreshInterval},
	}
}

func (e *Engine) state() *engineState {
	version := e.handler.Version()

	if current := e.current.Load(); current != nil && current.version == version {
		return current
	}

	sorted := slices.Clone(e.backends)
	slices.SortStableFunc(sorted, func(a, b Backend) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})

	acls := make([]ACL, 0, len(sorted))
	for _, b := range sorted {
		a := b.ACL()
		if a == e.fallback || slices.Contains(acls, a) {
			continue
		}

		acls = append(acls, a)
	}

	state := &engineState{
		version:  version,
		backends: sorted,
		acls:     acls,
	}

	e.current.Store(state)

	return state
}

func (e *Engine) Handler() *meta.Handler {
	return e.handler
}

// Backends returns the backends by descending priority.
func (e *Engine) Backends() []Backend {
	return slices.Clone(e.state().backends)
}

func (e *Engine) Backend(name string) (Backend, error) {
	for _, b := range e.backends {
		if b.Name() == name {
			return b, nil
		}
	}

	return nil, errors.Wrapf(ErrUnknownBackend, "backend '%s'", name)
}

// Refresh asks every backend to reload if its source changed. Calls are
// throttled to one per refresh interval.
func (e *Engine) Refresh(ctx context.Context) {
	e.refresh.Do(func() {
		for _, b := range e.state().backends {
			if err := b.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "could not refresh acl backend", slog.String("backend", b.Name()), log.Error(errors.WithStack(err)))
			}
		}
	})
}

// IsAdmin implements ACL.
func (e *Engine) IsAdmin(ctx context.Context, username string) (bool, []string) {
	e.Refresh(ctx)

	for _, a := range e.state().acls {
		if ok, chain := a.IsAdmin(ctx, username); ok {
			return true, chain
		}
	}

	return e.fallback.IsAdmin(ctx, username)
}

// IsModerator implements ACL.
func (e *Engine) IsModerator(ctx context.Context, username string) (bool, []string) {
	e.Refresh(ctx)

	for _, a := range e.state().acls {
		if ok, chain := a.IsModerator(ctx, username); ok {
			return true, chain
		}
	}

	return e.fallback.IsModerator(ctx, username)
}

// IsClientAllowed implements ACL.
func (e *Engine) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	return e.first(ctx, func(a ACL) bool {
		return a.IsClientAllowed(ctx, username, client, server)
	})
}

// IsClientRW implements ACL.
func (e *Engine) IsClientRW(ctx context.Context, username, client, server string) bool {
	return e.first(ctx, func(a ACL) bool {
		return a.IsClientRW(ctx, username, client, server)
	})
}

// IsServerAllowed implements ACL.
func (e *Engine) IsServerAllowed(ctx context.Context, username, server string) bool {
	return e.first(ctx, func(a ACL) bool {
		return a.IsServerAllowed(ctx, username, server)
	})
}

// IsServerRW implements ACL.
func (e *Engine) IsServerRW(ctx context.Context, username, server string) bool {
	return e.first(ctx, func(a ACL) bool {
		return a.IsServerRW(ctx, username, server)
	})
}

func (e *Engine) first(ctx context.Context, predicate func(a ACL) bool) bool {
	e.Refresh(ctx)

	for _, a := range e.state().acls {
		if predicate(a) {
			return true
		}
	}

	return predicate(e.fallback)
}

var _ ACL = &Engine{}
