package meta

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/bornholm/burpacl/pkg/acl/cache/memory"
	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

// Reloader is implemented by backends feeding the handler. They are reloaded
// when another backend resets the handler.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Handler merges the grants and groups of every registered backend and
// resolves the access predicates against them.
type Handler struct {
	mutex    sync.RWMutex
	registry *Registry
	version  atomic.Uint64

	options Options
	matcher *grant.Matcher
	cache   cache.Store

	backendsMutex sync.Mutex
	backends      map[string]Reloader

	resetMutex sync.Mutex
}

type contextKey string

const contextKeyStaging contextKey = "staging"

func NewHandler(funcs ...HandlerOptionFunc) (*Handler, error) {
	opts := NewHandlerOptions(funcs...)

	store := opts.Cache
	if store == nil {
		memoryStore, err := memory.NewStore(memory.DefaultSize)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		store = memoryStore
	}

	h := &Handler{
		registry: newRegistry(),
		options:  opts.Options,
		matcher:  grant.NewMatcher(opts.Options.Extended),
		cache:    store,
		backends: make(map[string]Reloader),
	}

	h.version.Store(1)

	return h, nil
}

func (h *Handler) Options() Options {
	return h.options
}

// Version identifies the current state of the grants. It changes on every
// mutation.
func (h *Handler) Version() uint64 {
	return h.version.Load()
}

func (h *Handler) Changed(version uint64) bool {
	return version != h.Version()
}

// RegisterBackend adds backend to the backends reloaded on Reset. Backend
// names are unique, registering a name twice replaces the previous backend.
func (h *Handler) RegisterBackend(name string, backend Reloader) {
	h.backendsMutex.Lock()
	defer h.backendsMutex.Unlock()

	h.backends[name] = backend
}

func (h *Handler) UnregisterBackend(name string) {
	h.backendsMutex.Lock()
	defer h.backendsMutex.Unlock()

	delete(h.backends, name)
}

// HasBackend returns true if a backend is registered under name.
func (h *Handler) HasBackend(name string) bool {
	h.backendsMutex.Lock()
	defer h.backendsMutex.Unlock()

	_, exists := h.backends[name]

	return exists
}

// Batch applies fn to the registry under the handler's lock, then
// invalidates every resolved grant. Batches issued by the reloads of a Reset
// apply to the registry being rebuilt.
func (h *Handler) Batch(ctx context.Context, fn func(r *Registry)) {
	if staging, ok := ctx.Value(contextKeyStaging).(*Registry); ok {
		fn(staging)
		return
	}

	h.mutex.Lock()
	fn(h.registry)
	h.version.Add(1)
	h.mutex.Unlock()

	h.clearCache(ctx)
}

// Reset rebuilds the grants and groups from scratch: every registered backend
// except the one named from is reloaded, then reload is called. They all load
// into a fresh registry which replaces the current one once reload succeeds,
// the current grants stay visible meanwhile.
func (h *Handler) Reset(ctx context.Context, from string, reload func(ctx context.Context) error) error {
	h.resetMutex.Lock()
	defer h.resetMutex.Unlock()

	staging := newRegistry()
	stagingCtx := context.WithValue(ctx, contextKeyStaging, staging)

	h.backendsMutex.Lock()
	backends := maps.Clone(h.backends)
	h.backendsMutex.Unlock()

	for _, name := range slices.Sorted(maps.Keys(backends)) {
		if name == from {
			continue
		}

		if err := backends[name].Reload(stagingCtx); err != nil {
			slog.ErrorContext(ctx, "could not reload acl backend", slog.String("backend", name), log.Error(errors.WithStack(err)))
		}
	}

	if reload != nil {
		if err := reload(stagingCtx); err != nil {
			return errors.WithStack(err)
		}
	}

	h.mutex.Lock()
	h.registry = staging
	h.version.Add(1)
	h.mutex.Unlock()

	h.clearCache(ctx)

	return nil
}

func (h *Handler) SetGrant(ctx context.Context, name string, raw string) {
	h.Batch(ctx, func(r *Registry) { r.SetGrant(name, raw) })
}

func (h *Handler) DelGrant(ctx context.Context, name string) {
	h.Batch(ctx, func(r *Registry) { r.DelGrant(name) })
}

func (h *Handler) SetGroup(ctx context.Context, name string, rawMembers string) {
	h.Batch(ctx, func(r *Registry) { r.SetGroup(name, rawMembers) })
}

func (h *Handler) DelGroup(ctx context.Context, name string) {
	h.Batch(ctx, func(r *Registry) { r.DelGroup(name) })
}

func (h *Handler) AddGroupMembers(ctx context.Context, name string, members ...string) {
	h.Batch(ctx, func(r *Registry) { r.AddGroupMembers(name, members...) })
}

func (h *Handler) DelGroupMembers(ctx context.Context, name string, members ...string) {
	h.Batch(ctx, func(r *Registry) { r.DelGroupMembers(name, members...) })
}

func (h *Handler) SetAdmin(ctx context.Context, rawMembers string) {
	h.Batch(ctx, func(r *Registry) { r.SetAdmin(rawMembers) })
}

func (h *Handler) SetModerator(ctx context.Context, rawMembers string) {
	h.Batch(ctx, func(r *Registry) { r.SetModerator(rawMembers) })
}

func (h *Handler) SetModeratorGrants(ctx context.Context, raw string) {
	h.Batch(ctx, func(r *Registry) { r.SetModeratorGrants(raw) })
}

// Grants returns the registered rules by grant name. Malformed grants map to
// a nil rule.
func (h *Handler) Grants() map[string]*grant.Rule {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	grants := make(map[string]*grant.Rule, len(h.registry.grants))
	for name, g := range h.registry.grants {
		grants[name] = g.Rule()
	}

	return grants
}

// Groups returns the members of every registered group.
func (h *Handler) Groups() map[string][]string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	groups := make(map[string][]string, len(h.registry.groups))
	for name, g := range h.registry.groups {
		groups[name] = g.Members()
	}

	return groups
}

// MemberGroups returns the display names of the groups member belongs to,
// reserved groups excluded.
func (h *Handler) MemberGroups(member string) []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	groups := make([]string, 0)
	for _, name := range slices.Sorted(maps.Keys(h.registry.groups)) {
		if IsReservedGroup(name) {
			continue
		}

		group := h.registry.groups[name]
		if ok, _ := group.IsMember(member, h.registry.Group, nil); ok {
			groups = append(groups, group.DisplayName())
		}
	}

	return groups
}

func (h *Handler) isMember(groupName string, username string) (bool, []string) {
	if username == "" {
		return false, nil
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	group := h.registry.Group(groupName)
	if group == nil {
		return false, nil
	}

	return group.IsMember(username, h.registry.Group, nil)
}

// Resolve returns the effective grant of username: its own grant merged with
// the grants of every group it belongs to.
func (h *Handler) Resolve(ctx context.Context, username string) *grant.Resolved {
	version := h.Version()

	cached, exists, err := h.cache.Get(ctx, version, username)
	if err != nil {
		slog.WarnContext(ctx, "could not read resolved grants from cache", slog.String("username", username), log.Error(errors.WithStack(err)))
	}

	if exists {
		return cached
	}

	h.mutex.RLock()
	version = h.Version()
	resolved := h.resolve(username)
	h.mutex.RUnlock()

	if err := h.cache.Set(ctx, version, username, resolved); err != nil {
		slog.WarnContext(ctx, "could not write resolved grants to cache", slog.String("username", username), log.Error(errors.WithStack(err)))
	}

	return resolved
}

func (h *Handler) resolve(username string) *grant.Resolved {
	resolved := &grant.Resolved{}

	if own, exists := h.registry.grants[username]; exists {
		resolved = grant.Resolve(own.Rule())
	}

	for _, name := range slices.Sorted(maps.Keys(h.registry.groups)) {
		if name == AdminGroup || name == username {
			continue
		}

		if ok, _ := h.registry.groups[name].IsMember(username, h.registry.Group, nil); !ok {
			continue
		}

		if g, exists := h.registry.grants[name]; exists {
			resolved = resolved.Merge(grant.Resolve(g.Rule()))
		}
	}

	return resolved
}

func (h *Handler) clearCache(ctx context.Context) {
	if err := h.cache.Clear(ctx); err != nil {
		slog.ErrorContext(ctx, "could not clear resolved grants cache", log.Error(errors.WithStack(err)))
	}
}
