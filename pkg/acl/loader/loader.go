package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

// Loader is a backend registering the entries of a Source into the meta
// handler.
type Loader struct {
	name     string
	priority atomic.Int64
	handler  *meta.Handler
	source   Source

	// serializes read-modify-write cycles on the source
	writeMutex sync.Mutex
	loadedAt   atomic.Int64
}

func New(name string, priority int, handler *meta.Handler, source Source) *Loader {
	l := &Loader{
		name:    name,
		handler: handler,
		source:  source,
	}

	l.priority.Store(int64(priority))

	handler.RegisterBackend(name, l)

	return l
}

// Name implements acl.Backend.
func (l *Loader) Name() string {
	return l.name
}

// Priority implements acl.Backend.
func (l *Loader) Priority() int {
	return int(l.priority.Load())
}

// ACL implements acl.Backend.
func (l *Loader) ACL() acl.ACL {
	return l.handler
}

// LoadedAt implements acl.Loaded.
func (l *Loader) LoadedAt() time.Time {
	return time.Unix(0, l.loadedAt.Load())
}

// Reload implements acl.Backend.
func (l *Loader) Reload(ctx context.Context) error {
	entries, err := l.source.Entries(ctx)
	if err != nil {
		return errors.Wrapf(err, "could not read entries of backend '%s'", l.name)
	}

	l.handler.Batch(ctx, func(r *meta.Registry) {
		for _, e := range entries {
			l.apply(ctx, r, e)
		}
	})

	l.loadedAt.Store(time.Now().UnixNano())

	slog.DebugContext(ctx, "acl backend loaded", slog.String("backend", l.name), slog.Int("entries", len(entries)))

	return nil
}

// Refresh implements acl.Backend.
func (l *Loader) Refresh(ctx context.Context) error {
	changed, err := l.source.Changed(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if !changed {
		return nil
	}

	slog.InfoContext(ctx, "acl backend changed, reloading", slog.String("backend", l.name))

	return errors.WithStack(l.reset(ctx))
}

func (l *Loader) reset(ctx context.Context) error {
	if err := l.handler.Reset(ctx, l.name, l.Reload); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (l *Loader) apply(ctx context.Context, r *meta.Registry, e Entry) {
	key := strings.TrimSpace(e.Key)

	switch {
	case key == "":
		return

	case key == KeyPriority:
		priority, err := strconv.Atoi(strings.TrimSpace(e.Value))
		if err != nil {
			slog.WarnContext(ctx, "ignoring invalid backend priority", slog.String("backend", l.name), log.Error(errors.WithStack(err)))
			return
		}

		l.priority.Store(int64(priority))

	case key == KeyAdmin:
		r.SetAdmin(e.Value)

	case key == KeyModerator:
		r.SetModerator(e.Value)

	case key == KeyModeratorGrants:
		r.SetModeratorGrants(e.Value)

	case strings.HasPrefix(key, "+"):
		if members := r.SetGroup(key, e.Value); members == nil {
			slog.WarnContext(ctx, "malformed group members", slog.String("backend", l.name), slog.String("key", key))
		}

	case strings.HasPrefix(key, "@"):
		if rule := r.SetGrant(key, e.Value); rule == nil {
			slog.WarnContext(ctx, "malformed group grant", slog.String("backend", l.name), slog.String("key", key))
		}

	default:
		if rule := r.SetGrant(key, e.Value); rule == nil {
			slog.WarnContext(ctx, "malformed grant", slog.String("backend", l.name), slog.String("key", key))
		}
	}
}

// Writable implements acl.Mutable.
func (l *Loader) Writable() bool {
	_, ok := l.source.(WritableSource)
	return ok
}

// AddGrant implements acl.Mutable.
func (l *Loader) AddGrant(ctx context.Context, name string, raw string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if _, exists := entries[name]; exists {
			return errors.Wrapf(acl.ErrAlreadyExists, "grant '%s'", name)
		}

		return errors.WithStack(w.Put(ctx, name, raw))
	})
}

// ModGrant implements acl.Mutable.
func (l *Loader) ModGrant(ctx context.Context, name string, raw string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if _, exists := entries[name]; !exists {
			return errors.Wrapf(acl.ErrNotFound, "grant '%s'", name)
		}

		return errors.WithStack(w.Put(ctx, name, raw))
	})
}

// DelGrant implements acl.Mutable.
func (l *Loader) DelGrant(ctx context.Context, name string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if _, exists := entries[name]; !exists {
			return errors.Wrapf(acl.ErrNotFound, "grant '%s'", name)
		}

		return errors.WithStack(w.Delete(ctx, name))
	})
}

// AddGroup implements acl.Mutable.
func (l *Loader) AddGroup(ctx context.Context, name string, raw string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		grantKey, memberKey := GrantKey(name), MemberKey(name)

		if _, exists := entries[grantKey]; exists {
			return errors.Wrapf(acl.ErrAlreadyExists, "group '%s'", name)
		}

		if err := w.Put(ctx, grantKey, raw); err != nil {
			return errors.WithStack(err)
		}

		if _, exists := entries[memberKey]; !exists {
			if err := w.Put(ctx, memberKey, "[]"); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
}

// ModGroup implements acl.Mutable.
func (l *Loader) ModGroup(ctx context.Context, name string, raw string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if !groupExists(entries, name) {
			return errors.Wrapf(acl.ErrNotFound, "group '%s'", name)
		}

		return errors.WithStack(w.Put(ctx, GrantKey(name), raw))
	})
}

// DelGroup implements acl.Mutable.
func (l *Loader) DelGroup(ctx context.Context, name string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if !groupExists(entries, name) {
			return errors.Wrapf(acl.ErrNotFound, "group '%s'", name)
		}

		for _, key := range []string{GrantKey(name), MemberKey(name)} {
			if _, exists := entries[key]; !exists {
				continue
			}

			if err := w.Delete(ctx, key); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
}

// AddGroupMember implements acl.Mutable.
func (l *Loader) AddGroupMember(ctx context.Context, group string, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		if !groupExists(entries, group) {
			return errors.Wrapf(acl.ErrNotFound, "group '%s'", group)
		}

		return errors.WithStack(addMember(ctx, entries, w, MemberKey(group), member))
	})
}

// DelGroupMember implements acl.Mutable.
func (l *Loader) DelGroupMember(ctx context.Context, group string, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(delMember(ctx, entries, w, MemberKey(group), member))
	})
}

// AddAdmin implements acl.Mutable.
func (l *Loader) AddAdmin(ctx context.Context, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(addMember(ctx, entries, w, KeyAdmin, member))
	})
}

// DelAdmin implements acl.Mutable.
func (l *Loader) DelAdmin(ctx context.Context, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(delMember(ctx, entries, w, KeyAdmin, member))
	})
}

// AddModerator implements acl.Mutable.
func (l *Loader) AddModerator(ctx context.Context, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(addMember(ctx, entries, w, KeyModerator, member))
	})
}

// DelModerator implements acl.Mutable.
func (l *Loader) DelModerator(ctx context.Context, member string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(delMember(ctx, entries, w, KeyModerator, member))
	})
}

// SetModeratorGrants implements acl.Mutable.
func (l *Loader) SetModeratorGrants(ctx context.Context, raw string) error {
	return l.mutate(ctx, func(ctx context.Context, entries map[string]string, w WritableSource) error {
		return errors.WithStack(w.Put(ctx, KeyModeratorGrants, raw))
	})
}

type mutateFunc func(ctx context.Context, entries map[string]string, w WritableSource) error

// mutate applies fn to the source, then resets the handler so that queries
// reflect the change right away.
func (l *Loader) mutate(ctx context.Context, fn mutateFunc) error {
	writable, ok := l.source.(WritableSource)
	if !ok {
		return errors.Wrapf(acl.ErrNotWritable, "backend '%s'", l.name)
	}

	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	list, err := writable.Entries(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	entries := make(map[string]string, len(list))
	for _, e := range list {
		entries[e.Key] = e.Value
	}

	if err := fn(ctx, entries, writable); err != nil {
		return errors.WithStack(err)
	}

	if err := l.reset(ctx); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func groupExists(entries map[string]string, name string) bool {
	_, hasGrant := entries[GrantKey(name)]
	_, hasMembers := entries[MemberKey(name)]
	return hasGrant || hasMembers
}

func addMember(ctx context.Context, entries map[string]string, w WritableSource, key string, member string) error {
	members := grant.ParseMembers(entries[key])
	if slices.Contains(members, member) {
		return errors.Wrapf(acl.ErrAlreadyExists, "member '%s' of '%s'", member, key)
	}

	members = append(members, member)

	return errors.WithStack(putMembers(ctx, w, key, members))
}

func delMember(ctx context.Context, entries map[string]string, w WritableSource, key string, member string) error {
	members := grant.ParseMembers(entries[key])

	index := slices.Index(members, member)
	if index == -1 {
		return errors.Wrapf(acl.ErrNotFound, "member '%s' of '%s'", member, key)
	}

	members = slices.Delete(members, index, index+1)

	return errors.WithStack(putMembers(ctx, w, key, members))
}

func putMembers(ctx context.Context, w WritableSource, key string, members []string) error {
	data, err := json.Marshal(members)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(w.Put(ctx, key, string(data)))
}

func trimGroupPrefix(name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), "@+")
}

var (
	_ acl.Backend = &Loader{}
	_ acl.Mutable = &Loader{}
	_ acl.Loaded  = &Loader{}
)
