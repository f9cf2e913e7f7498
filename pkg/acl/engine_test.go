package acl

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

type fakeBackend struct {
	name      string
	priority  int
	acl       ACL
	refreshes int
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Priority() int { return b.priority }
func (b *fakeBackend) Reload(ctx context.Context) error { return nil }
func (b *fakeBackend) ACL() ACL { return b.acl }
func (b *fakeBackend) Refresh(ctx context.Context) error { b.refreshes++; return nil }

var _ Backend = &fakeBackend{}

type denyAll struct{ Permissive }

func (denyAll) IsAdmin(ctx context.Context, username string) (bool, []string) { return false, nil }
func (denyAll) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	return false
}
func (denyAll) IsClientRW(ctx context.Context, username, client, server string) bool { return false }
func (denyAll) IsServerAllowed(ctx context.Context, username, server string) bool { return false }
func (denyAll) IsServerRW(ctx context.Context, username, server string) bool { return false }

func newHandler(t *testing.T) *meta.Handler {
	t.Helper()

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	return handler
}

func TestEngineOrdersBackendsByPriority(t *testing.T) {
	handler := newHandler(t)

	low := &fakeBackend{name: "low", priority: 10, acl: handler}
	high := &fakeBackend{name: "high", priority: 100, acl: handler}
	mid := &fakeBackend{name: "mid", priority: 50, acl: handler}

	engine := NewEngine(handler, []Backend{low, high, mid})

	names := make([]string, 0)
	for _, b := range engine.Backends() {
		names = append(names, b.Name())
	}

	if e, g := []string{"high", "mid", "low"}, names; !slices.Equal(e, g) {
		t.Errorf("engine.Backends(): expected '%v', got '%v'", e, g)
	}

	if _, err := engine.Backend("unknown"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("engine.Backend(unknown): expected ErrUnknownBackend, got '%v'", err)
	}
}

func TestEngineFirstGrantingBackendWins(t *testing.T) {
	ctx := context.Background()

	handler := newHandler(t)
	handler.SetGrant(ctx, "user1", `["c1"]`)

	engine := NewEngine(handler, []Backend{
		&fakeBackend{name: "deny", priority: 100, acl: denyAll{}},
		&fakeBackend{name: "permissive", priority: 1, acl: Permissive{}},
	})

	if !engine.IsClientAllowed(ctx, "user1", "c2", "") {
		t.Errorf("engine.IsClientAllowed(user1, c2): expected true through permissive backend, got false")
	}

	if isAdmin, _ := engine.IsAdmin(ctx, "user1"); !isAdmin {
		t.Errorf("engine.IsAdmin(user1): expected true through permissive backend, got false")
	}

	engine = NewEngine(handler, []Backend{
		&fakeBackend{name: "deny", priority: 100, acl: denyAll{}},
	})

	if !engine.IsClientAllowed(ctx, "user1", "c1", "") {
		t.Errorf("engine.IsClientAllowed(user1, c1): expected handler fallback to allow, got false")
	}

	if engine.IsClientAllowed(ctx, "user1", "c2", "") {
		t.Errorf("engine.IsClientAllowed(user1, c2): expected false, got true")
	}
}

func TestEnginePermissiveFallback(t *testing.T) {
	ctx := context.Background()

	engine := NewEngine(newHandler(t), nil, WithFallback(Permissive{}))

	if isAdmin, _ := engine.IsAdmin(ctx, "anyone"); !isAdmin {
		t.Errorf("engine.IsAdmin(anyone): expected true, got false")
	}

	if !engine.IsClientRW(ctx, "anyone", "any-client", "any-server") {
		t.Errorf("engine.IsClientRW(anyone): expected true, got false")
	}

	if !engine.IsServerRW(ctx, "anyone", "any-server") {
		t.Errorf("engine.IsServerRW(anyone): expected true, got false")
	}

	if isModerator, _ := engine.IsModerator(ctx, "anyone"); isModerator {
		t.Errorf("engine.IsModerator(anyone): expected false, got true")
	}

	if engine.IsClientAllowed(ctx, "", "any-client", "") {
		t.Errorf("engine.IsClientAllowed(''): expected false, got true")
	}
}

func TestEngineRefreshIsThrottled(t *testing.T) {
	ctx := context.Background()

	handler := newHandler(t)
	backend := &fakeBackend{name: "basic", acl: handler}

	engine := NewEngine(handler, []Backend{backend}, WithRefreshInterval(time.Hour))

	for range 10 {
		engine.IsServerAllowed(ctx, "user1", "srv1")
	}

	if e, g := 1, backend.refreshes; e != g {
		t.Errorf("backend.refreshes: expected '%v', got '%v'", e, g)
	}
}

type countingACL struct {
	denyAll
	calls int
}

func (c *countingACL) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	c.calls++
	return false
}

func TestEngineQueriesSharedACLOnce(t *testing.T) {
	ctx := context.Background()

	handler := newHandler(t)
	shared := &countingACL{}
	other := &countingACL{}

	engine := NewEngine(handler, []Backend{
		&fakeBackend{name: "first", priority: 10, acl: shared},
		&fakeBackend{name: "second", priority: 20, acl: shared},
		&fakeBackend{name: "third", priority: 30, acl: other},
	}, WithFallback(other))

	if engine.IsClientAllowed(ctx, "user1", "c1", "") {
		t.Errorf("engine.IsClientAllowed(user1, c1): expected false, got true")
	}

	if e, g := 1, shared.calls; e != g {
		t.Errorf("shared.calls: expected '%v', got '%v'", e, g)
	}

	if e, g := 1, other.calls; e != g {
		t.Errorf("other.calls: expected '%v', got '%v'", e, g)
	}
}

func TestEngineFollowsPriorityChanges(t *testing.T) {
	ctx := context.Background()

	handler := newHandler(t)

	first := &fakeBackend{name: "first", priority: 100, acl: handler}
	second := &fakeBackend{name: "second", priority: 10, acl: handler}

	engine := NewEngine(handler, []Backend{first, second})

	if e, g := "first", engine.Backends()[0].Name(); e != g {
		t.Fatalf("engine.Backends()[0]: expected '%v', got '%v'", e, g)
	}

	// Reloading a backend changes the handler version
	second.priority = 200
	handler.SetGrant(ctx, "user1", `["c1"]`)

	if e, g := "second", engine.Backends()[0].Name(); e != g {
		t.Errorf("engine.Backends()[0]: expected '%v', got '%v'", e, g)
	}
}
