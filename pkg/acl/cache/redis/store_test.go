package redis

import (
	"context"
	"slices"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestStore(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("could not terminate container: %+v", errors.WithStack(err))
		}
	}()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	store, err := cache.New(Type, map[string]any{
		"url":    url,
		"prefix": "test:",
		"ttl":    "1m",
	})
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	defer store.(*Store).Close()

	resolved := grant.Resolve(grant.Parse(`{"agent1": ["client1"], "rw": ["client2"], "exclude": ["client3"], "order": ["rw", "exclude"]}`))

	if err := store.Set(ctx, 3, "user1", resolved); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	cached, exists, err := store.Get(ctx, 3, "user1")
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !exists {
		t.Fatalf("store.Get(3, user1): expected entry to exist")
	}

	if e, g := resolved.Clients, cached.Clients; !slices.Equal(e, g) {
		t.Errorf("cached.Clients: expected '%v', got '%v'", e, g)
	}

	if e, g := resolved.PerAgent["agent1"], cached.PerAgent["agent1"]; !slices.Equal(e, g) {
		t.Errorf("cached.PerAgent[agent1]: expected '%v', got '%v'", e, g)
	}

	if e, g := resolved.Scopes[grant.ScopeExclude].Clients, cached.Scopes[grant.ScopeExclude].Clients; !slices.Equal(e, g) {
		t.Errorf("cached.Scopes[exclude].Clients: expected '%v', got '%v'", e, g)
	}

	if e, g := resolved.EffectiveOrder(), cached.EffectiveOrder(); !slices.Equal(e, g) {
		t.Errorf("cached.EffectiveOrder(): expected '%v', got '%v'", e, g)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if _, exists, err := store.Get(ctx, 3, "user1"); err != nil || exists {
		t.Errorf("store.Get(3, user1): expected no entry after clear, got exists=%v err=%v", exists, err)
	}
}
