package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

func TestSource(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "acl.sqlite")

	store := NewStore(path)
	defer store.Close()

	source := NewSource(store)

	for _, e := range []loader.Entry{
		{Key: "admin", Value: `["admin1"]`},
		{Key: "+devs", Value: `["user1"]`},
		{Key: "@devs", Value: `["dev-*"]`},
	} {
		if err := source.Put(ctx, e.Key, e.Value); err != nil {
			t.Fatalf("%+v", errors.WithStack(err))
		}
	}

	if err := source.Put(ctx, "+devs", `["user1", "user2"]`); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	entries, err := source.Entries(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	expected := []loader.Entry{
		{Key: "admin", Value: `["admin1"]`},
		{Key: "+devs", Value: `["user1", "user2"]`},
		{Key: "@devs", Value: `["dev-*"]`},
	}

	if e, g := len(expected), len(entries); e != g {
		t.Fatalf("len(entries): expected '%v', got '%v'", e, g)
	}

	for idx := range expected {
		if e, g := expected[idx], entries[idx]; e != g {
			t.Errorf("entries[%d]: expected '%v', got '%v'", idx, e, g)
		}
	}

	changed, err := source.Changed(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if changed {
		t.Errorf("source.Changed(): expected false after Entries, got true")
	}

	// Writes from another process sharing the database are detected
	other := NewStore(path)
	defer other.Close()

	if err := NewSource(other).Delete(ctx, "@devs"); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	changed, err = source.Changed(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !changed {
		t.Errorf("source.Changed(): expected true after external write, got false")
	}
}

func TestBackend(t *testing.T) {
	ctx := context.Background()

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	backend, err := acl.New(ctx, Type, "", handler, map[string]any{
		"path":     filepath.Join(t.TempDir(), "acl.sqlite"),
		"priority": 50,
	})
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	mutable, ok := backend.(acl.Mutable)
	if !ok || !mutable.Writable() {
		t.Fatalf("backend: expected writable acl.Mutable implementation")
	}

	if err := mutable.AddAdmin(ctx, "admin1"); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if err := mutable.AddGrant(ctx, "user1", `{"ro": {"agents": ["srv-1"]}}`); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if err := mutable.AddGrant(ctx, "user1", `["client1"]`); !errors.Is(err, acl.ErrAlreadyExists) {
		t.Errorf("AddGrant(user1): expected '%v', got '%v'", acl.ErrAlreadyExists, err)
	}

	a := backend.ACL()

	if isAdmin, _ := a.IsAdmin(ctx, "admin1"); !isAdmin {
		t.Errorf("IsAdmin(admin1): expected true, got false")
	}

	if !a.IsServerAllowed(ctx, "user1", "srv-1") {
		t.Errorf("IsServerAllowed(user1, srv-1): expected true, got false")
	}

	if a.IsServerRW(ctx, "user1", "srv-1") {
		t.Errorf("IsServerRW(user1, srv-1): expected false, got true")
	}

	if a.IsServerAllowed(ctx, "user1", "srv-2") {
		t.Errorf("IsServerAllowed(user1, srv-2): expected false, got true")
	}

	if err := mutable.DelGrant(ctx, "user1"); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	// Without agent restrictions every server is visible again
	if !a.IsServerAllowed(ctx, "user1", "srv-2") {
		t.Errorf("IsServerAllowed(user1, srv-2): expected true after deletion, got false")
	}

	if err := mutable.DelGrant(ctx, "user1"); !errors.Is(err, acl.ErrNotFound) {
		t.Errorf("DelGrant(user1): expected '%v', got '%v'", acl.ErrNotFound, err)
	}
}
