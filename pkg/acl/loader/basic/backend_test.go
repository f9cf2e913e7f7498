package basic

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

const config = `[Global]
standalone = false

[BASIC:ACL]
admin = ["admin1"]
+moderator = mod1
@moderator = {"ro": ["*"]}
+devs = user1, user2
@devs = {"agents": ["srv-*"], "rw": {"clients": ["dev-*"]}}
user3 = ["client3"]
`

func TestBackend(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "burpui.cfg")

	if err := os.WriteFile(path, []byte(config), 0o640); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	backend, err := acl.New(ctx, Type, "", handler, map[string]any{
		"path": path,
	})
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	a := backend.ACL()

	if isAdmin, _ := a.IsAdmin(ctx, "admin1"); !isAdmin {
		t.Errorf("IsAdmin(admin1): expected true, got false")
	}

	if !a.IsClientRW(ctx, "user2", "dev-42", "srv-1") {
		t.Errorf("IsClientRW(user2, dev-42, srv-1): expected true, got false")
	}

	if a.IsServerAllowed(ctx, "user2", "backup") {
		t.Errorf("IsServerAllowed(user2, backup): expected false, got true")
	}

	if a.IsClientRW(ctx, "mod1", "client3", "") {
		t.Errorf("IsClientRW(mod1, client3): expected false, got true")
	}

	mutable, ok := backend.(acl.Mutable)
	if !ok {
		t.Fatalf("backend: expected acl.Mutable implementation")
	}

	if err := mutable.AddGrant(ctx, "user4", `["client4"]`); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !a.IsClientAllowed(ctx, "user4", "client4", "") {
		t.Errorf("IsClientAllowed(user4, client4): expected true, got false")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	written := string(data)

	if !strings.Contains(written, "[Global]") {
		t.Errorf("written config: expected other sections to be preserved, got '%s'", written)
	}

	if !strings.Contains(written, `user4`) {
		t.Errorf("written config: expected new grant, got '%s'", written)
	}

	if err := os.WriteFile(path, []byte("[BASIC:ACL]\nuser5 = client5, client6\n"), 0o640); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if err := backend.Refresh(ctx); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !a.IsClientAllowed(ctx, "user5", "client6", "") {
		t.Errorf("IsClientAllowed(user5, client6): expected true after refresh, got false")
	}

	if isAdmin, _ := a.IsAdmin(ctx, "admin1"); isAdmin {
		t.Errorf("IsAdmin(admin1): expected false after refresh, got true")
	}
}

func TestBackendMissingFile(t *testing.T) {
	ctx := context.Background()

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	backend, err := acl.New(ctx, Type, "", handler, map[string]any{
		"path":     filepath.Join(t.TempDir(), "missing.cfg"),
		"priority": "10",
	})
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if e, g := 10, backend.Priority(); e != g {
		t.Errorf("backend.Priority(): expected '%v', got '%v'", e, g)
	}

	if backend.ACL().IsClientAllowed(ctx, "user1", "client1", "") {
		t.Errorf("IsClientAllowed(user1, client1): expected false, got true")
	}
}
