package s3

import (
	"context"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

func TestBackend(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("could not terminate container: %+v", errors.WithStack(err))
		}
	}()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	options := map[string]any{
		"endpoint":     endpoint,
		"accessKey":    container.Username,
		"secretKey":    container.Password,
		"secure":       false,
		"bucket":       "acl",
		"object":       "burpui.cfg",
		"createBucket": true,
	}

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	backend, err := acl.New(ctx, Type, "", handler, options)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	a := backend.ACL()

	if a.IsClientAllowed(ctx, "user1", "client1", "") {
		t.Errorf("IsClientAllowed(user1, client1): expected false on empty object, got true")
	}

	mutable, ok := backend.(acl.Mutable)
	if !ok {
		t.Fatalf("backend: expected acl.Mutable implementation")
	}

	if err := mutable.AddGroup(ctx, "ops", `{"rw": ["client1"]}`); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if err := mutable.AddGroupMember(ctx, "ops", "user1"); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !a.IsClientRW(ctx, "user1", "client1", "") {
		t.Errorf("IsClientRW(user1, client1): expected true, got false")
	}

	// A second backend reading the same object sees the persisted grants
	otherHandler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	other, err := acl.New(ctx, Type, "", otherHandler, options)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !other.ACL().IsClientAllowed(ctx, "user1", "client1", "") {
		t.Errorf("other: IsClientAllowed(user1, client1): expected true, got false")
	}

	if err := mutable.DelGroupMember(ctx, "ops", "user1"); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if err := other.Refresh(ctx); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if other.ACL().IsClientAllowed(ctx, "user1", "client1", "") {
		t.Errorf("other: IsClientAllowed(user1, client1): expected false after refresh, got true")
	}
}
