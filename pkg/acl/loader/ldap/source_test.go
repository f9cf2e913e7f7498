package ldap

import (
	"context"
	"sync"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
)

type fakeDirectory struct {
	mutex   sync.Mutex
	entries []*ldap.Entry
	filters []string
}

func (d *fakeDirectory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.filters = append(d.filters, req.Filter)

	return &ldap.SearchResult{Entries: d.entries}, nil
}

func (d *fakeDirectory) Close() {}

func (d *fakeDirectory) set(entries ...*ldap.Entry) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.entries = entries
}

func (d *fakeDirectory) dial(ctx context.Context) (Searcher, error) {
	return d, nil
}

var mapping = Mapping{
	BaseDN:          "ou=groups,dc=example,dc=org",
	Filter:          "(objectClass=groupOfNames)",
	GroupAttribute:  "cn",
	MemberAttribute: "member",
	GrantAttribute:  "description",
	AdminGroup:      "burp-admins",
	ModeratorGroup:  "burp-moderators",
}

func TestSourceEntries(t *testing.T) {
	directory := &fakeDirectory{}
	directory.set(
		ldap.NewEntry("cn=burp-admins,ou=groups,dc=example,dc=org", map[string][]string{
			"cn":     {"burp-admins"},
			"member": {"uid=alice,ou=people,dc=example,dc=org"},
		}),
		ldap.NewEntry("cn=ops,ou=groups,dc=example,dc=org", map[string][]string{
			"cn":          {"ops"},
			"member":      {"uid=bob,ou=people,dc=example,dc=org", "carol"},
			"description": {`{"rw": ["db-*"]}`},
		}),
		ldap.NewEntry("cn=nameless,ou=groups,dc=example,dc=org", map[string][]string{
			"member": {"uid=dave,ou=people,dc=example,dc=org"},
		}),
	)

	source := NewSource(directory.dial, mapping)

	entries, err := source.Entries(context.Background())
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	expected := []loader.Entry{
		{Key: loader.KeyAdmin, Value: `["alice"]`},
		{Key: "+ops", Value: `["bob","carol"]`},
		{Key: "@ops", Value: `{"rw": ["db-*"]}`},
	}

	if e, g := len(expected), len(entries); e != g {
		t.Fatalf("len(entries): expected '%v', got '%v'", e, g)
	}

	for idx := range expected {
		if e, g := expected[idx], entries[idx]; e != g {
			t.Errorf("entries[%d]: expected '%v', got '%v'", idx, e, g)
		}
	}

	if e, g := mapping.Filter, directory.filters[0]; e != g {
		t.Errorf("search filter: expected '%v', got '%v'", e, g)
	}
}

func TestBackend(t *testing.T) {
	ctx := context.Background()

	directory := &fakeDirectory{}
	directory.set(
		ldap.NewEntry("cn=burp-moderators,ou=groups,dc=example,dc=org", map[string][]string{
			"cn":     {"burp-moderators"},
			"member": {"uid=alice,ou=people,dc=example,dc=org"},
		}),
		ldap.NewEntry("cn=ops,ou=groups,dc=example,dc=org", map[string][]string{
			"cn":          {"ops"},
			"member":      {"uid=bob,ou=people,dc=example,dc=org"},
			"description": {`["db-1"]`},
		}),
	)

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	backend := loader.New(string(Type), 10, handler, NewSource(directory.dial, mapping))

	if err := backend.Reload(ctx); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	a := backend.ACL()

	if isModerator, _ := a.IsModerator(ctx, "alice"); !isModerator {
		t.Errorf("IsModerator(alice): expected true, got false")
	}

	if !a.IsClientAllowed(ctx, "bob", "db-1", "") {
		t.Errorf("IsClientAllowed(bob, db-1): expected true, got false")
	}

	if backend.Writable() {
		t.Errorf("backend.Writable(): expected false, got true")
	}

	if err := backend.AddGrant(ctx, "bob", `["db-2"]`); !errors.Is(err, acl.ErrNotWritable) {
		t.Errorf("AddGrant(bob): expected '%v', got '%v'", acl.ErrNotWritable, err)
	}

	changed, err := NewSource(directory.dial, mapping).Changed(ctx)
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !changed {
		t.Errorf("Changed(): expected true for a source never loaded, got false")
	}

	directory.set(
		ldap.NewEntry("cn=ops,ou=groups,dc=example,dc=org", map[string][]string{
			"cn":          {"ops"},
			"member":      {"uid=bob,ou=people,dc=example,dc=org"},
			"description": {`["db-2"]`},
		}),
	)

	if err := backend.Refresh(ctx); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if a.IsClientAllowed(ctx, "bob", "db-1", "") {
		t.Errorf("IsClientAllowed(bob, db-1): expected false after refresh, got true")
	}

	if !a.IsClientAllowed(ctx, "bob", "db-2", "") {
		t.Errorf("IsClientAllowed(bob, db-2): expected true after refresh, got false")
	}

	if isModerator, _ := a.IsModerator(ctx, "alice"); isModerator {
		t.Errorf("IsModerator(alice): expected false after refresh, got true")
	}
}
