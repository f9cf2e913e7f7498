package expr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

type RuleDefinition struct {
	Kind   Kind   `mapstructure:"kind" yaml:"kind"`
	Script string `mapstructure:"script" yaml:"script"`
}

// Backend grants access through expression rules instead of entries. Rules
// are evaluated against the username, the client, the server and the groups
// known to the meta handler for the user.
type Backend struct {
	name     string
	priority int
	handler  *meta.Handler

	definitions []RuleDefinition
	path        string

	rules    atomic.Pointer[map[Kind][]*Rule]
	loadedAt atomic.Int64

	mutex       sync.Mutex
	lastVersion string
}

// Name implements acl.Backend.
func (b *Backend) Name() string {
	return b.name
}

// Priority implements acl.Backend.
func (b *Backend) Priority() int {
	return b.priority
}

// ACL implements acl.Backend.
func (b *Backend) ACL() acl.ACL {
	return b
}

// LoadedAt implements acl.Loaded.
func (b *Backend) LoadedAt() time.Time {
	return time.Unix(0, b.loadedAt.Load())
}

// Reload implements acl.Backend.
func (b *Backend) Reload(ctx context.Context) error {
	definitions := slices.Clone(b.definitions)

	version := ""
	if b.path != "" {
		fromFile, v, err := b.readFile()
		if err != nil {
			return errors.WithStack(err)
		}

		definitions = append(definitions, fromFile...)
		version = v
	}

	rules := make(map[Kind][]*Rule)
	for _, d := range definitions {
		if !slices.Contains(kinds, d.Kind) {
			slog.WarnContext(ctx, "ignoring rule of unknown kind", slog.String("backend", b.name), slog.String("kind", string(d.Kind)))
			continue
		}

		rule := NewRule(d.Kind, d.Script)

		if _, err := rule.getProgram(); err != nil {
			slog.ErrorContext(ctx, "ignoring invalid rule", slog.String("backend", b.name), log.Error(err))
			continue
		}

		rules[d.Kind] = append(rules[d.Kind], rule)
	}

	b.rules.Store(&rules)
	b.loadedAt.Store(time.Now().UnixNano())

	b.mutex.Lock()
	b.lastVersion = version
	b.mutex.Unlock()

	slog.DebugContext(ctx, "acl backend loaded", slog.String("backend", b.name), slog.Int("rules", len(definitions)))

	return nil
}

// Refresh implements acl.Backend.
func (b *Backend) Refresh(ctx context.Context) error {
	if b.path == "" {
		return nil
	}

	version, err := fileVersion(b.path)
	if err != nil {
		return errors.WithStack(err)
	}

	b.mutex.Lock()
	changed := version != b.lastVersion
	b.mutex.Unlock()

	if !changed {
		return nil
	}

	slog.InfoContext(ctx, "acl backend changed, reloading", slog.String("backend", b.name))

	return errors.WithStack(b.Reload(ctx))
}

func (b *Backend) readFile() ([]RuleDefinition, string, error) {
	version, err := fileVersion(b.path)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "could not read rules file '%s'", b.path)
	}

	var definitions []RuleDefinition
	if err := yaml.Unmarshal(data, &definitions); err != nil {
		return nil, "", errors.Wrapf(err, "could not parse rules file '%s'", b.path)
	}

	return definitions, version, nil
}

func fileVersion(path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return fmt.Sprintf("%d-%d", stat.ModTime().UnixNano(), stat.Size()), nil
}

// IsAdmin implements acl.ACL.
func (b *Backend) IsAdmin(ctx context.Context, username string) (bool, []string) {
	if username == "" {
		return false, nil
	}

	return b.eval(ctx, KindAdmin, Env{Username: username}), nil
}

// IsModerator implements acl.ACL.
func (b *Backend) IsModerator(ctx context.Context, username string) (bool, []string) {
	if username == "" {
		return false, nil
	}

	return b.eval(ctx, KindModerator, Env{Username: username}), nil
}

// IsClientAllowed implements acl.ACL.
func (b *Backend) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	if username == "" || client == "" {
		return false
	}

	return b.eval(ctx, KindClientAllowed, Env{Username: username, Client: client, Server: server})
}

// IsClientRW implements acl.ACL.
func (b *Backend) IsClientRW(ctx context.Context, username, client, server string) bool {
	if username == "" || client == "" {
		return false
	}

	return b.eval(ctx, KindClientRW, Env{Username: username, Client: client, Server: server})
}

// IsServerAllowed implements acl.ACL.
func (b *Backend) IsServerAllowed(ctx context.Context, username, server string) bool {
	server, ok := b.handler.ServerName(server)
	if username == "" || !ok {
		return false
	}

	return b.eval(ctx, KindServerAllowed, Env{Username: username, Server: server})
}

// IsServerRW implements acl.ACL.
func (b *Backend) IsServerRW(ctx context.Context, username, server string) bool {
	server, ok := b.handler.ServerName(server)
	if username == "" || !ok {
		return false
	}

	return b.eval(ctx, KindServerRW, Env{Username: username, Server: server})
}

func (b *Backend) eval(ctx context.Context, kind Kind, env Env) bool {
	rules := b.rules.Load()
	if rules == nil || len((*rules)[kind]) == 0 {
		return false
	}

	env.Groups = b.handler.MemberGroups(env.Username)

	for _, r := range (*rules)[kind] {
		allowed, err := r.Exec(env)
		if err != nil {
			slog.ErrorContext(ctx, "could not execute rule", slog.String("backend", b.name), slog.String("rule", r.String()), log.Error(err))
			continue
		}

		if allowed {
			return true
		}
	}

	return false
}

func NewBackend(name string, priority int, handler *meta.Handler, definitions []RuleDefinition, path string) *Backend {
	b := &Backend{
		name:        name,
		priority:    priority,
		handler:     handler,
		definitions: definitions,
		path:        path,
	}

	handler.RegisterBackend(name, b)

	return b
}

var (
	_ acl.Backend = &Backend{}
	_ acl.ACL     = &Backend{}
	_ acl.Loaded  = &Backend{}
)
