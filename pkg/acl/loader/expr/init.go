package expr

import (
	"context"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

const Type acl.Type = "expr"

func init() {
	acl.Register(Type, CreateBackendFromOptions)
}

type Options struct {
	Rules    []RuleDefinition `mapstructure:"rules" yaml:"rules"`
	Path     string           `mapstructure:"path" yaml:"path"`
	Priority int              `mapstructure:"priority" yaml:"priority"`
}

func CreateBackendFromOptions(ctx context.Context, name string, handler *meta.Handler, options any) (acl.Backend, error) {
	opts := Options{
		Priority: 50,
	}

	if err := loader.DecodeOptions(Type, options, &opts); err != nil {
		return nil, errors.WithStack(err)
	}

	backend := NewBackend(name, opts.Priority, handler, opts.Rules, opts.Path)

	if err := backend.Reload(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return backend, nil
}
