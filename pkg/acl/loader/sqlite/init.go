package sqlite

import (
	"context"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

const Type acl.Type = "sqlite"

func init() {
	acl.Register(Type, CreateBackendFromOptions)
}

type Options struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Priority int    `mapstructure:"priority" yaml:"priority"`
}

func CreateBackendFromOptions(ctx context.Context, name string, handler *meta.Handler, options any) (acl.Backend, error) {
	opts := Options{
		Path:     "burpacl.sqlite",
		Priority: 100,
	}

	if err := loader.DecodeOptions(Type, options, &opts); err != nil {
		return nil, errors.WithStack(err)
	}

	store := NewStore(opts.Path)

	if err := store.HealthCheck(ctx); err != nil {
		return nil, errors.Wrapf(err, "could not open '%s' backend database", Type)
	}

	backend := loader.New(name, opts.Priority, handler, NewSource(store))

	if err := backend.Reload(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return backend, nil
}
