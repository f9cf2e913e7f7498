package basic

import (
	"context"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/loader/inifile"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

const (
	Type           acl.Type = "basic"
	DefaultSection          = "BASIC:ACL"
)

func init() {
	acl.Register(Type, CreateBackendFromOptions)
}

type Options struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Section  string `mapstructure:"section" yaml:"section"`
	Priority int    `mapstructure:"priority" yaml:"priority"`
}

func CreateBackendFromOptions(ctx context.Context, name string, handler *meta.Handler, options any) (acl.Backend, error) {
	opts := Options{
		Path:     "burpui.cfg",
		Section:  DefaultSection,
		Priority: 100,
	}

	if err := loader.DecodeOptions(Type, options, &opts); err != nil {
		return nil, errors.WithStack(err)
	}

	source := inifile.NewSource(inifile.NewFileBlob(opts.Path), opts.Section)
	backend := loader.New(name, opts.Priority, handler, source)

	if err := backend.Reload(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return backend, nil
}
