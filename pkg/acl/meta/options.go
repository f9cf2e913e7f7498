package meta

import (
	"github.com/bornholm/burpacl/pkg/acl/cache"
)

// Options tunes how grants are matched and interpreted.
type Options struct {
	// Extended enables shell-style globs in client and agent names.
	Extended bool
	// Legacy restores exact name matching and read-write access for every
	// allowed client or server. It implies Extended = false.
	Legacy bool
	// AssumeRW grants read-write access when no ro/rw scope decides.
	AssumeRW bool
	// ImplicitLink allows users to access the client bearing their own name.
	ImplicitLink bool
	// Standalone maps an empty server name to LocalServer.
	Standalone bool
}

// LocalServer names the single server of standalone deployments.
const LocalServer = "local"

func DefaultOptions() Options {
	return Options{
		Extended:     true,
		Legacy:       false,
		AssumeRW:     true,
		ImplicitLink: true,
		Standalone:   false,
	}
}

func (o Options) normalize() Options {
	if o.Legacy {
		o.Extended = false
	}

	return o
}

type HandlerOptions struct {
	Options Options
	Cache   cache.Store
}

type HandlerOptionFunc func(opts *HandlerOptions)

func NewHandlerOptions(funcs ...HandlerOptionFunc) *HandlerOptions {
	opts := &HandlerOptions{
		Options: DefaultOptions(),
	}

	for _, fn := range funcs {
		fn(opts)
	}

	opts.Options = opts.Options.normalize()

	return opts
}

func WithOptions(options Options) HandlerOptionFunc {
	return func(opts *HandlerOptions) {
		opts.Options = options
	}
}

func WithCache(store cache.Store) HandlerOptionFunc {
	return func(opts *HandlerOptions) {
		opts.Cache = store
	}
}
