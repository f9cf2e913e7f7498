package acl

import (
	"context"
	"slices"
	"sync"

	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

type Type string

// TypeNone disables ACL backends altogether.
const TypeNone Type = "none"

// Factory creates a backend named name, registering its grants into
// handler.
type Factory func(ctx context.Context, name string, handler *meta.Handler, options any) (Backend, error)

var (
	mutex     sync.RWMutex
	factories = map[Type]Factory{}
)

func Register(backendType Type, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	factories[backendType] = factory
}

// New creates a backend of the given type. An empty name defaults to the
// type.
func New(ctx context.Context, backendType Type, name string, handler *meta.Handler, options any) (Backend, error) {
	mutex.RLock()
	factory, exists := factories[backendType]
	mutex.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrUnknownBackend, "backend type '%s'", backendType)
	}

	if name == "" {
		name = string(backendType)
	}

	if handler.HasBackend(name) {
		return nil, errors.Wrapf(ErrAlreadyExists, "backend '%s'", name)
	}

	backend, err := factory(ctx, name, handler, options)
	if err != nil {
		handler.UnregisterBackend(name)
		return nil, errors.WithStack(err)
	}

	return backend, nil
}

func Registered() []Type {
	mutex.RLock()
	defer mutex.RUnlock()

	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}
