package cache

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
)

type Type string

type Factory func(options any) (Store, error)

var (
	ErrNotRegistered = errors.New("not registered")

	mutex     sync.RWMutex
	factories = map[Type]Factory{}
)

func Register(storeType Type, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	factories[storeType] = factory
}

func New(storeType Type, options any) (Store, error) {
	mutex.RLock()
	factory, exists := factories[storeType]
	mutex.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrNotRegistered, "cache store type '%s'", storeType)
	}

	store, err := factory(options)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return store, nil
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
