package memory

import (
	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

const Type cache.Type = "memory"

func init() {
	cache.Register(Type, CreateStoreFromOptions)
}

type Options struct {
	Size int `mapstructure:"size" yaml:"size"`
}

func CreateStoreFromOptions(options any) (cache.Store, error) {
	opts := Options{
		Size: DefaultSize,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not create '%s' cache options decoder", Type)
	}

	if err := decoder.Decode(options); err != nil {
		return nil, errors.Wrapf(err, "could not parse '%s' cache options", Type)
	}

	store, err := NewStore(opts.Size)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return store, nil
}
