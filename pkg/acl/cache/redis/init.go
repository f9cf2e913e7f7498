package redis

import (
	"time"

	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const Type cache.Type = "redis"

func init() {
	cache.Register(Type, CreateStoreFromOptions)
}

type Options struct {
	URL    string        `mapstructure:"url" yaml:"url"`
	Prefix string        `mapstructure:"prefix" yaml:"prefix"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

func CreateStoreFromOptions(options any) (cache.Store, error) {
	opts := Options{
		URL:    "redis://localhost:6379/0",
		Prefix: DefaultPrefix,
		TTL:    time.Hour,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc()),
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not create '%s' cache options decoder", Type)
	}

	if err := decoder.Decode(options); err != nil {
		return nil, errors.Wrapf(err, "could not parse '%s' cache options", Type)
	}

	redisOptions, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse '%s' cache url", Type)
	}

	return NewStore(redis.NewClient(redisOptions), opts.Prefix, opts.TTL), nil
}
