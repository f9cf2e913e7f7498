package setup

import (
	"context"
	"log/slog"

	"github.com/bornholm/burpacl/internal/config"
	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/pkg/errors"

	_ "github.com/bornholm/burpacl/pkg/acl/cache/all"
)

var NewCacheFromConfig = createFromConfigOnce(func(ctx context.Context, conf *config.Config) (cache.Store, error) {
	var options any
	if conf.Cache.Options != nil {
		options = conf.Cache.Options.Data
	}

	store, err := cache.New(cache.Type(conf.Cache.Type), options)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create '%s' cache", conf.Cache.Type)
	}

	slog.DebugContext(ctx, "using resolved grants cache", slog.String("type", string(conf.Cache.Type)))

	return store, nil
})
