package loader

import (
	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// DecodeOptions decodes the raw options of a backend into result.
func DecodeOptions(backendType acl.Type, options any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc()),
		Result:           result,
	})
	if err != nil {
		return errors.Wrapf(err, "could not create '%s' backend options decoder", backendType)
	}

	if err := decoder.Decode(options); err != nil {
		return errors.Wrapf(err, "could not parse '%s' backend options", backendType)
	}

	return nil
}
