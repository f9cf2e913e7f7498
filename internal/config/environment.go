package config

import (
	"os"
	"strconv"
	"time"

	"github.com/drone/envsubst"
	"github.com/pkg/errors"

	"github.com/goccy/go-yaml"
)

var getEnv = os.Getenv

// interpolate decodes a scalar, expands its ${VAR} references and parses the
// result.
func interpolate[T any](unmarshal func(any) error, parse func(string) (T, error)) (T, error) {
	var (
		zero T
		raw  string
	)

	if err := unmarshal(&raw); err != nil {
		return zero, errors.WithStack(err)
	}

	expanded, err := envsubst.Eval(raw, getEnv)
	if err != nil {
		return zero, errors.Wrapf(err, "could not expand '%s'", raw)
	}

	value, err := parse(expanded)
	if err != nil {
		return zero, errors.Wrapf(err, "could not parse '%s'", expanded)
	}

	return value, nil
}

type InterpolatedString string

// UnmarshalYAML implements yaml.InterfaceUnmarshaler.
func (is *InterpolatedString) UnmarshalYAML(unmarshal func(any) error) error {
	str, err := interpolate(unmarshal, func(s string) (string, error) { return s, nil })
	if err != nil {
		return err
	}

	*is = InterpolatedString(str)

	return nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedString)

type InterpolatedInt int

func (ii *InterpolatedInt) UnmarshalYAML(unmarshal func(any) error) error {
	value, err := interpolate(unmarshal, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 32)
	})
	if err != nil {
		return err
	}

	*ii = InterpolatedInt(value)

	return nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedInt)

type InterpolatedFloat float64

func (ifl *InterpolatedFloat) UnmarshalYAML(unmarshal func(any) error) error {
	value, err := interpolate(unmarshal, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
	if err != nil {
		return err
	}

	*ifl = InterpolatedFloat(value)

	return nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedFloat)

// InterpolatedBool accepts the values understood by strconv.ParseBool. An
// empty value is false.
type InterpolatedBool bool

func (ib *InterpolatedBool) UnmarshalYAML(unmarshal func(any) error) error {
	value, err := interpolate(unmarshal, func(s string) (bool, error) {
		if s == "" {
			return false, nil
		}

		return strconv.ParseBool(s)
	})
	if err != nil {
		return err
	}

	*ib = InterpolatedBool(value)

	return nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedBool)

// InterpolatedMap holds free-form backend options. Every string found in
// nested maps and lists is expanded, other scalars are kept as decoded.
type InterpolatedMap struct {
	Data map[string]any
}

func (im *InterpolatedMap) UnmarshalYAML(unmarshal func(any) error) error {
	var data map[string]any

	if err := unmarshal(&data); err != nil {
		return errors.WithStack(err)
	}

	expanded, err := expandTree(data)
	if err != nil {
		return errors.WithStack(err)
	}

	if expanded == nil {
		im.Data = map[string]any{}
		return nil
	}

	im.Data = expanded.(map[string]any)

	return nil
}

func (im *InterpolatedMap) MarshalYAML() (any, error) {
	return im.Data, nil
}

func expandTree(data any) (any, error) {
	switch typ := data.(type) {
	case map[string]any:
		if typ == nil {
			return nil, nil
		}

		for key, value := range typ {
			expanded, err := expandTree(value)
			if err != nil {
				return nil, errors.Wrapf(err, "key '%s'", key)
			}

			typ[key] = expanded
		}

	case []any:
		for idx, value := range typ {
			expanded, err := expandTree(value)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", idx)
			}

			typ[idx] = expanded
		}

	case string:
		return envsubst.Eval(typ, getEnv)
	}

	return data, nil
}

type InterpolatedStringSlice []string

func (iss *InterpolatedStringSlice) UnmarshalYAML(unmarshal func(any) error) error {
	var data []string

	if err := unmarshal(&data); err != nil {
		return errors.WithStack(err)
	}

	for index, value := range data {
		expanded, err := envsubst.Eval(value, getEnv)
		if err != nil {
			return errors.WithStack(err)
		}

		data[index] = expanded
	}

	*iss = data

	return nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedStringSlice)

// InterpolatedDuration accepts Go durations ("30s") or a number of
// nanoseconds.
type InterpolatedDuration time.Duration

func (id *InterpolatedDuration) UnmarshalYAML(unmarshal func(any) error) error {
	duration, err := interpolate(unmarshal, parseDuration)
	if err != nil {
		return err
	}

	*id = InterpolatedDuration(duration)

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if duration, err := time.ParseDuration(s); err == nil {
		return duration, nil
	}

	nanoseconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return time.Duration(nanoseconds), nil
}

var _ yaml.InterfaceUnmarshaler = new(InterpolatedDuration)

func (id *InterpolatedDuration) MarshalYAML() (any, error) {
	return time.Duration(*id).String(), nil
}

var _ yaml.InterfaceMarshaler = new(InterpolatedDuration)

func NewInterpolatedDuration(d time.Duration) *InterpolatedDuration {
	id := InterpolatedDuration(d)
	return &id
}
