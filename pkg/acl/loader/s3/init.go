package s3

import (
	"context"
	"log/slog"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/loader/inifile"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const (
	Type           acl.Type = "s3"
	DefaultSection          = "BASIC:ACL"
)

func init() {
	acl.Register(Type, CreateBackendFromOptions)
}

type Options struct {
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey    string `mapstructure:"accessKey" yaml:"accessKey"`
	SecretKey    string `mapstructure:"secretKey" yaml:"secretKey"`
	Region       string `mapstructure:"region" yaml:"region"`
	Secure       bool   `mapstructure:"secure" yaml:"secure"`
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Object       string `mapstructure:"object" yaml:"object"`
	CreateBucket bool   `mapstructure:"createBucket" yaml:"createBucket"`
	Section      string `mapstructure:"section" yaml:"section"`
	Priority     int    `mapstructure:"priority" yaml:"priority"`
}

func CreateBackendFromOptions(ctx context.Context, name string, handler *meta.Handler, options any) (acl.Backend, error) {
	opts := Options{
		Object:   "burpui.cfg",
		Section:  DefaultSection,
		Priority: 100,
		Secure:   true,
	}

	if err := loader.DecodeOptions(Type, options, &opts); err != nil {
		return nil, errors.WithStack(err)
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not create '%s' backend client", Type)
	}

	if opts.CreateBucket {
		exists, err := client.BucketExists(ctx, opts.Bucket)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		if !exists {
			slog.InfoContext(ctx, "creating acl bucket", slog.String("bucket", opts.Bucket))

			if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
				return nil, errors.WithStack(err)
			}
		}
	}

	source := inifile.NewSource(NewBlob(client, opts.Bucket, opts.Object), opts.Section)
	backend := loader.New(name, opts.Priority, handler, source)

	if err := backend.Reload(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return backend, nil
}
