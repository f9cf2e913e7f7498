package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/bornholm/burpacl/pkg/acl/loader/inifile"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// Blob stores the ACL document as an S3 object. Its version is the object
// ETag.
type Blob struct {
	client *minio.Client
	bucket string
	key    string
}

// Read implements inifile.Blob.
func (b *Blob) Read(ctx context.Context) ([]byte, string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	object, err := b.client.GetObject(ctx, b.bucket, b.key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return []byte{}, "", nil
		}

		return nil, "", errors.WithStack(err)
	}

	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		if isNotFound(err) {
			return []byte{}, "", nil
		}

		return nil, "", errors.WithStack(err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	return data, stat.ETag, nil
}

// Write implements inifile.Blob.
func (b *Blob) Write(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Version implements inifile.Blob.
func (b *Blob) Version(ctx context.Context) (string, error) {
	stat, err := b.client.StatObject(ctx, b.bucket, b.key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}

		return "", errors.WithStack(err)
	}

	return stat.ETag, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

func NewBlob(client *minio.Client, bucket, key string) *Blob {
	return &Blob{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

var _ inifile.Blob = &Blob{}
