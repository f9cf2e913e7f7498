package inifile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileBlob is a Blob stored on the local filesystem. Its version derives from
// the file's modification time and size.
type FileBlob struct {
	path string
}

// Read implements Blob.
func (b *FileBlob) Read(ctx context.Context) ([]byte, string, error) {
	version, err := b.Version(ctx)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte{}, "", nil
		}

		return nil, "", errors.WithStack(err)
	}

	return data, version, nil
}

// Write implements Blob.
func (b *FileBlob) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*")
	if err != nil {
		return errors.WithStack(err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WithStack(err)
	}

	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Version implements Blob.
func (b *FileBlob) Version(ctx context.Context) (string, error) {
	stat, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", errors.WithStack(err)
	}

	return fmt.Sprintf("%d-%d", stat.ModTime().UnixNano(), stat.Size()), nil
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

var _ Blob = &FileBlob{}
