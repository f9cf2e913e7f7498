package inifile

import (
	"bytes"
	"context"
	"sync"

	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Blob stores a whole INI document.
type Blob interface {
	// Read returns the document and its version. A missing document is
	// returned empty, without error.
	Read(ctx context.Context) ([]byte, string, error)
	Write(ctx context.Context, data []byte) error
	// Version identifies the current revision of the document.
	Version(ctx context.Context) (string, error)
}

// Source reads and writes the entries of one section of an INI document.
// Other sections are preserved on write.
type Source struct {
	blob    Blob
	section string

	mutex       sync.Mutex
	lastVersion string
}

// Entries implements loader.Source.
func (s *Source) Entries(ctx context.Context) ([]loader.Entry, error) {
	file, version, err := s.load(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.mutex.Lock()
	s.lastVersion = version
	s.mutex.Unlock()

	section, err := file.GetSection(s.section)
	if err != nil {
		return []loader.Entry{}, nil
	}

	keys := section.Keys()
	entries := make([]loader.Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, loader.Entry{
			Key:   k.Name(),
			Value: k.Value(),
		})
	}

	return entries, nil
}

// Changed implements loader.Source.
func (s *Source) Changed(ctx context.Context) (bool, error) {
	version, err := s.blob.Version(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return version != s.lastVersion, nil
}

// Put implements loader.WritableSource.
func (s *Source) Put(ctx context.Context, key string, value string) error {
	return s.update(ctx, func(section *ini.Section) error {
		if section.HasKey(key) {
			section.Key(key).SetValue(value)
			return nil
		}

		if _, err := section.NewKey(key, value); err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
}

// Delete implements loader.WritableSource.
func (s *Source) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(section *ini.Section) error {
		section.DeleteKey(key)
		return nil
	})
}

func (s *Source) update(ctx context.Context, fn func(section *ini.Section) error) error {
	file, _, err := s.load(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	section := file.Section(s.section)

	if err := fn(section); err != nil {
		return errors.WithStack(err)
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return errors.WithStack(err)
	}

	if err := s.blob.Write(ctx, buf.Bytes()); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *Source) load(ctx context.Context) (*ini.File, string, error) {
	data, version, err := s.blob.Read(ctx)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
	}, data)
	if err != nil {
		return nil, "", errors.Wrap(err, "could not parse ini document")
	}

	return file, version, nil
}

func NewSource(blob Blob, section string) *Source {
	return &Source{
		blob:    blob,
		section: section,
	}
}

var _ loader.WritableSource = &Source{}
