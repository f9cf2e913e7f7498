package memory

import (
	"context"
	"strconv"

	"github.com/bornholm/burpacl/pkg/acl/grant"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const DefaultSize = 1024

type Store struct {
	entries *lru.Cache[string, *grant.Resolved]
}

// Get implements cache.Store.
func (s *Store) Get(ctx context.Context, version uint64, username string) (*grant.Resolved, bool, error) {
	resolved, exists := s.entries.Get(key(version, username))
	return resolved, exists, nil
}

// Set implements cache.Store.
func (s *Store) Set(ctx context.Context, version uint64, username string, resolved *grant.Resolved) error {
	s.entries.Add(key(version, username), resolved)
	return nil
}

// Clear implements cache.Store.
func (s *Store) Clear(ctx context.Context) error {
	s.entries.Purge()
	return nil
}

func (s *Store) Len() int {
	return s.entries.Len()
}

func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}

	entries, err := lru.New[string, *grant.Resolved](size)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Store{entries: entries}, nil
}

func key(version uint64, username string) string {
	return strconv.FormatUint(version, 10) + ":" + username
}
