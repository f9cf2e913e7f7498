package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "burpacl:grants:"
	scanCount     = 100
)

// Store shares resolved grants between processes through redis.
// Entries are CBOR encoded and stored under <prefix><version>:<username>.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Get implements cache.Store.
func (s *Store) Get(ctx context.Context, version uint64, username string) (*grant.Resolved, bool, error) {
	data, err := s.client.Get(ctx, s.key(version, username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, errors.WithStack(err)
	}

	resolved := &grant.Resolved{}
	if err := cbor.Unmarshal(data, resolved); err != nil {
		return nil, false, errors.Wrapf(err, "could not decode cached grants of '%s'", username)
	}

	return resolved, true, nil
}

// Set implements cache.Store.
func (s *Store) Set(ctx context.Context, version uint64, username string, resolved *grant.Resolved) error {
	data, err := cbor.Marshal(resolved)
	if err != nil {
		return errors.Wrapf(err, "could not encode grants of '%s'", username)
	}

	if err := s.client.Set(ctx, s.key(version, username), data, s.ttl).Err(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Clear implements cache.Store.
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return errors.WithStack(err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return errors.WithStack(err)
			}
		}

		if next == 0 {
			return nil
		}

		cursor = next
	}
}

func (s *Store) Close() error {
	return errors.WithStack(s.client.Close())
}

func (s *Store) key(version uint64, username string) string {
	return s.prefix + strconv.FormatUint(version, 10) + ":" + username
}

func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}
