package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store persists ACL entries in a SQLite database.
type Store struct {
	pool *sqlitemigration.Pool
}

var schema = sqlitemigration.Schema{
	Migrations: flatten(
		entryMigrations,
		revisionMigrations,
	),
	RepeatableMigration: strings.Join(
		flatten(
			repeatableRevisionMigrations,
		), " ",
	),
}

func (s *Store) HealthCheck(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	defer s.pool.Put(conn)

	if err := s.pool.CheckHealth(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *Store) Do(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	defer s.pool.Put(conn)

	if err := fn(conn); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *Store) Tx(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	return errors.WithStack(s.Do(ctx, func(conn *sqlite.Conn) (err error) {
		defer sqlitex.Save(conn)(&err)
		err = fn(conn)
		return errors.WithStack(err)
	}))
}

func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func NewStore(uri string) *Store {
	pool := sqlitemigration.NewPool(uri, schema, sqlitemigration.Options{
		Flags: sqlite.OpenCreate | sqlite.OpenReadWrite | sqlite.OpenWAL,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 5000", nil)
		},
	})

	return &Store{
		pool: pool,
	}
}

func flatten[T any](slices ...[]T) []T {
	flattened := make([]T, 0)
	for _, s := range slices {
		flattened = append(flattened, s...)
	}
	return flattened
}
