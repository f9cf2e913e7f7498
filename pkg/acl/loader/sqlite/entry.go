package sqlite

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/pkg/errors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var entryMigrations = []string{
	`CREATE TABLE IF NOT EXISTS acl_entries (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(name)
	);`,
}

var revisionMigrations = []string{
	`CREATE TABLE IF NOT EXISTS acl_revision (
		id INTEGER PRIMARY KEY,
		revision INTEGER NOT NULL
	);`,
}

var repeatableRevisionMigrations = []string{
	`INSERT OR IGNORE INTO acl_revision (id, revision) VALUES (0, 0);`,
}

// Source exposes the entries of a Store to a loader. Every write bumps the
// store revision, which is how changes made by other processes are detected.
type Source struct {
	store        *Store
	lastRevision atomic.Int64
}

// Entries implements loader.Source.
func (s *Source) Entries(ctx context.Context) ([]loader.Entry, error) {
	entries := make([]loader.Entry, 0)
	var revision int64

	err := s.store.Tx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "SELECT name, value FROM acl_entries ORDER BY id", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, loader.Entry{
					Key:   stmt.ColumnText(0),
					Value: stmt.ColumnText(1),
				})
				return nil
			},
		})
		if err != nil {
			return errors.WithStack(err)
		}

		revision, err = readRevision(conn)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.lastRevision.Store(revision)

	return entries, nil
}

// Changed implements loader.Source.
func (s *Source) Changed(ctx context.Context) (bool, error) {
	var revision int64

	err := s.store.Do(ctx, func(conn *sqlite.Conn) (err error) {
		revision, err = readRevision(conn)
		return errors.WithStack(err)
	})
	if err != nil {
		return false, errors.WithStack(err)
	}

	return revision != s.lastRevision.Load(), nil
}

// Put implements loader.WritableSource.
func (s *Source) Put(ctx context.Context, key string, value string) error {
	return s.store.Tx(ctx, func(conn *sqlite.Conn) error {
		now := time.Now().UTC().Unix()

		query := `
			INSERT INTO acl_entries (name, value, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`
		err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{key, value, now, now},
		})
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(bumpRevision(conn))
	})
}

// Delete implements loader.WritableSource.
func (s *Source) Delete(ctx context.Context, key string) error {
	return s.store.Tx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM acl_entries WHERE name = ?", &sqlitex.ExecOptions{
			Args: []any{key},
		})
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(bumpRevision(conn))
	})
}

func readRevision(conn *sqlite.Conn) (int64, error) {
	var revision int64

	err := sqlitex.Execute(conn, "SELECT revision FROM acl_revision WHERE id = 0", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			revision = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return revision, nil
}

func bumpRevision(conn *sqlite.Conn) error {
	err := sqlitex.Execute(conn, "UPDATE acl_revision SET revision = revision + 1 WHERE id = 0", nil)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func NewSource(store *Store) *Source {
	s := &Source{store: store}
	s.lastRevision.Store(-1)
	return s
}

var _ loader.WritableSource = &Source{}
