package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tgawarplanet/roster/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Legacy layout (user.discord_id, no index)
// 1 - user.discord_id renamed to user.external_id
// 2 - Added index on base_faction(base_id, faction_id)
const currentSchemaVersion = 2

// Store is one tenant's SQLite database.
type Store struct {
	db      *sql.DB
	path    string
	created bool
}

// Exists reports whether a store file is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the database file at path together with its WAL and
// shared-memory side files. Missing files are ignored.
func Remove(path string) error {
	return removeDatabaseFiles(path)
}

// Open creates or opens a SQLite database at the given path and makes sure
// the roster schema is present.
//
// When the file is new, the reserved DefaultUser and Unknown rows are seeded
// in the same transaction as the DDL. If initialization of a new file fails
// the file is removed again, so a failed Open never leaves a half-built store
// behind.
//
// This function is idempotent - safe to call multiple times.
func Open(ctx context.Context, path string) (*Store, error) {
	existed := Exists(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, model.StoreFailure("open database", err)
	}

	s := &Store{db: db, path: path}
	if err := s.init(ctx); err != nil {
		db.Close()
		if !existed {
			_ = removeDatabaseFiles(path)
		}
		return nil, err
	}

	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return model.StoreFailure("connect to database", err)
	}

	// SQLite only supports one writer at a time
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, s.db); err != nil {
		return model.StoreFailure("apply pragmas", err)
	}

	created, err := s.EnsureSchema(ctx)
	if err != nil {
		return err
	}
	s.created = created
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Created reports whether Open built the schema from scratch.
func (s *Store) Created() bool {
	return s.created
}

// Queries returns the statement set bound to the database connection.
func (s *Store) Queries() *Queries {
	return &Queries{q: s.db}
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on every other exit, including panics.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StoreFailure("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Queries{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return model.StoreFailure("commit tx", err)
	}
	return nil
}

// EnsureSchema creates the four roster tables if absent and upgrades older
// layouts. The reserved rows are inserted only when the tables did not exist
// yet. Returns whether the schema was created by this call.
func (s *Store) EnsureSchema(ctx context.Context) (created bool, err error) {
	err = s.WithTx(ctx, func(q *Queries) error {
		exists, err := q.hasTable(ctx, "base")
		if err != nil {
			return err
		}

		if _, err := q.q.ExecContext(ctx, schemaSQL); err != nil {
			return model.StoreFailure("execute schema", err)
		}

		if !exists {
			if err := q.seed(ctx); err != nil {
				return err
			}
			created = true
		}

		return q.runMigrations(ctx)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// seed inserts the reserved default user and Unknown faction.
func (q *Queries) seed(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx,
		`INSERT INTO user(id, name, external_id) VALUES (?, ?, 0)`,
		model.DefaultUserID, model.DefaultUserName,
	); err != nil {
		return model.StoreFailure("insert default user", err)
	}
	if _, err := q.q.ExecContext(ctx,
		`INSERT INTO faction(id, name) VALUES (?, ?)`,
		model.UnknownFactionID, model.UnknownFactionName,
	); err != nil {
		return model.StoreFailure("insert unknown faction", err)
	}
	return nil
}

// runMigrations applies incremental layout migrations based on user_version.
func (q *Queries) runMigrations(ctx context.Context) error {
	var version int
	if err := q.q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return model.StoreFailure("get user_version", err)
	}

	if version < 1 {
		if err := q.migrateToV1(ctx); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := q.migrateToV2(ctx); err != nil {
			return err
		}
	}

	if version != currentSchemaVersion {
		if _, err := q.q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return model.StoreFailure("set user_version", err)
		}
	}
	return nil
}

// migrateToV1 renames the legacy user.discord_id column. CREATE TABLE IF NOT
// EXISTS leaves an existing legacy table untouched, so the column is still
// present on files written by the old bot.
func (q *Queries) migrateToV1(ctx context.Context) error {
	hasDiscord, err := q.hasColumn(ctx, "user", "discord_id")
	if err != nil {
		return err
	}
	if !hasDiscord {
		return nil
	}
	if _, err := q.q.ExecContext(ctx, `ALTER TABLE user RENAME COLUMN discord_id TO external_id`); err != nil {
		return model.StoreFailure("migrate to v1", err)
	}
	return nil
}

// migrateToV2 adds the index the current-affiliation query walks.
func (q *Queries) migrateToV2(ctx context.Context) error {
	_, err := q.q.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_base_faction_base
		ON base_faction(base_id, faction_id)
	`)
	if err != nil {
		return model.StoreFailure("migrate to v2", err)
	}
	return nil
}

func (q *Queries) hasTable(ctx context.Context, name string) (bool, error) {
	var count int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		return false, model.StoreFailure("inspect schema", err)
	}
	return count > 0, nil
}

func (q *Queries) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := q.q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return false, model.StoreFailure("inspect table", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, model.StoreFailure("scan table info", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, model.StoreFailure("iterate table info", err)
	}
	return false, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// removeDatabaseFiles deletes a database file and its WAL companions.
func removeDatabaseFiles(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
