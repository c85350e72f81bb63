package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// legacyDDL is the layout the legacy bot wrote, before user_version existed.
var legacyDDL = []string{
	`CREATE TABLE user(id INTEGER PRIMARY KEY, name TEXT, discord_id INT)`,
	`INSERT INTO user(name, discord_id) VALUES('DefaultUser', 0)`,
	`CREATE TABLE base(id INTEGER PRIMARY KEY, user_id INT, name TEXT, game_id TEXT, is_farm INT, FOREIGN KEY(user_id) REFERENCES user(id))`,
	`CREATE TABLE faction(id INTEGER PRIMARY KEY, name TEXT)`,
	`INSERT INTO faction(name) VALUES('Unknown')`,
	`CREATE TABLE base_faction(id INTEGER PRIMARY KEY, base_id INT, faction_id INT, FOREIGN KEY(base_id) REFERENCES base(id), FOREIGN KEY(faction_id) REFERENCES faction(id))`,
}

// createLegacyDatabase writes a v0 database file at path with the given
// extra statements applied after the legacy DDL.
func createLegacyDatabase(t *testing.T, path string, extra ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range append(legacyDDL, extra...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(query, args...).Scan(&n))
	return n
}
