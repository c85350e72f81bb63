package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// LegacySnapshot is a snapshot in the layout written by the legacy bot:
// tenant 100 "Guild100" with two players, one of them without a faction.
const LegacySnapshot = `{
  "Id": 100,
  "Name": "Guild100",
  "Players": [
    {"Id": 0, "Name": "Bob", "GameId": "B-42", "Faction": "Red"},
    {"Id": 0, "Name": "Alice", "GameId": null}
  ]
}`

// FileExists reports whether path exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, os.ErrNotExist)
	return false
}
