package roster

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
)

// openTestTenant opens a fresh tenant store in a temp directory.
func openTestTenant(t *testing.T, id uint64, opts ...Option) *Tenant {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("%d.db", id))
	tn, err := Open(context.Background(), model.Tenant{ID: id, Name: fmt.Sprintf("Guild%d", id)}, path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { tn.Close() })
	return tn
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New()
}

func countLinks(t *testing.T, tn *Tenant, playerID int64) int {
	t.Helper()
	var n int
	require.NoError(t, tn.Store().DB().QueryRow(
		`SELECT COUNT(*) FROM base_faction WHERE base_id = ?`, playerID,
	).Scan(&n))
	return n
}
