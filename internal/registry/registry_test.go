package registry

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
	"github.com/tgawarplanet/roster/internal/snapshot"
	"github.com/tgawarplanet/roster/internal/testutil"
)

func newTestRegistry(t *testing.T, dir string, opts ...Option) *Registry {
	t.Helper()
	r := New(dir, opts...)
	t.Cleanup(func() { r.Close() })
	return r
}

func countRows(t *testing.T, tn *roster.Tenant, table string) int {
	t.Helper()
	var n int
	require.NoError(t, tn.Store().DB().QueryRow(`SELECT COUNT(*) FROM "`+table+`"`).Scan(&n))
	return n
}

func TestGetTenant_CreatesOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	tn, err := r.GetTenant(context.Background(), 100, "Guild100")
	require.NoError(t, err)

	assert.Equal(t, model.Tenant{ID: 100, Name: "Guild100"}, tn.Info())
	assert.True(t, tn.Created())
	assert.True(t, testutil.FileExists(t, filepath.Join(dir, "100.db")))

	doc, err := snapshot.ReadFile(filepath.Join(dir, "100.json"))
	require.NoError(t, err)
	assert.Equal(t, "Guild100", doc.Tenant.Name, "metadata snapshot written")
}

func TestGetTenant_TwiceReturnsSameHandle(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	first, err := r.GetTenant(ctx, 100, "Guild100")
	require.NoError(t, err)
	second, err := r.GetTenant(ctx, 100, "ignored")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, countRows(t, first, "user"))
	assert.Equal(t, 1, countRows(t, first, "faction"))
}

func TestGetTenant_ConcurrentCallersShareHandle(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())

	const callers = 8
	handles := make([]*roster.Tenant, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tn, err := r.GetTenant(context.Background(), 7, "Seven")
			assert.NoError(t, err)
			handles[i] = tn
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, countRows(t, handles[0], "faction"))
}

func TestGetTenant_OpensExistingStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	r1 := New(dir)
	tn, err := r1.GetTenant(ctx, 100, "Guild100")
	require.NoError(t, err)
	_, err = tn.AddFaction(ctx, "Red")
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2 := newTestRegistry(t, dir)
	reopened, err := r2.GetTenant(ctx, 100, "Guild100")
	require.NoError(t, err)

	assert.False(t, reopened.Created())
	_, ok := reopened.FindFaction("Red")
	assert.True(t, ok)
}

func TestOpen_MissingStoreIsNotFound(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())

	_, err := r.Open(context.Background(), model.Tenant{ID: 1, Name: "x"})
	assert.True(t, model.IsNotFound(err))

	_, ok := r.Get(1)
	assert.False(t, ok)
}

func TestCreateThenGet(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())

	created, err := r.Create(context.Background(), model.Tenant{ID: 5, Name: "Five"})
	require.NoError(t, err)

	got, ok := r.Get(5)
	require.True(t, ok)
	assert.Same(t, created, got)

	again, err := r.Create(context.Background(), model.Tenant{ID: 5, Name: "Five"})
	require.NoError(t, err)
	assert.Same(t, created, again)
}

func TestGetTenant_FailureIsSticky(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the data directory should be.
	blocker := testutil.WriteFile(t, dir, "data", "not a directory")
	r := newTestRegistry(t, blocker)

	_, err := r.GetTenant(context.Background(), 9, "Nine")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)

	_, err = r.GetTenant(context.Background(), 9, "Nine")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = r.GetTenant(context.Background(), 10, "Ten")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable, "failure is per tenant")
}

func TestBootstrap_ImportsSnapshots(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "100.json", testutil.LegacySnapshot)
	testutil.WriteFile(t, dir, "200.json", `{"Id": 200, "Name": "Guild200", "Players": []}`)

	mt := metrics.New()
	r := newTestRegistry(t, dir, WithMetrics(mt))
	require.NoError(t, r.Bootstrap(ctx))

	assert.Equal(t, []model.Tenant{
		{ID: 100, Name: "Guild100"},
		{ID: 200, Name: "Guild200"},
	}, r.Tenants())

	tn, err := r.GetTenant(ctx, 100, "ignored")
	require.NoError(t, err)
	players, err := tn.FindPlayers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, players, 2)

	// A second bootstrap finds every tenant registered.
	require.NoError(t, r.Bootstrap(ctx))
	players, err = tn.FindPlayers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestBootstrap_AfterRestartLoadsCacheOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "100.json", testutil.LegacySnapshot)

	r1 := New(dir)
	require.NoError(t, r1.Bootstrap(ctx))
	require.NoError(t, r1.Close())

	r2 := newTestRegistry(t, dir)
	require.NoError(t, r2.Bootstrap(ctx))

	tn, ok := r2.Get(100)
	require.True(t, ok)
	assert.False(t, tn.Created())
	players, err := tn.FindPlayers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestBootstrap_LegacyFileWithInvalidPlayer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "5.json", `{"Id": 5, "Name": "Five", "Players": [
  {"Id": 1, "Name": "", "Faction": "Red"},
  {"Id": 2, "Name": "Ann", "Faction": "Red"},
  {"Id": 3, "Name": "Ben"}
]}`)

	names := func(r *Registry) []string {
		tn, err := r.GetTenant(ctx, 5, "ignored")
		require.NoError(t, err)
		players, err := tn.FindPlayers(ctx, nil)
		require.NoError(t, err)
		var out []string
		for _, p := range players {
			out = append(out, p.Name)
		}
		return out
	}

	r1 := New(dir)
	require.NoError(t, r1.Bootstrap(ctx))
	assert.Equal(t, []string{"Ann", "Ben"}, names(r1))
	require.NoError(t, r1.Close())

	r2 := newTestRegistry(t, dir)
	require.NoError(t, r2.Bootstrap(ctx))
	assert.Equal(t, []string{"Ann", "Ben"}, names(r2), "roster survives a restart")
}

func TestBootstrap_UnreadableSnapshotMarksTenantUnavailable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "7.json", `{"Id": 7, "Name": "Seven", "Players": [`)

	r := newTestRegistry(t, dir)
	require.NoError(t, r.Bootstrap(ctx))

	_, err := r.GetTenant(ctx, 7, "Seven")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, testutil.FileExists(t, filepath.Join(dir, "7.db")), "no empty store over the snapshot")

	tn, err := r.GetTenant(ctx, 8, "Eight")
	require.NoError(t, err, "other tenants are unaffected")
	assert.True(t, tn.Created())
}

func TestBootstrap_CreatedTenantSnapshotIsReadBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	r1 := New(dir)
	_, err := r1.GetTenant(ctx, 300, "Guild300")
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2 := newTestRegistry(t, dir)
	require.NoError(t, r2.Bootstrap(ctx))
	assert.Equal(t, []model.Tenant{{ID: 300, Name: "Guild300"}}, r2.Tenants())
}

func TestClose(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.GetTenant(context.Background(), 1, "One")
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Empty(t, r.Tenants())

	_, err = r.GetTenant(context.Background(), 1, "One")
	assert.Error(t, err)
}
