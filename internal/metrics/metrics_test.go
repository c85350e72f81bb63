package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgawarplanet/roster/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"not found", model.NotFound("player", 1), OutcomeNotFound},
		{"wrapped not found", fmt.Errorf("x: %w", model.ErrNotFound), OutcomeNotFound},
		{"store", model.StoreFailure("insert", errors.New("disk")), OutcomeStore},
		{"drift", fmt.Errorf("faction 9: %w", model.ErrCacheDrift), OutcomeDrift},
		{"other", errors.New("bad input"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestObserveOp(t *testing.T) {
	m := New()
	m.ObserveOp("add_player", nil)
	m.ObserveOp("add_player", nil)
	m.ObserveOp("find_player", model.NotFound("player", 3))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("add_player", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("find_player", OutcomeNotFound)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOp("x", nil)
		m.TenantOpened(true)
		m.SnapshotFile("imported")
		m.PlayersImported(3)
	})
	assert.Nil(t, m.Registry())
	samples, err := m.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, samples)
}

func TestSnapshot(t *testing.T) {
	m := New()
	m.TenantOpened(true)
	m.PlayersImported(4)

	samples, err := m.Snapshot()
	require.NoError(t, err)

	byName := map[string]Sample{}
	for _, s := range samples {
		byName[s.Name] = s
	}
	assert.Equal(t, 4.0, byName["roster_snapshot_players_imported_total"].Value)
	assert.Equal(t, map[string]string{"created": "true"}, byName["roster_tenants_opened_total"].Labels)
}
