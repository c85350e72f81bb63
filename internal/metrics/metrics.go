// Package metrics holds the roster's Prometheus counters.
//
// Every method is safe on a nil *Metrics so callers can run without
// instrumentation.
package metrics

import (
	"errors"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tgawarplanet/roster/internal/model"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeStore    = "store_failure"
	OutcomeDrift    = "cache_drift"
	OutcomeError    = "error"
)

// Metrics groups the counters exported by the roster.
type Metrics struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	tenantsOpened   *prometheus.CounterVec
	snapshotImports *prometheus.CounterVec
	importedPlayers prometheus.Counter
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "operations_total",
			Help:      "Repository operations by name and outcome.",
		}, []string{"op", "outcome"}),
		tenantsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "tenants_opened_total",
			Help:      "Tenant stores opened, split by whether the store was created.",
		}, []string{"created"}),
		snapshotImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "snapshot_files_total",
			Help:      "Snapshot files seen at startup by result.",
		}, []string{"result"}),
		importedPlayers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "snapshot_players_imported_total",
			Help:      "Players imported from legacy snapshots.",
		}),
	}
	m.registry.MustRegister(m.operations, m.tenantsOpened, m.snapshotImports, m.importedPlayers)
	return m
}

// Registry exposes the registry for scraping or dumping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOp counts one repository operation, classifying err.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, Classify(err)).Inc()
}

// TenantOpened counts a tenant store being opened.
func (m *Metrics) TenantOpened(created bool) {
	if m == nil {
		return
	}
	label := "false"
	if created {
		label = "true"
	}
	m.tenantsOpened.WithLabelValues(label).Inc()
}

// SnapshotFile counts one snapshot file with its result
// ("imported", "cache_loaded", "duplicate", "invalid").
func (m *Metrics) SnapshotFile(result string) {
	if m == nil {
		return
	}
	m.snapshotImports.WithLabelValues(result).Inc()
}

// PlayersImported adds n imported players.
func (m *Metrics) PlayersImported(n int) {
	if m == nil {
		return
	}
	m.importedPlayers.Add(float64(n))
}

// Classify maps an error onto an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case model.IsNotFound(err):
		return OutcomeNotFound
	case errors.Is(err, model.ErrCacheDrift):
		return OutcomeDrift
	case model.IsStoreFailure(err):
		return OutcomeStore
	default:
		return OutcomeError
	}
}

// Sample is one counter value in a Snapshot.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers every counter into a flat, sorted list.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			s := Sample{Name: fam.GetName(), Value: metric.GetCounter().GetValue()}
			if pairs := metric.GetLabel(); len(pairs) > 0 {
				s.Labels = make(map[string]string, len(pairs))
				for _, lp := range pairs {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}
