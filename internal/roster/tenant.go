package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/store"
)

// Tenant is an opened tenant: metadata, store handle and faction cache.
//
// Thread-safety: all methods are safe for concurrent use; operations on one
// tenant run one at a time.
type Tenant struct {
	info  model.Tenant
	store *store.Store

	mu       sync.Mutex
	factions []model.Faction
	byName   map[string]int // first faction with that name
	byID     map[int64]int

	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Tenant.
type Option func(*Tenant)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tenant) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics attaches counters. Nil disables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tenant) { t.metrics = m }
}

// Open opens (creating when absent) the store at path for info and fills
// the faction cache from the faction table.
func Open(ctx context.Context, info model.Tenant, path string, opts ...Option) (*Tenant, error) {
	return openWith(ctx, info, path, (*Tenant).ReloadFactions, opts...)
}

// openWith is Open with the cache load step injected. A store created here
// is removed again when load fails.
func openWith(ctx context.Context, info model.Tenant, path string, load func(*Tenant, context.Context) error, opts ...Option) (*Tenant, error) {
	st, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open tenant %d: %w", info.ID, err)
	}

	t := New(info, st, opts...)
	if err := load(t, ctx); err != nil {
		st.Close()
		if st.Created() {
			if rmErr := store.Remove(path); rmErr != nil {
				t.log.Warn("failed to remove new store", "path", path, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("open tenant %d: %w", info.ID, err)
	}

	t.metrics.TenantOpened(st.Created())
	t.log.Debug("tenant opened",
		"tenant", info.ID,
		"path", path,
		"created", st.Created(),
		"factions", len(t.factions),
	)
	return t, nil
}

// New wraps an already opened store. The faction cache starts empty; call
// ReloadFactions before use.
func New(info model.Tenant, st *store.Store, opts ...Option) *Tenant {
	t := &Tenant{
		info:   info,
		store:  st,
		byName: make(map[string]int),
		byID:   make(map[int64]int),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("tenant", info.ID)
	return t
}

// Info returns the tenant metadata.
func (t *Tenant) Info() model.Tenant {
	return t.info
}

// Store returns the backing store.
func (t *Tenant) Store() *store.Store {
	return t.store
}

// Created reports whether opening this tenant created its store.
func (t *Tenant) Created() bool {
	return t.store.Created()
}

// Close closes the backing store.
func (t *Tenant) Close() error {
	return t.store.Close()
}

// ReloadFactions replaces the cache with a live scan of the faction table.
func (t *Tenant) ReloadFactions(ctx context.Context) error {
	factions, err := t.store.Queries().ListFactions(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.factions = t.factions[:0]
	clear(t.byName)
	clear(t.byID)
	for _, f := range factions {
		t.cacheFaction(f)
	}
	return nil
}

// cacheFaction appends f to the cache. Callers hold t.mu.
func (t *Tenant) cacheFaction(f model.Faction) {
	t.factions = append(t.factions, f)
	idx := len(t.factions) - 1
	if _, ok := t.byName[f.Name]; !ok {
		t.byName[f.Name] = idx
	}
	t.byID[f.ID] = idx
}

// factionByID resolves a cached faction. Callers hold t.mu.
func (t *Tenant) factionByID(id int64) (model.Faction, error) {
	idx, ok := t.byID[id]
	if !ok {
		return model.Faction{}, fmt.Errorf("faction %d: %w", id, model.ErrCacheDrift)
	}
	return t.factions[idx], nil
}

// observe records the outcome of op and passes err through.
func (t *Tenant) observe(op string, err error) error {
	t.metrics.ObserveOp(op, err)
	if err != nil {
		t.log.Debug("operation failed", "op", op, "error", err)
	}
	return err
}
