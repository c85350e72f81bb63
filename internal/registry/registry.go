// Package registry maps tenant ids to open tenants for the life of the
// process.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
	"github.com/tgawarplanet/roster/internal/snapshot"
	"github.com/tgawarplanet/roster/internal/store"
)

// ErrUnavailable marks a tenant whose store failed to open earlier in this
// process. It is not retried until restart.
var ErrUnavailable = errors.New("tenant unavailable")

// Directory is the tenant lookup surface handed to callers.
type Directory interface {
	// Get returns an already opened tenant.
	Get(id uint64) (*roster.Tenant, bool)
	// Open opens the existing store of a tenant and caches the handle.
	Open(ctx context.Context, info model.Tenant) (*roster.Tenant, error)
	// Create records a new tenant, creates its store and caches the handle.
	Create(ctx context.Context, info model.Tenant) (*roster.Tenant, error)
}

// Registry is the Directory backed by a data directory holding one
// <id>.db store and one <id>.json snapshot per tenant.
//
// Thread-safety: all methods are safe for concurrent use. GetTenant holds
// the registry lock while opening a store, so two callers resolving the
// same new tenant never both create it.
type Registry struct {
	migrator *snapshot.Migrator
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	tenants map[uint64]*roster.Tenant
	failed  map[uint64]error
	closed  bool
}

var _ Directory = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics attaches counters. Nil disables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New returns an empty registry over dir.
func New(dir string, opts ...Option) *Registry {
	r := &Registry{
		log:     slog.Default(),
		tenants: make(map[uint64]*roster.Tenant),
		failed:  make(map[uint64]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.migrator = snapshot.NewMigrator(dir,
		snapshot.WithLogger(r.log),
		snapshot.WithMetrics(r.metrics),
		snapshot.WithTenantOptions(roster.WithLogger(r.log), roster.WithMetrics(r.metrics)),
	)
	return r
}

// Migrator returns the snapshot migrator bound to the data directory.
func (r *Registry) Migrator() *snapshot.Migrator {
	return r.migrator
}

// Bootstrap imports every snapshot in the data directory. Tenants already
// registered are skipped. Tenants whose import fails, or whose <id> snapshot
// cannot be decoded, are marked unavailable so GetTenant does not create an
// empty store in their place.
func (r *Registry) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("bootstrap: registry closed")
	}

	entries, err := r.migrator.Scan(ctx, func(id uint64) bool {
		_, ok := r.tenants[id]
		return ok
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Err != nil {
			r.failed[e.Info.ID] = e.Err
			continue
		}
		r.tenants[e.Info.ID] = e.Tenant
	}
	r.log.Info("registry bootstrapped", "tenants", len(r.tenants), "failed", len(r.failed))
	return nil
}

// GetTenant returns the tenant with id, opening or creating it on first
// use. name is only used when the tenant is created. Repeated calls return
// the same handle.
func (r *Registry) GetTenant(ctx context.Context, id uint64, name string) (*roster.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tenants[id]; ok {
		return t, nil
	}

	info := model.Tenant{ID: id, Name: name}
	if store.Exists(r.migrator.StorePath(id)) {
		return r.openLocked(ctx, info)
	}
	return r.createLocked(ctx, info)
}

// Get returns an already opened tenant.
func (r *Registry) Get(id uint64) (*roster.Tenant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	return t, ok
}

// Open opens the existing store of info and loads its faction cache. It
// fails with model.ErrNotFound when the tenant has no store.
func (r *Registry) Open(ctx context.Context, info model.Tenant) (*roster.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tenants[info.ID]; ok {
		return t, nil
	}
	if !store.Exists(r.migrator.StorePath(info.ID)) {
		return nil, model.NotFound("tenant", info.ID)
	}
	return r.openLocked(ctx, info)
}

// Create writes the tenant metadata snapshot, creates the store and caches
// the handle. Creating a tenant that is already open returns it unchanged.
func (r *Registry) Create(ctx context.Context, info model.Tenant) (*roster.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tenants[info.ID]; ok {
		return t, nil
	}
	return r.createLocked(ctx, info)
}

func (r *Registry) openLocked(ctx context.Context, info model.Tenant) (*roster.Tenant, error) {
	if err := r.usableLocked(info.ID); err != nil {
		return nil, err
	}

	t, err := roster.Open(ctx, info, r.migrator.StorePath(info.ID),
		roster.WithLogger(r.log), roster.WithMetrics(r.metrics))
	if err != nil {
		return nil, r.failLocked(info.ID, err)
	}
	r.tenants[info.ID] = t
	return t, nil
}

func (r *Registry) createLocked(ctx context.Context, info model.Tenant) (*roster.Tenant, error) {
	if err := r.usableLocked(info.ID); err != nil {
		return nil, err
	}

	if err := r.migrator.WriteMetadata(info); err != nil {
		return nil, r.failLocked(info.ID, err)
	}
	t, err := roster.Open(ctx, info, r.migrator.StorePath(info.ID),
		roster.WithLogger(r.log), roster.WithMetrics(r.metrics))
	if err != nil {
		return nil, r.failLocked(info.ID, err)
	}
	r.tenants[info.ID] = t
	r.log.Info("tenant created", "tenant", info.ID, "name", info.Name)
	return t, nil
}

func (r *Registry) usableLocked(id uint64) error {
	if r.closed {
		return fmt.Errorf("tenant %d: registry closed", id)
	}
	if cause, ok := r.failed[id]; ok {
		return fmt.Errorf("tenant %d: %w: %w", id, ErrUnavailable, cause)
	}
	return nil
}

func (r *Registry) failLocked(id uint64, err error) error {
	r.failed[id] = err
	r.log.Error("tenant unavailable", "tenant", id, "error", err)
	return fmt.Errorf("tenant %d: %w", id, err)
}

// Tenants lists the open tenants ordered by id.
func (r *Registry) Tenants() []model.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t.Info())
	}
	slices.SortFunc(out, func(a, b model.Tenant) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Close closes every open store. The registry cannot be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, t := range r.tenants {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant %d: %w", id, err))
		}
	}
	clear(r.tenants)
	r.closed = true
	return errors.Join(errs...)
}
