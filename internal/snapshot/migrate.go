package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
	"github.com/tgawarplanet/roster/internal/store"
)

// Snapshot file results reported to metrics.
const (
	ResultImported    = "imported"
	ResultCacheLoaded = "cache_loaded"
	ResultDuplicate   = "duplicate"
	ResultInvalid     = "invalid"
	ResultFailed      = "failed"
)

// Migrator imports snapshot files from a data directory into per-tenant
// stores kept in the same directory.
type Migrator struct {
	dir        string
	log        *slog.Logger
	metrics    *metrics.Metrics
	tenantOpts []roster.Option
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics attaches counters. Nil disables instrumentation.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Migrator) { m.metrics = mt }
}

// WithTenantOptions passes options to every tenant the migrator opens.
func WithTenantOptions(opts ...roster.Option) Option {
	return func(m *Migrator) { m.tenantOpts = append(m.tenantOpts, opts...) }
}

// NewMigrator returns a migrator rooted at dir.
func NewMigrator(dir string, opts ...Option) *Migrator {
	m := &Migrator{dir: dir, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the data directory.
func (m *Migrator) Dir() string {
	return m.dir
}

// StorePath is the SQLite file of a tenant: <dir>/<id>.db.
func (m *Migrator) StorePath(id uint64) string {
	return filepath.Join(m.dir, strconv.FormatUint(id, 10)+".db")
}

// MetadataPath is the snapshot file written for a new tenant: <dir>/<id>.json.
func (m *Migrator) MetadataPath(id uint64) string {
	return filepath.Join(m.dir, strconv.FormatUint(id, 10)+".json")
}

// ReadFile decodes the snapshot at path, choosing the format by extension.
func ReadFile(path string) (*Document, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("read snapshot %s: unknown extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Import reads the snapshot at path and opens its tenant. See
// ImportDocument.
func (m *Migrator) Import(ctx context.Context, path string) (*roster.Tenant, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return m.ImportDocument(ctx, doc)
}

// ImportDocument opens the tenant described by doc.
//
// When the tenant has no store yet, one is created and every player of doc
// is imported, creating factions by name the first time they are seen. A
// failed import removes the new store again so the next start retries it.
// When the store already exists, only the faction cache is loaded.
func (m *Migrator) ImportDocument(ctx context.Context, doc *Document) (*roster.Tenant, error) {
	path := m.StorePath(doc.Tenant.ID)
	existed := store.Exists(path)

	t, err := roster.Open(ctx, doc.Tenant, path, m.tenantOpts...)
	if err != nil {
		return nil, err
	}

	if existed {
		m.metrics.SnapshotFile(ResultCacheLoaded)
		m.log.Debug("store exists, skipping player import",
			"tenant", doc.Tenant.ID,
			"factions", len(t.Factions()),
		)
		return t, nil
	}

	for _, sp := range doc.Skipped {
		m.log.Warn("skipping invalid legacy player",
			"tenant", doc.Tenant.ID,
			"index", sp.Index,
			"name", sp.Name,
			"error", sp.Err,
		)
	}
	if err := importPlayers(ctx, t, doc.Players); err != nil {
		t.Close()
		if rmErr := store.Remove(path); rmErr != nil {
			m.log.Warn("failed to remove partial store", "path", path, "error", rmErr)
		}
		m.metrics.SnapshotFile(ResultFailed)
		return nil, fmt.Errorf("import tenant %d: %w", doc.Tenant.ID, err)
	}

	m.metrics.SnapshotFile(ResultImported)
	m.metrics.PlayersImported(len(doc.Players))
	m.log.Info("snapshot imported",
		"tenant", doc.Tenant.ID,
		"name", doc.Tenant.Name,
		"players", len(doc.Players),
		"factions", len(t.Factions()),
	)
	return t, nil
}

func importPlayers(ctx context.Context, t *roster.Tenant, players []Player) error {
	for i, p := range players {
		var owner *model.User
		if p.User != nil {
			owner = &model.User{Name: p.User.Name, ExternalID: p.User.ExternalID}
		}
		if _, err := t.ImportPlayer(ctx, p.Name, p.Faction, p.GameID, owner); err != nil {
			return fmt.Errorf("player %d (%q): %w", i, p.Name, err)
		}
	}
	return nil
}

// Entry is the outcome of one snapshot file during Scan. Tenant is nil when
// Err is set; for a file that could not be decoded Info carries only the id.
type Entry struct {
	Path   string
	Info   model.Tenant
	Tenant *roster.Tenant
	Err    error
}

// Scan imports every snapshot file under the data directory, subdirectories
// included, in lexical path order. The first file seen for a tenant id wins;
// later files for the same id are skipped, as are ids for which known
// returns true. Dot files and dot directories are ignored. A missing
// directory yields no entries.
//
// A file that cannot be decoded yields an entry with Err set when its base
// name is a tenant id (<id>.json) and no readable file claimed that id, so
// the caller can keep the tenant from being recreated empty. Other
// unreadable files are only logged.
//
// Scan returns an error only when the directory tree cannot be walked.
func (m *Migrator) Scan(ctx context.Context, known func(id uint64) bool) ([]Entry, error) {
	var paths []string
	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == m.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if path != m.dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FormatForPath(d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}

	seen := make(map[uint64]string)
	var entries, unreadable []Entry
	for _, path := range paths {
		doc, err := ReadFile(path)
		if err != nil {
			m.metrics.SnapshotFile(ResultInvalid)
			m.log.Warn("skipping unreadable snapshot", "path", path, "error", err)
			if id, ok := tenantIDFromPath(path); ok {
				unreadable = append(unreadable, Entry{Path: path, Info: model.Tenant{ID: id}, Err: err})
			}
			continue
		}

		id := doc.Tenant.ID
		if first, dup := seen[id]; dup || (known != nil && known(id)) {
			m.metrics.SnapshotFile(ResultDuplicate)
			m.log.Warn("skipping duplicate snapshot", "path", path, "tenant", id, "first", first)
			continue
		}
		seen[id] = path

		t, err := m.ImportDocument(ctx, doc)
		if err != nil {
			m.log.Error("tenant unavailable", "path", path, "tenant", id, "error", err)
		}
		entries = append(entries, Entry{Path: path, Info: doc.Tenant, Tenant: t, Err: err})
	}

	for _, e := range unreadable {
		id := e.Info.ID
		if _, ok := seen[id]; ok || (known != nil && known(id)) {
			continue
		}
		seen[id] = e.Path
		m.log.Error("tenant unavailable", "path", e.Path, "tenant", id, "error", e.Err)
		entries = append(entries, e)
	}
	return entries, nil
}

// tenantIDFromPath parses the tenant id out of an <id>.<ext> file name.
func tenantIDFromPath(path string) (uint64, bool) {
	base := filepath.Base(path)
	id, err := strconv.ParseUint(strings.TrimSuffix(base, filepath.Ext(base)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// WriteMetadata records a tenant's identity as a player-less snapshot, so a
// lost store can still be matched to its tenant name. An existing file is
// left untouched.
func (m *Migrator) WriteMetadata(info model.Tenant) error {
	path := m.MetadataPath(info.ID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	doc := &Document{Version: CurrentVersion, Tenant: info, Players: []Player{}}
	data, err := Encode(doc, FormatJSON)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("write tenant metadata: %w", err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
