package roster

import (
	"context"
	"slices"

	"github.com/tgawarplanet/roster/internal/model"
)

// AddFaction inserts a faction and appends it to the cache. It does not
// check for an existing faction with the same name; use FindFaction first
// or EnsureFaction.
func (t *Tenant) AddFaction(ctx context.Context, name string) (model.Faction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.addFaction(ctx, name)
	return f, t.observe("add_faction", err)
}

func (t *Tenant) addFaction(ctx context.Context, name string) (model.Faction, error) {
	id, err := t.store.Queries().InsertFaction(ctx, name)
	if err != nil {
		return model.Faction{}, err
	}
	f := model.Faction{ID: id, Name: name}
	t.cacheFaction(f)
	return f, nil
}

// EnsureFaction returns the faction named name, creating it when the cache
// has no such faction. created reports whether a row was inserted.
// Lookup and insert happen under one lock, so two callers racing on the
// same name get the same faction.
func (t *Tenant) EnsureFaction(ctx context.Context, name string) (f model.Faction, created bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.findFaction(name); ok {
		return f, false, nil
	}
	f, err = t.addFaction(ctx, name)
	if err != nil {
		return model.Faction{}, false, t.observe("ensure_faction", err)
	}
	return f, true, t.observe("ensure_faction", nil)
}

// FindFaction looks name up in the faction cache. Matching is exact and
// case-sensitive; the store is not queried.
func (t *Tenant) FindFaction(name string) (model.Faction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findFaction(name)
}

func (t *Tenant) findFaction(name string) (model.Faction, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return model.Faction{}, false
	}
	return t.factions[idx], true
}

// FactionByID looks a faction up in the cache by id.
func (t *Tenant) FactionByID(id int64) (model.Faction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byID[id]
	if !ok {
		return model.Faction{}, false
	}
	return t.factions[idx], true
}

// Factions returns a copy of the cache in creation order.
func (t *Tenant) Factions() []model.Faction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.factions)
}
