package roster

import (
	"context"
	"fmt"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/store"
)

// AddPlayer creates a player owned by the default user and links it to
// faction, or to Unknown when faction is nil. The player row and its link
// are written in one transaction.
func (t *Tenant) AddPlayer(ctx context.Context, name string, faction *model.Faction, gameID *string) (model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.addPlayer(ctx, name, faction, gameID, model.DefaultUser())
	return p, t.observe("add_player", err)
}

// addPlayer is AddPlayer with an explicit owner. Callers hold t.mu.
func (t *Tenant) addPlayer(ctx context.Context, name string, faction *model.Faction, gameID *string, owner model.User) (model.Player, error) {
	f, err := t.resolveFaction(faction)
	if err != nil {
		return model.Player{}, err
	}

	p := model.Player{Name: name, GameID: gameID, User: owner, Faction: f}
	err = t.store.WithTx(ctx, func(q *store.Queries) error {
		if !owner.IsDefault() && owner.ID == 0 {
			uid, err := q.InsertUser(ctx, owner.Name, owner.ExternalID)
			if err != nil {
				return err
			}
			p.User.ID = uid
		}

		id, err := q.InsertPlayer(ctx, name, gameID, p.User.ID)
		if err != nil {
			return err
		}
		p.ID = id
		return q.InsertLink(ctx, id, f.ID)
	})
	if err != nil {
		return model.Player{}, err
	}
	return p, nil
}

// resolveFaction maps nil to Unknown and checks that faction is cached.
// Callers hold t.mu.
func (t *Tenant) resolveFaction(faction *model.Faction) (model.Faction, error) {
	id := model.UnknownFactionID
	if faction != nil {
		id = faction.ID
	}
	idx, ok := t.byID[id]
	if !ok {
		if faction == nil {
			return model.Faction{}, fmt.Errorf("unknown faction missing: %w", model.ErrCacheDrift)
		}
		return model.Faction{}, model.NotFound("faction", faction.Name)
	}
	return t.factions[idx], nil
}

// RemovePlayer deletes the player and all of its affiliation links in one
// transaction.
func (t *Tenant) RemovePlayer(ctx context.Context, player model.Player) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.store.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.DeleteLinks(ctx, player.ID); err != nil {
			return err
		}
		return q.DeletePlayer(ctx, player.ID)
	})
	return t.observe("remove_player", err)
}

// UpdatePlayer overwrites the name, owning user and game id of player.
func (t *Tenant) UpdatePlayer(ctx context.Context, player model.Player) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.observe("update_player", t.store.Queries().UpdatePlayer(ctx, player))
}

// UpdateFaction appends a link from player to player.Faction. Earlier links
// stay as history.
func (t *Tenant) UpdateFaction(ctx context.Context, player model.Player) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.store.WithTx(ctx, func(q *store.Queries) error {
		return t.appendLink(ctx, q, player)
	})
	return t.observe("update_faction", err)
}

// appendLink checks the player and faction exist, then inserts a link.
// Callers hold t.mu.
func (t *Tenant) appendLink(ctx context.Context, q *store.Queries, player model.Player) error {
	if _, err := t.resolveFaction(&player.Faction); err != nil {
		return err
	}
	if _, err := q.SelectPlayer(ctx, player.ID); err != nil {
		return err
	}
	return q.InsertLink(ctx, player.ID, player.Faction.ID)
}

// SetPlayer updates name and game id and, when it differs from the current
// one, the faction of the player with this id, all in one transaction.
// Fields are only written when they changed.
func (t *Tenant) SetPlayer(ctx context.Context, id int64, name string, gameID *string, faction model.Faction) (model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out model.Player
	err := t.store.WithTx(ctx, func(q *store.Queries) error {
		row, err := q.SelectPlayer(ctx, id)
		if err != nil {
			return err
		}
		current, err := t.toPlayer(row)
		if err != nil {
			return err
		}

		if current.Name != name || !sameGameID(current.GameID, gameID) {
			current.Name = name
			current.GameID = gameID
			if err := q.UpdatePlayer(ctx, current); err != nil {
				return err
			}
		}
		if current.Faction.ID != faction.ID {
			f, err := t.resolveFaction(&faction)
			if err != nil {
				return err
			}
			current.Faction = f
			if err := t.appendLink(ctx, q, current); err != nil {
				return err
			}
		}
		out = current
		return nil
	})
	if err != nil {
		return model.Player{}, t.observe("set_player", err)
	}
	return out, t.observe("set_player", nil)
}

func sameGameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindPlayers returns the players matching filter (nil for all), ordered by
// id. Only one criterion of the filter is honored: faction, then name, then
// game id.
func (t *Tenant) FindPlayers(ctx context.Context, filter *model.PlayerFilter) ([]model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	players, err := t.findPlayers(ctx, filter)
	return players, t.observe("find_players", err)
}

func (t *Tenant) findPlayers(ctx context.Context, filter *model.PlayerFilter) ([]model.Player, error) {
	rows, err := t.store.Queries().SelectPlayers(ctx, filter)
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(rows))
	for _, row := range rows {
		p, err := t.toPlayer(row)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

// FindPlayer returns the player with this id, or an error matching
// model.ErrNotFound.
func (t *Tenant) FindPlayer(ctx context.Context, id int64) (model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, err := t.store.Queries().SelectPlayer(ctx, id)
	if err != nil {
		return model.Player{}, t.observe("find_player", err)
	}
	p, err := t.toPlayer(row)
	return p, t.observe("find_player", err)
}

// SearchPlayers matches term against player names and, when no name
// matches, against game ids.
func (t *Tenant) SearchPlayers(ctx context.Context, term string) ([]model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	players, err := t.findPlayers(ctx, model.ByName(term))
	if err == nil && len(players) == 0 {
		players, err = t.findPlayers(ctx, model.ByGameID(term))
	}
	return players, t.observe("search_players", err)
}

// History returns every faction the player was linked to, oldest first.
func (t *Tenant) History(ctx context.Context, playerID int64) ([]model.Faction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.store.Queries()
	if _, err := q.SelectPlayer(ctx, playerID); err != nil {
		return nil, t.observe("history", err)
	}
	ids, err := q.FactionHistory(ctx, playerID)
	if err != nil {
		return nil, t.observe("history", err)
	}

	factions := make([]model.Faction, 0, len(ids))
	for _, id := range ids {
		f, err := t.factionByID(id)
		if err != nil {
			return nil, t.observe("history", err)
		}
		factions = append(factions, f)
	}
	return factions, t.observe("history", nil)
}

// toPlayer resolves a store row's faction through the cache.
// Callers hold t.mu.
func (t *Tenant) toPlayer(row store.PlayerRow) (model.Player, error) {
	f, err := t.factionByID(row.FactionID)
	if err != nil {
		return model.Player{}, fmt.Errorf("player %d: %w", row.ID, err)
	}
	return model.Player{
		ID:      row.ID,
		Name:    row.Name,
		GameID:  row.GameID,
		User:    row.User,
		Faction: f,
	}, nil
}
