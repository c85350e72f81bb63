package roster

import (
	"context"

	"github.com/tgawarplanet/roster/internal/model"
)

// ImportPlayer adds a player read from a snapshot. The faction is resolved
// by name and created when the cache has none with that name; an empty name
// means Unknown. A non-nil owner gets its own user row, whatever its
// external id; a nil owner leaves the player with the default user.
func (t *Tenant) ImportPlayer(ctx context.Context, name, factionName string, gameID *string, owner *model.User) (model.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var faction *model.Faction
	if factionName != "" {
		f, ok := t.findFaction(factionName)
		if !ok {
			var err error
			f, err = t.addFaction(ctx, factionName)
			if err != nil {
				return model.Player{}, t.observe("import_player", err)
			}
			t.log.Debug("faction created during import", "faction", factionName, "id", f.ID)
		}
		faction = &f
	}

	user := model.DefaultUser()
	if owner != nil {
		user = model.User{Name: owner.Name, ExternalID: owner.ExternalID}
	}

	p, err := t.addPlayer(ctx, name, faction, gameID, user)
	return p, t.observe("import_player", err)
}
