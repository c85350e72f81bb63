package roster

import (
	"context"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/store"
)

// ConnectPlayer links player to an external identity.
//
// A player still owned by the default user gets a brand-new user row, and
// the player is re-pointed at it in the same transaction. A player that
// already has its own user has that user's name and external id updated in
// place. player is updated to reflect the stored state.
//
// Returns true when the identity was attached.
func (t *Tenant) ConnectPlayer(ctx context.Context, player *model.Player, name string, externalID uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if player.User.IsDefault() || player.User.ID == 0 {
		var user model.User
		err := t.store.WithTx(ctx, func(q *store.Queries) error {
			id, err := q.InsertUser(ctx, name, externalID)
			if err != nil {
				return err
			}
			user = model.User{ID: id, Name: name, ExternalID: externalID}

			updated := *player
			updated.User = user
			return q.UpdatePlayer(ctx, updated)
		})
		if err != nil {
			return false, t.observe("connect_player", err)
		}
		player.User = user
		return true, t.observe("connect_player", nil)
	}

	user := player.User
	user.Name = name
	user.ExternalID = externalID
	if err := t.store.Queries().UpdateUser(ctx, user); err != nil {
		return false, t.observe("connect_player", err)
	}
	player.User = user
	return true, t.observe("connect_player", nil)
}

// UpdateUser overwrites a user's name and external id.
func (t *Tenant) UpdateUser(ctx context.Context, user model.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.observe("update_user", t.store.Queries().UpdateUser(ctx, user))
}

// FindUser reads a user by id.
func (t *Tenant) FindUser(ctx context.Context, id int64) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, err := t.store.Queries().FindUser(ctx, id)
	return u, t.observe("find_user", err)
}
