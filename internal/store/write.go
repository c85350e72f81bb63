package store

import (
	"context"
	"database/sql"

	"github.com/tgawarplanet/roster/internal/model"
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the roster statements, bound either to the database or to
// one transaction (see Store.WithTx).
type Queries struct {
	q Querier
}

// InsertFaction inserts a faction row and returns its store-assigned id.
// No uniqueness check is made here; callers look the name up first.
func (q *Queries) InsertFaction(ctx context.Context, name string) (int64, error) {
	res, err := q.q.ExecContext(ctx, `INSERT INTO faction(name) VALUES (?)`, name)
	if err != nil {
		return 0, model.StoreFailure("insert faction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.StoreFailure("insert faction: last insert id", err)
	}
	return id, nil
}

// InsertPlayer inserts a base row owned by userID and returns its id.
// A nil gameID is stored as NULL.
func (q *Queries) InsertPlayer(ctx context.Context, name string, gameID *string, userID int64) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO base(user_id, name, game_id)
		VALUES (?, ?, ?)
	`, userID, name, nullString(gameID))
	if err != nil {
		return 0, model.StoreFailure("insert player", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.StoreFailure("insert player: last insert id", err)
	}
	return id, nil
}

// InsertLink appends an affiliation link row. Earlier rows for the same
// player are kept as history.
func (q *Queries) InsertLink(ctx context.Context, playerID, factionID int64) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO base_faction(base_id, faction_id)
		VALUES (?, ?)
	`, playerID, factionID)
	if err != nil {
		return model.StoreFailure("insert affiliation link", err)
	}
	return nil
}

// DeleteLinks removes every affiliation link of a player.
func (q *Queries) DeleteLinks(ctx context.Context, playerID int64) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM base_faction WHERE base_id = ?`, playerID)
	if err != nil {
		return 0, model.StoreFailure("delete affiliation links", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, model.StoreFailure("delete affiliation links: rows affected", err)
	}
	return n, nil
}

// DeletePlayer removes a base row. Its links must be deleted first.
// Returns model.ErrNotFound when no row had that id.
func (q *Queries) DeletePlayer(ctx context.Context, playerID int64) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM base WHERE id = ?`, playerID)
	if err != nil {
		return model.StoreFailure("delete player", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreFailure("delete player: rows affected", err)
	}
	if n == 0 {
		return model.NotFound("player", playerID)
	}
	return nil
}

// UpdatePlayer overwrites name, owning user and game id of a base row.
func (q *Queries) UpdatePlayer(ctx context.Context, p model.Player) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE base SET name = ?, user_id = ?, game_id = ?
		WHERE id = ?
	`, p.Name, userIDOrDefault(p.User), nullString(p.GameID), p.ID)
	if err != nil {
		return model.StoreFailure("update player", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreFailure("update player: rows affected", err)
	}
	if n == 0 {
		return model.NotFound("player", p.ID)
	}
	return nil
}

// InsertUser inserts a user row and returns its id.
func (q *Queries) InsertUser(ctx context.Context, name string, externalID uint64) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO user(name, external_id)
		VALUES (?, ?)
	`, name, int64(externalID))
	if err != nil {
		return 0, model.StoreFailure("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.StoreFailure("insert user: last insert id", err)
	}
	return id, nil
}

// UpdateUser overwrites the name and external identity of a user row.
func (q *Queries) UpdateUser(ctx context.Context, u model.User) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE user SET name = ?, external_id = ?
		WHERE id = ?
	`, u.Name, int64(u.ExternalID), u.ID)
	if err != nil {
		return model.StoreFailure("update user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreFailure("update user: rows affected", err)
	}
	if n == 0 {
		return model.NotFound("user", u.ID)
	}
	return nil
}

// nullString maps an optional string to a nullable column value.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// userIDOrDefault never lets a player point at no user.
func userIDOrDefault(u model.User) int64 {
	if u.ID == 0 {
		return model.DefaultUserID
	}
	return u.ID
}
