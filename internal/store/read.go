package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tgawarplanet/roster/internal/model"
)

// PlayerRow is one player as read from the store. The faction is left as an
// id; the repository resolves it through the tenant's faction cache.
type PlayerRow struct {
	ID        int64
	Name      string
	GameID    *string
	User      model.User
	FactionID int64
}

// selectPlayersSQL joins players with their user and affiliation links.
// Ordering is load-bearing: within one player the highest faction id comes
// first and is taken as the current affiliation.
const selectPlayersSQL = `
	SELECT
		base.id,
		base.name,
		base.game_id,
		user.id,
		user.name,
		user.external_id,
		base_faction.faction_id
	FROM base
	LEFT JOIN user ON user.id = base.user_id
	LEFT JOIN base_faction ON base_faction.base_id = base.id
`

const selectPlayersOrder = ` ORDER BY base.id ASC, base_faction.faction_id DESC`

// ListFactions returns every faction ordered by id.
func (q *Queries) ListFactions(ctx context.Context) ([]model.Faction, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name FROM faction ORDER BY id ASC`)
	if err != nil {
		return nil, model.StoreFailure("query factions", err)
	}
	defer rows.Close()

	factions := []model.Faction{}
	for rows.Next() {
		var (
			f    model.Faction
			name sql.NullString
		)
		if err := rows.Scan(&f.ID, &name); err != nil {
			return nil, model.StoreFailure("scan faction", err)
		}
		f.Name = name.String
		factions = append(factions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("iterate factions", err)
	}
	return factions, nil
}

// FindUser reads one user row. Returns model.ErrNotFound if absent.
func (q *Queries) FindUser(ctx context.Context, id int64) (model.User, error) {
	var (
		u    model.User
		name sql.NullString
		ext  sql.NullInt64
	)
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, external_id FROM user WHERE id = ?`, id,
	).Scan(&u.ID, &name, &ext)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.NotFound("user", id)
	}
	if err != nil {
		return model.User{}, model.StoreFailure("query user", err)
	}
	u.Name = name.String
	u.ExternalID = uint64(ext.Int64)
	return u, nil
}

// SelectPlayers returns the players matching filter, one row per player,
// ordered by player id. Only the filter's active criterion is applied.
//
// With a faction filter, a player matches when any of its link rows points
// at that faction, and the reported faction is the highest matching one.
func (q *Queries) SelectPlayers(ctx context.Context, filter *model.PlayerFilter) ([]PlayerRow, error) {
	query := selectPlayersSQL
	var args []any

	switch filter.Active() {
	case model.FilterFaction:
		query += ` WHERE base_faction.faction_id = ?`
		args = append(args, filter.Faction.ID)
	case model.FilterName:
		query += ` WHERE base.name = ?`
		args = append(args, *filter.Name)
	case model.FilterGameID:
		query += ` WHERE base.game_id = ?`
		args = append(args, *filter.GameID)
	}

	return q.selectPlayers(ctx, query+selectPlayersOrder, args...)
}

// SelectPlayer returns one player by id. Returns model.ErrNotFound if absent.
func (q *Queries) SelectPlayer(ctx context.Context, id int64) (PlayerRow, error) {
	rows, err := q.selectPlayers(ctx, selectPlayersSQL+` WHERE base.id = ?`+selectPlayersOrder, id)
	if err != nil {
		return PlayerRow{}, err
	}
	if len(rows) == 0 {
		return PlayerRow{}, model.NotFound("player", id)
	}
	return rows[0], nil
}

// selectPlayers runs a player query and keeps the first row per player.
func (q *Queries) selectPlayers(ctx context.Context, query string, args ...any) ([]PlayerRow, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.StoreFailure("query players", err)
	}
	defer rows.Close()

	players := []PlayerRow{}
	for rows.Next() {
		p, err := scanPlayerRow(rows)
		if err != nil {
			return nil, err
		}
		// Later rows for the same player are older affiliations.
		if n := len(players); n > 0 && players[n-1].ID == p.ID {
			continue
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("iterate players", err)
	}
	return players, nil
}

// scanPlayerRow scans one joined row. A missing user falls back to the
// default user and a missing link (orphaned player) to the Unknown faction.
func scanPlayerRow(rows *sql.Rows) (PlayerRow, error) {
	var (
		p         PlayerRow
		name      sql.NullString
		gameID    sql.NullString
		userID    sql.NullInt64
		userName  sql.NullString
		extID     sql.NullInt64
		factionID sql.NullInt64
	)
	if err := rows.Scan(&p.ID, &name, &gameID, &userID, &userName, &extID, &factionID); err != nil {
		return PlayerRow{}, model.StoreFailure("scan player", err)
	}

	p.Name = name.String
	if gameID.Valid {
		gid := gameID.String
		p.GameID = &gid
	}

	p.User = model.DefaultUser()
	if userID.Valid {
		p.User = model.User{ID: userID.Int64, Name: userName.String, ExternalID: uint64(extID.Int64)}
	}

	p.FactionID = model.UnknownFactionID
	if factionID.Valid {
		p.FactionID = factionID.Int64
	}
	return p, nil
}

// FactionHistory returns every faction id a player was linked to, oldest
// link first.
func (q *Queries) FactionHistory(ctx context.Context, playerID int64) ([]int64, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT faction_id FROM base_faction
		WHERE base_id = ?
		ORDER BY id ASC
	`, playerID)
	if err != nil {
		return nil, model.StoreFailure("query faction history", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, model.StoreFailure("scan faction history", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("iterate faction history", err)
	}
	return ids, nil
}

// CountPlayers returns the number of base rows.
func (q *Queries) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM base`).Scan(&n); err != nil {
		return 0, model.StoreFailure("count players", err)
	}
	return n, nil
}
