package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgawarplanet/roster/internal/model"
)

// seedPlayer inserts a player with one link per faction id, in order.
func seedPlayer(t *testing.T, q *Queries, name, gameID string, factionIDs ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := q.InsertPlayer(ctx, name, model.StringPtr(gameID), model.DefaultUserID)
	require.NoError(t, err)
	for _, f := range factionIDs {
		require.NoError(t, q.InsertLink(ctx, id, f))
	}
	return id
}

func TestListFactions_ReservedFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Queries().InsertFaction(ctx, "Red")
	require.NoError(t, err)

	factions, err := s.Queries().ListFactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Faction{
		{ID: 1, Name: "Unknown"},
		{ID: 2, Name: "Red"},
	}, factions)
}

func TestFindUser_Default(t *testing.T) {
	s := createTestStore(t)

	u, err := s.Queries().FindUser(context.Background(), model.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUser(), u)

	_, err = s.Queries().FindUser(context.Background(), 2)
	assert.True(t, model.IsNotFound(err))
}

func TestSelectPlayers_OnePerPlayerHighestFactionWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	red, err := q.InsertFaction(ctx, "Red")
	require.NoError(t, err)
	blue, err := q.InsertFaction(ctx, "Blue")
	require.NoError(t, err)

	alice := seedPlayer(t, q, "Alice", "A-1", red, blue)
	bob := seedPlayer(t, q, "Bob", "B-1", red)

	rows, err := q.SelectPlayers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, alice, rows[0].ID)
	assert.Equal(t, blue, rows[0].FactionID)
	assert.Equal(t, bob, rows[1].ID)
	assert.Equal(t, red, rows[1].FactionID)
}

func TestSelectPlayers_HighestIDNotNewestLink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	red, err := q.InsertFaction(ctx, "Red")
	require.NoError(t, err)
	blue, err := q.InsertFaction(ctx, "Blue")
	require.NoError(t, err)

	// Moving back to a lower-numbered faction is not reflected: the tie-break
	// is by faction id, not by link order.
	id := seedPlayer(t, q, "Alice", "A-1", blue, red)

	row, err := q.SelectPlayer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, blue, row.FactionID)

	history, err := q.FactionHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{blue, red}, history)
}

func TestSelectPlayers_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	red, err := q.InsertFaction(ctx, "Red")
	require.NoError(t, err)

	alice := seedPlayer(t, q, "Alice", "A-1", red)
	bob := seedPlayer(t, q, "Bob", "B-1", model.UnknownFactionID)

	byFaction, err := q.SelectPlayers(ctx, model.ByFaction(model.Faction{ID: red, Name: "Red"}))
	require.NoError(t, err)
	require.Len(t, byFaction, 1)
	assert.Equal(t, alice, byFaction[0].ID)

	byName, err := q.SelectPlayers(ctx, model.ByName("Bob"))
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, bob, byName[0].ID)

	byGameID, err := q.SelectPlayers(ctx, model.ByGameID("A-1"))
	require.NoError(t, err)
	require.Len(t, byGameID, 1)
	assert.Equal(t, alice, byGameID[0].ID)

	caseMismatch, err := q.SelectPlayers(ctx, model.ByName("bob"))
	require.NoError(t, err)
	assert.Empty(t, caseMismatch)
}

func TestSelectPlayers_FactionFilterWinsOverName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	red, err := q.InsertFaction(ctx, "Red")
	require.NoError(t, err)
	seedPlayer(t, q, "Alice", "A-1", red)
	seedPlayer(t, q, "Bob", "B-1", red)

	name := "Alice"
	rows, err := q.SelectPlayers(ctx, &model.PlayerFilter{
		Faction: &model.Faction{ID: red, Name: "Red"},
		Name:    &name,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSelectPlayer_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Queries().SelectPlayer(context.Background(), 1)
	assert.True(t, model.IsNotFound(err))
}

func TestSelectPlayer_OrphanReadsAsUnknown(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// A player without any link, as left behind by an interrupted legacy write.
	id, err := s.Queries().InsertPlayer(ctx, "Orphan", nil, model.DefaultUserID)
	require.NoError(t, err)

	row, err := s.Queries().SelectPlayer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.UnknownFactionID, row.FactionID)
	assert.Nil(t, row.GameID)
}

func TestSelectPlayers_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.Queries().SelectPlayers(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	n, err := s.Queries().CountPlayers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
