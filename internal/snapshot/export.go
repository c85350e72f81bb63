package snapshot

import (
	"context"
	"fmt"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
)

// Export captures the current roster of t as a document in the current
// layout. Players appear in id order with their current faction; the
// default user is omitted. The digest covers the player list only, so two
// exports of an unchanged roster share it even though their ids differ.
func Export(ctx context.Context, t *roster.Tenant, gen IDGenerator) (*Document, error) {
	players, err := t.FindPlayers(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("export tenant %d: %w", t.Info().ID, err)
	}

	doc := &Document{
		Version: CurrentVersion,
		Tenant:  t.Info(),
		Players: make([]Player, 0, len(players)),
	}
	for _, p := range players {
		doc.Players = append(doc.Players, exportPlayer(p))
	}

	digest, err := PlayersDigest(doc.Players)
	if err != nil {
		return nil, fmt.Errorf("export tenant %d: %w", t.Info().ID, err)
	}
	doc.Digest = digest
	doc.ExportID = gen.Generate()
	return doc, nil
}

func exportPlayer(p model.Player) Player {
	out := Player{
		Name:    p.Name,
		GameID:  p.GameID,
		Faction: p.Faction.Name,
	}
	if !p.User.IsDefault() {
		out.User = &User{Name: p.User.Name, ExternalID: p.User.ExternalID}
	}
	return out
}

// PlayersDigest hashes the canonical encoding of players. Names are NFC
// normalized by the canonical encoder; absent optional fields are left out
// rather than encoded as null.
func PlayersDigest(players []Player) (string, error) {
	list := make([]any, 0, len(players))
	for _, p := range players {
		m := map[string]any{
			"name":    p.Name,
			"faction": p.Faction,
		}
		if p.GameID != nil {
			m["game_id"] = *p.GameID
		}
		if p.User != nil {
			m["user"] = map[string]any{
				"name":        p.User.Name,
				"external_id": p.User.ExternalID,
			}
		}
		list = append(list, m)
	}
	return model.Digest(list)
}
