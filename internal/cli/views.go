package cli

import (
	"fmt"
	"strings"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
)

// noGameID is printed for players without a game id.
const noGameID = "<N/A>"

// playerView renders one player. JSON output uses model.Player's fields.
type playerView struct {
	model.Player
}

func (v playerView) String() string {
	user := "-"
	if !v.User.IsDefault() {
		user = fmt.Sprintf("%s (%d)", v.User.Name, v.User.ExternalID)
	}
	return fmt.Sprintf("#%d %s  game id: %s  faction: %s  user: %s",
		v.ID, v.Name, v.GameIDOr(noGameID), v.Faction.Name, user)
}

type playerList []model.Player

func (l playerList) String() string {
	if len(l) == 0 {
		return "No players found."
	}
	var b strings.Builder
	for i, p := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(playerView{p}.String())
	}
	return b.String()
}

type factionList []model.Faction

func (l factionList) String() string {
	var b strings.Builder
	for i, f := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\t%s", f.ID, f.Name)
	}
	return b.String()
}

type factionResult struct {
	Faction model.Faction `json:"faction"`
	Created bool          `json:"created"`
}

func (r factionResult) String() string {
	if r.Created {
		return fmt.Sprintf("Added faction %s (id %d).", r.Faction.Name, r.Faction.ID)
	}
	return fmt.Sprintf("Faction %s already exists (id %d).", r.Faction.Name, r.Faction.ID)
}

type tenantList []model.Tenant

func (l tenantList) String() string {
	if len(l) == 0 {
		return "No tenants."
	}
	var b strings.Builder
	for i, t := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\t%s", t.ID, t.Name)
	}
	return b.String()
}

type tenantResult struct {
	Tenant  model.Tenant `json:"tenant"`
	Created bool         `json:"created"`
}

func (r tenantResult) String() string {
	verb := "Opened"
	if r.Created {
		verb = "Created"
	}
	return fmt.Sprintf("%s tenant %d (%s).", verb, r.Tenant.ID, r.Tenant.Name)
}

type migrateResult struct {
	Tenants []model.Tenant   `json:"tenants"`
	Metrics []metrics.Sample `json:"metrics"`
}

func (r migrateResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tenant(s) available\n", len(r.Tenants))
	for _, t := range r.Tenants {
		fmt.Fprintf(&b, "  %d\t%s\n", t.ID, t.Name)
	}
	for _, s := range r.Metrics {
		if !strings.HasPrefix(s.Name, "roster_snapshot_") {
			continue
		}
		if result, ok := s.Labels["result"]; ok {
			fmt.Fprintf(&b, "snapshot files %s: %.0f\n", result, s.Value)
		} else {
			fmt.Fprintf(&b, "players imported: %.0f\n", s.Value)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

type historyResult struct {
	PlayerID int64           `json:"player_id"`
	Factions []model.Faction `json:"factions"`
}

func (r historyResult) String() string {
	names := make([]string, len(r.Factions))
	for i, f := range r.Factions {
		names[i] = f.Name
	}
	return fmt.Sprintf("#%d: %s", r.PlayerID, strings.Join(names, " -> "))
}

type message struct {
	Message string `json:"message"`
}

func (m message) String() string {
	return m.Message
}
