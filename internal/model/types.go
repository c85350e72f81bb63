package model

// Reserved rows seeded into every new tenant store.
const (
	UnknownFactionID   int64 = 1
	UnknownFactionName       = "Unknown"

	DefaultUserID   int64 = 1
	DefaultUserName       = "DefaultUser"
)

// Tenant identifies one isolated roster scope (a guild).
type Tenant struct {
	ID   uint64 `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Faction is a named affiliation group. Factions are never renamed or deleted.
type Faction struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IsUnknown reports whether f is the reserved default faction.
func (f Faction) IsUnknown() bool {
	return f.ID == UnknownFactionID
}

// UnknownFaction returns the reserved default faction.
func UnknownFaction() Faction {
	return Faction{ID: UnknownFactionID, Name: UnknownFactionName}
}

// User is an external identity a player can be linked to.
// ExternalID 0 means no identity is attached.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID uint64 `json:"external_id"`
}

// IsDefault reports whether u is the shared "not yet linked" user.
func (u User) IsDefault() bool {
	return u.ID == DefaultUserID
}

// DefaultUser returns the reserved unlinked user.
func DefaultUser() User {
	return User{ID: DefaultUserID, Name: DefaultUserName}
}

// Player is a tracked in-game account.
type Player struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	GameID  *string `json:"game_id,omitempty"`
	User    User    `json:"user"`
	Faction Faction `json:"faction"`
}

// GameIDOr returns the game id, or fallback when it is unset.
func (p Player) GameIDOr(fallback string) string {
	if p.GameID == nil {
		return fallback
	}
	return *p.GameID
}

// PlayerFilter narrows FindPlayers. Only one criterion is honored; see Active.
type PlayerFilter struct {
	Faction *Faction
	Name    *string
	GameID  *string
}

// FilterKind names the criterion a PlayerFilter resolves to.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterFaction
	FilterName
	FilterGameID
)

// Active returns the single criterion honored by this filter.
// Precedence is faction, then name, then game id; the rest are ignored.
func (f *PlayerFilter) Active() FilterKind {
	switch {
	case f == nil:
		return FilterNone
	case f.Faction != nil:
		return FilterFaction
	case f.Name != nil:
		return FilterName
	case f.GameID != nil:
		return FilterGameID
	default:
		return FilterNone
	}
}

// ByFaction returns a filter matching players currently linked to faction.
func ByFaction(faction Faction) *PlayerFilter {
	return &PlayerFilter{Faction: &faction}
}

// ByName returns a filter matching players with exactly this name.
func ByName(name string) *PlayerFilter {
	return &PlayerFilter{Name: &name}
}

// ByGameID returns a filter matching players with exactly this game id.
func ByGameID(gameID string) *PlayerFilter {
	return &PlayerFilter{GameID: &gameID}
}

// StringPtr returns a pointer to s. Handy for optional game ids.
func StringPtr(s string) *string {
	return &s
}
