package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tgawarplanet/roster/internal/model"
)

// CurrentVersion is the layout written by Encode.
const CurrentVersion = 1

// Format selects the file encoding of a snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// Document is a snapshot in the current layout.
type Document struct {
	Version  int          `json:"version" yaml:"version"`
	Tenant   model.Tenant `json:"tenant" yaml:"tenant"`
	ExportID string       `json:"export_id,omitempty" yaml:"export_id,omitempty"`
	Digest   string       `json:"digest,omitempty" yaml:"digest,omitempty"`
	Players  []Player     `json:"players" yaml:"players"`

	// Skipped lists legacy records dropped while decoding.
	Skipped []SkippedPlayer `json:"-" yaml:"-"`
}

// SkippedPlayer is a legacy player record that failed validation. Index is
// its position in the source file.
type SkippedPlayer struct {
	Index int
	Name  string
	Err   error
}

// Player is one roster entry in a snapshot. Faction is a plain name; an
// empty name means Unknown.
type Player struct {
	Name    string  `json:"name" yaml:"name"`
	GameID  *string `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	Faction string  `json:"faction,omitempty" yaml:"faction,omitempty"`
	User    *User   `json:"user,omitempty" yaml:"user,omitempty"`
}

// User is the external identity attached to a snapshot player.
type User struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	ExternalID uint64 `json:"external_id" yaml:"external_id"`
}

// legacyDocument is the v0 layout. Keys are the legacy bot's property names.
type legacyDocument struct {
	ID      uint64         `json:"Id" yaml:"Id"`
	Name    string         `json:"Name" yaml:"Name"`
	Players []legacyPlayer `json:"Players" yaml:"Players"`
}

type legacyPlayer struct {
	ID        int64   `json:"Id" yaml:"Id"`
	Name      string  `json:"Name" yaml:"Name"`
	GameID    *string `json:"GameId" yaml:"GameId"`
	Faction   string  `json:"Faction" yaml:"Faction"`
	DiscordID uint64  `json:"DiscordId" yaml:"DiscordId"`
}

// versionProbe reads only the version tag.
type versionProbe struct {
	Version *int `json:"version" yaml:"version"`
}

// unmarshalFunc abstracts over encoding/json and yaml.v3.
type unmarshalFunc func(data []byte, v any) error

func unmarshalerFor(format Format) (unmarshalFunc, error) {
	switch format {
	case FormatJSON:
		return json.Unmarshal, nil
	case FormatYAML:
		return yaml.Unmarshal, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

// Decode parses a snapshot of any known version and returns it upgraded to
// the current layout and validated.
func Decode(data []byte, format Format) (*Document, error) {
	unmarshal, err := unmarshalerFor(format)
	if err != nil {
		return nil, err
	}

	var probe versionProbe
	if err := unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("read snapshot version: %w", err)
	}

	version := 0
	if probe.Version != nil {
		version = *probe.Version
	}

	doc, err := decodeVersion(data, version, unmarshal)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeVersion decodes data as the given version and runs the migration
// chain up to CurrentVersion.
func decodeVersion(data []byte, version int, unmarshal unmarshalFunc) (*Document, error) {
	switch version {
	case 0:
		legacy, err := decodeV0(data, unmarshal)
		if err != nil {
			return nil, err
		}
		doc := migrateV0ToV1(legacy)
		if err := dropInvalidPlayers(doc); err != nil {
			return nil, err
		}
		return doc, nil
	case 1:
		return decodeV1(data, unmarshal)
	default:
		return nil, &VersionError{Version: version}
	}
}

func decodeV0(data []byte, unmarshal unmarshalFunc) (*legacyDocument, error) {
	var legacy legacyDocument
	if err := unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode v0 snapshot: %w", err)
	}
	return &legacy, nil
}

func decodeV1(data []byte, unmarshal unmarshalFunc) (*Document, error) {
	var doc Document
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode v1 snapshot: %w", err)
	}
	if doc.Players == nil {
		doc.Players = []Player{}
	}
	return &doc, nil
}

// migrateV0ToV1 maps the legacy layout onto v1. Legacy players carried a
// per-player DiscordId in early files; a non-zero one becomes a linked user
// named after the player.
func migrateV0ToV1(legacy *legacyDocument) *Document {
	doc := &Document{
		Version: 1,
		Tenant:  model.Tenant{ID: legacy.ID, Name: legacy.Name},
		Players: make([]Player, 0, len(legacy.Players)),
	}
	for _, lp := range legacy.Players {
		p := Player{
			Name:    lp.Name,
			GameID:  lp.GameID,
			Faction: lp.Faction,
		}
		if lp.DiscordID != 0 {
			p.User = &User{Name: lp.Name, ExternalID: lp.DiscordID}
		}
		doc.Players = append(doc.Players, p)
	}
	return doc
}

// dropInvalidPlayers removes players that fail #Player and records them in
// doc.Skipped. Only the legacy layout is pruned; v1 files are rejected whole.
func dropInvalidPlayers(doc *Document) error {
	kept := doc.Players[:0]
	for i, p := range doc.Players {
		err := validatePlayer(p)
		var verr *ValidationError
		switch {
		case err == nil:
			kept = append(kept, p)
		case errors.As(err, &verr):
			doc.Skipped = append(doc.Skipped, SkippedPlayer{Index: i, Name: p.Name, Err: err})
		default:
			return err
		}
	}
	doc.Players = kept
	return nil
}

// VersionError reports a snapshot version this build cannot read.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported snapshot version %d (newest known is %d)", e.Version, CurrentVersion)
}

// Encode writes doc in the given format. JSON output is indented and ends
// with a newline.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}
