package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a roster scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tenant is the tenant the steps run against.
	Tenant TenantSpec `yaml:"tenant"`

	// Snapshot is an optional snapshot file imported before the steps.
	// LoadScenario resolves it relative to the scenario file.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Steps are the operations to run, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final roster and the trace.
	Assertions []Assertion `yaml:"assertions"`

	// ExportID is the id given to the final export.
	// If empty, defaults to "test-export-default".
	ExportID string `yaml:"export_id,omitempty"`
}

// TenantSpec identifies the scenario's tenant.
type TenantSpec struct {
	ID   uint64 `yaml:"id"`
	Name string `yaml:"name"`
}

// Step is one repository operation.
type Step struct {
	// Op is the operation name, e.g. "add_player".
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Outcome is ok, not_found, store_failure, cache_drift or error.
	Outcome string `yaml:"outcome"`

	// Result contains expected result fields. Subset match.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the final roster or the trace.
type Assertion struct {
	// Type is one of player, player_count, history, factions, trace_count.
	Type string `yaml:"type"`

	// Player names the player (player, history).
	Player string `yaml:"player,omitempty"`

	// Faction restricts player_count to players linked to this faction.
	Faction string `yaml:"faction,omitempty"`

	// Expect contains expected player fields (player). Subset match.
	// Keys: id, name, faction, game_id, user, external_id.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (player_count, trace_count).
	Count int `yaml:"count,omitempty"`

	// Factions are expected faction names in order (history, factions).
	Factions []string `yaml:"factions,omitempty"`

	// Op and Outcome select steps for trace_count.
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertPlayer      = "player"
	AssertPlayerCount = "player_count"
	AssertHistory     = "history"
	AssertFactions    = "factions"
	AssertTraceCount  = "trace_count"
)

// Operation names.
const (
	OpAddFaction    = "add_faction"
	OpEnsureFaction = "ensure_faction"
	OpAddPlayer     = "add_player"
	OpSetPlayer     = "set_player"
	OpMovePlayer    = "move_player"
	OpRemovePlayer  = "remove_player"
	OpConnectPlayer = "connect_player"
	OpReopen        = "reopen"
)

var knownOps = map[string]bool{
	OpAddFaction:    true,
	OpEnsureFaction: true,
	OpAddPlayer:     true,
	OpSetPlayer:     true,
	OpMovePlayer:    true,
	OpRemovePlayer:  true,
	OpConnectPlayer: true,
	OpReopen:        true,
}

var knownOutcomes = map[string]bool{
	OutcomeOK:           true,
	OutcomeNotFound:     true,
	OutcomeStoreFailure: true,
	OutcomeCacheDrift:   true,
	OutcomeError:        true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative snapshot path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "assertion:" vs "assertions:" is caught.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Snapshot != "" && !filepath.IsAbs(scenario.Snapshot) {
		scenario.Snapshot = filepath.Join(filepath.Dir(path), scenario.Snapshot)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Tenant.ID == 0 {
		return fmt.Errorf("tenant.id is required and must be positive")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Snapshot != "" {
		if _, err := os.Stat(s.Snapshot); os.IsNotExist(err) {
			return fmt.Errorf("snapshot file not found: %s", s.Snapshot)
		}
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && !knownOutcomes[step.Expect.Outcome] {
			return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, step.Expect.Outcome)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPlayer:
		if a.Player == "" {
			return fmt.Errorf("assertions[%d]: player is required for player", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for player", index)
		}
	case AssertPlayerCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for player_count", index)
		}
	case AssertHistory:
		if a.Player == "" {
			return fmt.Errorf("assertions[%d]: player is required for history", index)
		}
	case AssertFactions:
		if len(a.Factions) == 0 {
			return fmt.Errorf("assertions[%d]: factions list is required for factions", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
