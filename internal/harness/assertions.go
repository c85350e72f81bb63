package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Op, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

// assertPlayer checks the named player's fields (subset match).
func assertPlayer(ctx context.Context, t *roster.Tenant, trace []TraceEvent, a Assertion) error {
	players, err := t.FindPlayers(ctx, model.ByName(a.Player))
	if err != nil {
		return fmt.Errorf("find player %q: %w", a.Player, err)
	}
	if len(players) == 0 {
		return &AssertionError{
			Type:     AssertPlayer,
			Expected: fmt.Sprintf("player %q to exist", a.Player),
			Actual:   "player not found",
			Trace:    trace,
		}
	}

	actual := playerFields(players[0])
	for _, key := range sortedKeys(a.Expect) {
		expected := a.Expect[key]
		value, ok := actual[key]
		if !ok {
			return fmt.Errorf("player assertion: unknown field %q", key)
		}
		if !valuesEqual(expected, value) {
			return &AssertionError{
				Type:     AssertPlayer,
				Expected: fmt.Sprintf("%s.%s = %v", a.Player, key, expected),
				Actual:   fmt.Sprintf("%s.%s = %v", a.Player, key, value),
				Trace:    trace,
			}
		}
	}
	return nil
}

// playerFields flattens a player for assertions. A missing game id is nil.
func playerFields(p model.Player) map[string]any {
	var gameID any
	if p.GameID != nil {
		gameID = *p.GameID
	}
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"faction":     p.Faction.Name,
		"game_id":     gameID,
		"user":        p.User.Name,
		"external_id": p.User.ExternalID,
	}
}

// assertPlayerCount counts all players, or those linked to a faction.
func assertPlayerCount(ctx context.Context, t *roster.Tenant, trace []TraceEvent, a Assertion) error {
	var filter *model.PlayerFilter
	what := "players"
	if a.Faction != "" {
		f, ok := t.FindFaction(a.Faction)
		if !ok {
			return &AssertionError{
				Type:     AssertPlayerCount,
				Expected: fmt.Sprintf("faction %q to exist", a.Faction),
				Actual:   "faction not found",
				Trace:    trace,
			}
		}
		filter = model.ByFaction(f)
		what = fmt.Sprintf("players in %s", a.Faction)
	}

	players, err := t.FindPlayers(ctx, filter)
	if err != nil {
		return fmt.Errorf("count %s: %w", what, err)
	}
	if len(players) != a.Count {
		return &AssertionError{
			Type:     AssertPlayerCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", len(players), what),
			Trace:    trace,
		}
	}
	return nil
}

// assertHistory checks the player's affiliations, oldest first.
func assertHistory(ctx context.Context, t *roster.Tenant, trace []TraceEvent, a Assertion) error {
	players, err := t.FindPlayers(ctx, model.ByName(a.Player))
	if err != nil {
		return fmt.Errorf("find player %q: %w", a.Player, err)
	}
	if len(players) == 0 {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("player %q to exist", a.Player),
			Actual:   "player not found",
			Trace:    trace,
		}
	}

	history, err := t.History(ctx, players[0].ID)
	if err != nil {
		return fmt.Errorf("history of %q: %w", a.Player, err)
	}
	names := factionNames(history)
	if !reflect.DeepEqual(names, nonNil(a.Factions)) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("%s history %v", a.Player, a.Factions),
			Actual:   fmt.Sprintf("%s history %v", a.Player, names),
			Trace:    trace,
		}
	}
	return nil
}

// assertFactions checks the faction cache in id order.
func assertFactions(t *roster.Tenant, trace []TraceEvent, a Assertion) error {
	names := factionNames(t.Factions())
	if !reflect.DeepEqual(names, a.Factions) {
		return &AssertionError{
			Type:     AssertFactions,
			Expected: fmt.Sprintf("factions %v", a.Factions),
			Actual:   fmt.Sprintf("factions %v", names),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks how many steps ran an op, optionally with an
// outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op && (a.Outcome == "" || event.Outcome == a.Outcome) {
			count++
		}
	}

	if count != a.Count {
		what := a.Op
		if a.Outcome != "" {
			what += " with outcome " + a.Outcome
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s to run %d time(s)", what, a.Count),
			Actual:   fmt.Sprintf("%s ran %d time(s)", what, count),
			Trace:    trace,
		}
	}
	return nil
}

func factionNames(factions []model.Faction) []string {
	names := make([]string, len(factions))
	for i, f := range factions {
		names[i] = f.Name
	}
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valuesEqual compares an expected scenario value with an actual one.
// YAML decodes integers as int while the roster reports int64 and uint64,
// so integers compare by value.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if e, ok := integerString(expected); ok {
		a, ok := integerString(actual)
		return ok && e == a
	}

	return reflect.DeepEqual(expected, actual)
}

func integerString(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	default:
		return "", false
	}
}

// EvaluateAssertions evaluates all assertions against the tenant and the
// result's trace. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, t *roster.Tenant) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPlayer:
			err = assertPlayer(ctx, t, result.Trace, assertion)
		case AssertPlayerCount:
			err = assertPlayerCount(ctx, t, result.Trace, assertion)
		case AssertHistory:
			err = assertHistory(ctx, t, result.Trace, assertion)
		case AssertFactions:
			err = assertFactions(t, result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
