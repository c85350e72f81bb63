package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// TraceSnapshot captures the trace and final export of a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string             `json:"scenario_name"`
	Trace        []TraceEvent       `json:"trace"`
	Export       *snapshot.Document `json:"export,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Null step arguments are left out since canonical JSON
// has no null.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if args := dropNulls(event.Args); len(args) > 0 {
			eventMap["args"] = args
		}
		if len(event.Result) > 0 {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.Export != nil {
		result["export"] = exportMap(s.Export)
	}
	return result
}

func exportMap(doc *snapshot.Document) map[string]any {
	players := make([]any, len(doc.Players))
	for i, p := range doc.Players {
		m := map[string]any{"name": p.Name}
		if p.Faction != "" {
			m["faction"] = p.Faction
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
		players[i] = m
	}
	return map[string]any{
		"tenant": map[string]any{
			"id":   doc.Tenant.ID,
			"name": doc.Tenant.Name,
		},
		"export_id": doc.ExportID,
		"digest":    doc.Digest,
		"players":   players,
	}
}

func dropNulls(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// RunWithGolden executes a scenario in a fresh temporary directory and
// compares its trace and export against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run or does not pass.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed:\n%s", scenario.Name, strings.Join(result.Errors, "\n"))
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Export:       result.Export,
	}

	data, err := model.MarshalCanonical(snap.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
