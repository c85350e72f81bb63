package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
	"github.com/tgawarplanet/roster/internal/snapshot"
	"github.com/tgawarplanet/roster/internal/testutil"
)

// Harness is the scenario execution engine. It holds the tenant under test
// and the migrator that opens it.
type Harness struct {
	migrator *snapshot.Migrator
	info     model.Tenant
	doc      *snapshot.Document
	tenant   *roster.Tenant
	seq      int64
	logger   *slog.Logger
}

// Run executes a scenario against a tenant stored in dir and returns the
// result.
//
// Execution flow:
// 1. Import the scenario snapshot, or open an empty tenant
// 2. Execute steps, recording a trace and checking expect clauses
// 3. Evaluate assertions against the final roster
// 4. Export the roster with the scenario's fixed export id
//
// Run returns an error only when the scenario cannot be executed: bad step
// arguments, an unreadable snapshot or a tenant that fails to open. Failed
// expectations are reported in the Result.
func Run(scenario *Scenario, dir string) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		migrator: snapshot.NewMigrator(dir,
			snapshot.WithLogger(logger),
			snapshot.WithTenantOptions(roster.WithLogger(logger)),
		),
		info:   model.Tenant{ID: scenario.Tenant.ID, Name: scenario.Tenant.Name},
		logger: logger,
	}

	if scenario.Snapshot != "" {
		doc, err := snapshot.ReadFile(scenario.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if doc.Tenant.ID != h.info.ID {
			return nil, fmt.Errorf("snapshot is for tenant %d, scenario uses tenant %d", doc.Tenant.ID, h.info.ID)
		}
		h.doc = doc
		h.info = doc.Tenant
	}

	if err := h.open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open tenant: %w", err)
	}
	defer h.close()

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, h.tenant) {
		result.AddError(msg)
	}

	doc, err := snapshot.Export(ctx, h.tenant, testutil.NewFixedIDGenerator(scenario.ExportID))
	if err != nil {
		return nil, fmt.Errorf("failed to export roster: %w", err)
	}
	result.Export = doc

	return result, nil
}

// open imports the scenario snapshot through the migrator, which loads only
// the faction cache once the store exists, or opens a plain tenant.
func (h *Harness) open(ctx context.Context) error {
	if h.doc != nil {
		t, err := h.migrator.ImportDocument(ctx, h.doc)
		if err != nil {
			return err
		}
		h.tenant = t
		return nil
	}

	t, err := roster.Open(ctx, h.info, h.migrator.StorePath(h.info.ID), roster.WithLogger(h.logger))
	if err != nil {
		return err
	}
	h.tenant = t
	return nil
}

func (h *Harness) close() {
	if h.tenant != nil {
		if err := h.tenant.Close(); err != nil {
			h.logger.Warn("close tenant", "error", err)
		}
		h.tenant = nil
	}
}

// executeSteps runs every step in order.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		h.seq++
		out, err := h.apply(ctx, step)

		var argErr *argError
		if errors.As(err, &argErr) {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		if h.tenant == nil {
			return fmt.Errorf("step %d (%s): tenant unavailable: %w", i, step.Op, err)
		}

		outcome := outcomeOf(err)
		result.AddTrace(h.seq, step.Op, step.Args, outcome, out)
		checkExpect(i, step, outcome, out, err, result)
	}
	return nil
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(index int, step Step, outcome string, out map[string]any, err error, result *Result) {
	want := OutcomeOK
	if step.Expect != nil {
		want = step.Expect.Outcome
	}
	if outcome != want {
		msg := fmt.Sprintf("steps[%d] %s: expected outcome %s, got %s", index, step.Op, want, outcome)
		if err != nil {
			msg += fmt.Sprintf(" (%v)", err)
		}
		result.AddError(msg)
		return
	}
	if step.Expect == nil || len(step.Expect.Result) == 0 {
		return
	}

	keys := make([]string, 0, len(step.Expect.Result))
	for k := range step.Expect.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		expected := step.Expect.Result[key]
		actual, ok := out[key]
		if !ok {
			result.AddError(fmt.Sprintf("steps[%d] %s: result field %q missing", index, step.Op, key))
			continue
		}
		if !valuesEqual(expected, actual) {
			result.AddError(fmt.Sprintf("steps[%d] %s: result field %q = %v, expected %v",
				index, step.Op, key, actual, expected))
		}
	}
}

// apply executes one step against the tenant.
func (h *Harness) apply(ctx context.Context, step Step) (map[string]any, error) {
	args := step.Args

	switch step.Op {
	case OpAddFaction:
		name, err := requireString(args, "name")
		if err != nil {
			return nil, err
		}
		f, err := h.tenant.AddFaction(ctx, name)
		if err != nil {
			return nil, err
		}
		return factionResult(f), nil

	case OpEnsureFaction:
		name, err := requireString(args, "name")
		if err != nil {
			return nil, err
		}
		f, created, err := h.tenant.EnsureFaction(ctx, name)
		if err != nil {
			return nil, err
		}
		out := factionResult(f)
		out["created"] = created
		return out, nil

	case OpAddPlayer:
		name, err := requireString(args, "name")
		if err != nil {
			return nil, err
		}
		gameID, _, err := nullableStringArg(args, "game_id")
		if err != nil {
			return nil, err
		}
		fname, set, err := stringArg(args, "faction")
		if err != nil {
			return nil, err
		}
		var faction *model.Faction
		if set {
			f, err := h.faction(fname)
			if err != nil {
				return nil, err
			}
			faction = &f
		}
		p, err := h.tenant.AddPlayer(ctx, name, faction, gameID)
		if err != nil {
			return nil, err
		}
		return playerResult(p), nil

	case OpSetPlayer:
		p, err := h.player(ctx, args)
		if err != nil {
			return nil, err
		}
		name, set, err := stringArg(args, "name")
		if err != nil {
			return nil, err
		}
		if set {
			p.Name = name
		}
		gameID, set, err := nullableStringArg(args, "game_id")
		if err != nil {
			return nil, err
		}
		if set {
			p.GameID = gameID
		}
		fname, set, err := stringArg(args, "faction")
		if err != nil {
			return nil, err
		}
		if set {
			if p.Faction, err = h.faction(fname); err != nil {
				return nil, err
			}
		}
		updated, err := h.tenant.SetPlayer(ctx, p.ID, p.Name, p.GameID, p.Faction)
		if err != nil {
			return nil, err
		}
		return playerResult(updated), nil

	case OpMovePlayer:
		fname, err := requireString(args, "faction")
		if err != nil {
			return nil, err
		}
		p, err := h.player(ctx, args)
		if err != nil {
			return nil, err
		}
		if p.Faction, err = h.faction(fname); err != nil {
			return nil, err
		}
		if err := h.tenant.UpdateFaction(ctx, p); err != nil {
			return nil, err
		}
		return playerResult(p), nil

	case OpRemovePlayer:
		p, err := h.player(ctx, args)
		if err != nil {
			return nil, err
		}
		if err := h.tenant.RemovePlayer(ctx, p); err != nil {
			return nil, err
		}
		return map[string]any{"id": p.ID}, nil

	case OpConnectPlayer:
		user, err := requireString(args, "user")
		if err != nil {
			return nil, err
		}
		ext, err := uintArg(args, "external_id")
		if err != nil {
			return nil, err
		}
		p, err := h.player(ctx, args)
		if err != nil {
			return nil, err
		}
		if _, err := h.tenant.ConnectPlayer(ctx, &p, user, ext); err != nil {
			return nil, err
		}
		return map[string]any{"id": p.ID, "user_id": p.User.ID}, nil

	case OpReopen:
		h.close()
		if err := h.open(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"factions": len(h.tenant.Factions())}, nil

	default:
		return nil, &argError{key: "op", msg: fmt.Sprintf("unknown op %q", step.Op)}
	}
}

// player resolves the "player" argument by name.
func (h *Harness) player(ctx context.Context, args map[string]any) (model.Player, error) {
	name, err := requireString(args, "player")
	if err != nil {
		return model.Player{}, err
	}
	players, err := h.tenant.FindPlayers(ctx, model.ByName(name))
	if err != nil {
		return model.Player{}, err
	}
	if len(players) == 0 {
		return model.Player{}, model.NotFound("player", name)
	}
	return players[0], nil
}

func (h *Harness) faction(name string) (model.Faction, error) {
	f, ok := h.tenant.FindFaction(name)
	if !ok {
		return model.Faction{}, model.NotFound("faction", name)
	}
	return f, nil
}

func factionResult(f model.Faction) map[string]any {
	return map[string]any{"id": f.ID, "name": f.Name}
}

func playerResult(p model.Player) map[string]any {
	out := map[string]any{
		"id":      p.ID,
		"name":    p.Name,
		"faction": p.Faction.Name,
	}
	if p.GameID != nil {
		out["game_id"] = *p.GameID
	}
	return out
}

// argError marks a malformed step. It aborts the run instead of becoming a
// step outcome.
type argError struct {
	key string
	msg string
}

func (e *argError) Error() string {
	return fmt.Sprintf("arg %q: %s", e.key, e.msg)
}

// stringArg reads an optional string argument. A null value counts as absent.
func stringArg(args map[string]any, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &argError{key: key, msg: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, true, nil
}

func requireString(args map[string]any, key string) (string, error) {
	s, ok, err := stringArg(args, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &argError{key: key, msg: "is required"}
	}
	return s, nil
}

// nullableStringArg distinguishes an explicit null (present, nil) from an
// absent key.
func nullableStringArg(args map[string]any, key string) (*string, bool, error) {
	v, ok := args[key]
	if !ok {
		return nil, false, nil
	}
	if v == nil {
		return nil, true, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, false, &argError{key: key, msg: fmt.Sprintf("must be a string or null, got %T", v)}
	}
	return &s, true, nil
}

func uintArg(args map[string]any, key string) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return 0, &argError{key: key, msg: "is required"}
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case uint64:
		return n, nil
	}
	return 0, &argError{key: key, msg: fmt.Sprintf("must be a non-negative integer, got %v", v)}
}
