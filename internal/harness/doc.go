// Package harness runs roster scenarios: a tenant, an optional snapshot to
// import, a list of repository operations and assertions on the resulting
// roster.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	tenant: { id: 100, name: Guild100 }
//	snapshot: ../snapshots/guild100.json   # optional, relative to the file
//	steps:
//	  - op: add_faction
//	    args: { name: Blue }
//	    expect:
//	      outcome: ok
//	      result: { id: 3 }
//	  - op: add_player
//	    args: { name: Dave, faction: Green }
//	    expect: { outcome: not_found }
//	assertions:
//	  - type: player
//	    player: Bob
//	    expect: { faction: Blue, game_id: B-42 }
//	  - type: history
//	    player: Bob
//	    factions: [Red, Blue]
//
// A step without expect must succeed.
//
// # Operations
//
//   - add_faction {name}
//   - ensure_faction {name}
//   - add_player {name, faction?, game_id?}
//   - set_player {player, name?, game_id?, faction?}
//   - move_player {player, faction}
//   - remove_player {player}
//   - connect_player {player, user, external_id}
//   - reopen {}: closes the tenant and opens it again the way a restart would
//
// Players are addressed by name; the first match in id order is used.
//
// # Assertion Types
//
//   - player: the named player exists and its fields match expect
//   - player_count: number of players, optionally those linked to a faction
//   - history: the player's affiliations, oldest first
//   - factions: every cached faction name, in id order
//   - trace_count: how many steps ran an op, optionally with an outcome
//
// # Deterministic Testing
//
// Each run uses its own data directory and a fixed export id, so the trace
// and the final export can be compared against golden files.
package harness
