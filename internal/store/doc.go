// Package store provides the per-tenant SQLite store behind the roster.
//
// Each tenant owns one database file named after its identifier. The file
// holds exactly four tables:
//   - user: external identities (id 1 is the reserved DefaultUser)
//   - base: players, each owned by a user
//   - faction: affiliation groups (id 1 is the reserved Unknown faction)
//   - base_faction: affiliation links, append-only history per player
//
// # Layout Versions
//
// The layout version lives in PRAGMA user_version:
//
//	0 - files written by the legacy bot (user.discord_id, no index)
//	1 - user.discord_id renamed to user.external_id
//	2 - index on base_faction(base_id, faction_id)
//
// Older files are upgraded in place every time they are opened.
//
// # Current Affiliation
//
// A player may own several base_faction rows. SelectPlayers is the only
// place that decides which one is current: rows are read ordered by
// base.id ASC, faction_id DESC and the first row per player wins.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Links are removed before their player
package store
