// Package snapshot reads, upgrades, imports and exports roster snapshot
// documents.
//
// A snapshot is one file per tenant. Two layouts exist:
//
//	v0 - untagged JSON written by the legacy bot:
//	     {"Id": 100, "Name": "Guild100", "Players": [{"Name": "Bob", "GameId": "B-42", "Faction": "Red"}]}
//	v1 - tagged document: {"version": 1, "tenant": {...}, "players": [...]}
//
// Decode reads the version tag first and runs one migration function per
// version until the document reaches the current layout. Every decoded
// document is validated against an embedded CUE schema.
//
// At startup the Migrator imports each snapshot whose tenant has no SQLite
// store yet. A tenant that already has a store only gets its faction cache
// loaded; players are never imported twice. The presence of the store file
// is the only guard: deleting a store and restarting imports the snapshot
// again on top of nothing, which is intended, but importing into a store
// rebuilt by other means would duplicate rows.
package snapshot
