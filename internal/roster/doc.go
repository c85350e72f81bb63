// Package roster is the query and mutation layer for one tenant's roster.
//
// A Tenant owns an open store, an in-memory faction cache and a mutex that
// serializes every operation on that tenant. The cache is the source of
// truth for faction name lookups; the store is authoritative for everything
// else. Every path that creates a faction appends to the cache under the
// same lock, and nothing ever removes from it.
//
// Multi-statement writes (AddPlayer, RemovePlayer, ConnectPlayer, SetPlayer)
// run inside a single transaction, so an interrupted write leaves no orphan
// rows.
package roster
