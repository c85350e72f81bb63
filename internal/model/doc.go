// Package model defines the roster entities shared by every other package.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key constraints:
//   - Faction 1 ("Unknown") and user 1 ("DefaultUser") exist in every store
//   - Faction names are unique per tenant and compared byte-exact
//   - A player always references a user, the default one until linked
package model
