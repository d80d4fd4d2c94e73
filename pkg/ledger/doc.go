// Package ledger is the append-only record of operations and the actions
// they performed. Migration rollback replays it; history display reads it.
//
// Records are only ever created, appended to, sealed, and eventually pruned
// once they fall out of the retention window. The backing Store is
// injected, so the same logger runs over process memory or a bbolt file.
package ledger
