// Package migration plans, executes and rolls back the relocation of an
// installed application.
//
// Execution is a strictly ordered sequence: space check, file moves, source
// removal, link creation and the optional registry rewrite. Each mutation is
// appended to the operation ledger as soon as it happens. That record is the
// undo log: a failure mid-sequence replays it in reverse straight away, and
// Rollback replays it later on request.
//
// Cancellation is honored between units of work. A canceled execution keeps
// what it already did and seals its record as failed so it can still be
// rolled back.
package migration
