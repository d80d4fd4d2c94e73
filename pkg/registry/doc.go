// Package registry finds, backs up, rewrites and restores persisted values
// that still point at an install's old location.
//
// Values live in a Hive. On Windows that is the system registry under a
// fixed set of well-known roots; elsewhere, and in tests, an in-memory hive
// stands in. Only string-typed values are considered since only they can
// hold a path.
//
// Every rewrite is preceded by a backup, and every rewrite pass is recorded
// under its operation id so the exact mutations can be reported later.
package registry
