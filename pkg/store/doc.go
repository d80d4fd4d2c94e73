// Package store persists the operation ledger and registry backups in a
// single bbolt file under the data directory.
package store
