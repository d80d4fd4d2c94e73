// Package types defines the data model shared by every relocator component.
// This includes the software snapshot handed in by the inventory scanner,
// naming templates, migration plans and results, link metadata, registry
// references and the operation ledger records used for history and rollback.
package types
