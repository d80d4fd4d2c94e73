// Package filesystem provides filesystem implementations for relocator.
//
// This package contains implementations of the types.FS interface (the OS
// filesystem and an afero-backed one for tests) plus the primitives the
// migration engine consumes: recursive size, move with cross-volume
// fallback, tree checksums and free-space queries.
package filesystem
