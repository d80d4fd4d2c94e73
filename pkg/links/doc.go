// Package links creates, inspects and removes the directory reparse points
// that stand in for relocated installs.
//
// Symbolic links work on every platform through the injected filesystem.
// Junctions are an NTFS feature and are created directly against the OS on
// Windows; elsewhere they are reported as unsupported.
//
// A migrated install is healthy only when both halves exist: a link at the
// install path and a directory at its target. CheckHealth reports any other
// combination and never attempts a repair.
package links
