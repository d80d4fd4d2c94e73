// Package testutil provides test environments for relocator components.
//
// Key components:
//   - TestEnvironment: an install directory and a target volume, either in
//     memory or in a temp directory, with XDG variables isolated
//   - FileTree: declarative file tree setup and snapshotting
//   - Clock: a manually advanced time source for ledger and registry tests
//
// Usage guidelines:
//   - Naming and planning tests can use EnvMemoryOnly
//   - Anything that creates links needs EnvIsolated, since links only
//     exist on the real filesystem
//   - All test data is defined inline
package testutil
