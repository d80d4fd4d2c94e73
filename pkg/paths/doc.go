// Package paths provides centralized path handling for relocator.
// It resolves the XDG directories where the ledger, configuration and logs
// live, and supplies the normalization helpers used whenever two paths are
// compared (link targets, install paths, registry data).
package paths
