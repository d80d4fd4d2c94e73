//go:build !windows

package registry

// NewSystemHive returns an empty hive; there is no system registry outside
// Windows, so scans find nothing and writes fail
func NewSystemHive(roots []string) Hive {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	return NewMemoryHive(roots...)
}
