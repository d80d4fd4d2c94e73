// pkg/testutil/environment.go
// DEPENDENCIES: None (base test utilities)
// PURPOSE: Orchestrate test environments with an install and a target volume

package testutil

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment holds the directories and filesystem of one test
type TestEnvironment struct {
	// AppsDir is where installs live before relocation
	AppsDir string
	// TargetDir is the base path installs are relocated to
	TargetDir string
	// StateDir receives the ledger database and log file
	StateDir string

	FS   types.FS
	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment. Isolated environments
// also point the XDG overrides at the temp directory.
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{t: t, Type: envType}

	root := filepath.FromSlash("/virtual")
	switch envType {
	case EnvMemoryOnly:
		env.FS = filesystem.NewMemoryFS()
	case EnvIsolated:
		root = t.TempDir()
		env.FS = filesystem.NewOS()
	}

	env.AppsDir = filepath.Join(root, "apps")
	env.TargetDir = filepath.Join(root, "volume2", "Software")
	env.StateDir = filepath.Join(root, "state")

	for _, dir := range []string{env.AppsDir, env.StateDir} {
		if err := env.FS.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	if envType == EnvIsolated {
		t.Setenv(paths.EnvDataDir, filepath.Join(root, "data"))
		t.Setenv(paths.EnvConfigDir, filepath.Join(root, "config"))
		t.Setenv(paths.EnvStateDir, env.StateDir)
	}

	return env
}

// WithInstall creates AppsDir/name with the given contents and returns its path
func (env *TestEnvironment) WithInstall(name string, tree FileTree) string {
	env.t.Helper()
	dir := filepath.Join(env.AppsDir, name)
	if err := env.FS.MkdirAll(dir, 0755); err != nil {
		env.t.Fatalf("Failed to create install %s: %v", dir, err)
	}
	CreateFileTree(env.t, env.FS, dir, tree)
	return dir
}

// Entry returns a software entry for an install created by WithInstall
func (env *TestEnvironment) Entry(name string, category types.Category) *types.SoftwareEntry {
	installed := time.Date(2023, 12, 7, 0, 0, 0, 0, time.UTC)
	return &types.SoftwareEntry{
		ID:          name,
		Name:        name,
		Vendor:      "Acme",
		Version:     "1.0.0",
		Category:    category,
		InstallPath: filepath.Join(env.AppsDir, name),
		InstallDate: &installed,
	}
}

// FileTree represents a directory structure for testing. Values are file
// contents (string) or nested FileTrees.
type FileTree map[string]interface{}

// CreateFileTree recursively creates tree below basePath
func CreateFileTree(t *testing.T, fsys types.FS, basePath string, tree FileTree) {
	t.Helper()

	for name, content := range tree {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := fsys.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
				t.Fatalf("Failed to create directory for %s: %v", fullPath, err)
			}
			if err := fsys.WriteFile(fullPath, []byte(v), 0644); err != nil {
				t.Fatalf("Failed to write file %s: %v", fullPath, err)
			}
		case FileTree:
			if err := fsys.MkdirAll(fullPath, 0755); err != nil {
				t.Fatalf("Failed to create directory %s: %v", fullPath, err)
			}
			CreateFileTree(t, fsys, fullPath, v)
		default:
			t.Fatalf("Invalid file tree content type for %s: %T", name, content)
		}
	}
}

// Snapshot flattens everything below root into slash-separated relative
// paths. Directories map to "/", links to "-> target", files to their
// contents. Links are not followed.
func Snapshot(t *testing.T, fsys types.FS, root string) map[string]string {
	t.Helper()

	out := map[string]string{}
	var visit func(dir string)
	visit = func(dir string) {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", dir, err)
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			rel, _ := filepath.Rel(root, full)
			rel = filepath.ToSlash(rel)

			info, err := fsys.Lstat(full)
			if err != nil {
				t.Fatalf("Failed to stat %s: %v", full, err)
			}
			switch {
			case info.Mode()&fs.ModeSymlink != 0:
				target, _ := fsys.Readlink(full)
				out[rel] = "-> " + target
			case info.IsDir():
				out[rel] = "/"
				visit(full)
			default:
				data, err := fsys.ReadFile(full)
				if err != nil {
					t.Fatalf("Failed to read %s: %v", full, err)
				}
				out[rel] = string(data)
			}
		}
	}
	visit(root)
	return out
}
