// pkg/config/config_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Temp directories for config files, environment variables
// PURPOSE: Test configuration layering, decoding, validation and generation

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/registry"
	"github.com/arthur-debert/relocator/pkg/types"
)

// isolate points the XDG overrides at a temp dir so no real user config
// is picked up
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.EnvConfigDir, filepath.Join(dir, "config"))
	t.Setenv(paths.EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(paths.EnvStateDir, filepath.Join(dir, "state"))
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, cfg.Ledger.Retention)
	assert.Empty(t, cfg.Ledger.Path)
	assert.Equal(t, "simple", cfg.Naming.Template)
	assert.Equal(t, '_', cfg.SubstituteRune())
	assert.Empty(t, cfg.Naming.Custom)
	assert.Equal(t, types.LinkPreferenceAuto, cfg.LinkPreference())
	assert.True(t, cfg.Migration.UpdateRegistry)
	assert.False(t, cfg.Migration.VerifyIntegrity)
	assert.Equal(t, registry.DefaultRoots, cfg.Registry.Roots)
	assert.Equal(t, 4, cfg.Registry.MaxDepth)
	assert.Equal(t, "auto", cfg.Output.Format)

	tmpl, err := cfg.Template()
	require.NoError(t, err)
	assert.Equal(t, "{Category}/{Name}", tmpl.Pattern)

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, cfg, def)
}

func TestLoad_Layering(t *testing.T) {
	dir := isolate(t)

	// The default location is used without being named
	writeFile(t, filepath.Join(dir, "config", paths.ConfigFileName), `
[ledger]
retention = "168h"

[naming]
template = "vendor"

[naming.custom]
vendor = "{Vendor}/{Name}"

[migration]
link_type = "symlink"
verify_integrity = true
`)
	t.Setenv("RELOCATOR_MIGRATION__VERIFY_INTEGRITY", "false")
	t.Setenv("RELOCATOR_REGISTRY__MAX_DEPTH", "2")

	cfg, err := Load(LoadOptions{
		Overrides: map[string]interface{}{"output.format": "json"},
	})
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Ledger.Retention, "file over defaults")
	assert.Equal(t, types.LinkPreferenceSymlink, cfg.LinkPreference())
	assert.False(t, cfg.Migration.VerifyIntegrity, "env over file")
	assert.Equal(t, 2, cfg.Registry.MaxDepth)
	assert.Equal(t, "json", cfg.Output.Format, "overrides last")
	assert.True(t, cfg.Migration.UpdateRegistry, "untouched keys keep defaults")

	tmpl, err := cfg.Template()
	require.NoError(t, err)
	assert.Equal(t, "{Vendor}/{Name}", tmpl.Pattern)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)

	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "custom.toml"), "[naming]\ntemplate = \"detailed\"\n")
		cfg, err := Load(LoadOptions{File: path})
		require.NoError(t, err)
		assert.Equal(t, "detailed", cfg.Naming.Template)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "custom.yaml"), "naming:\n  substitute: \"-\"\nregistry:\n  roots:\n    - 'HKCU\\Software\\Acme'\n")
		cfg, err := Load(LoadOptions{File: path})
		require.NoError(t, err)
		assert.Equal(t, '-', cfg.SubstituteRune())
		assert.Equal(t, []string{`HKCU\Software\Acme`}, cfg.Registry.Roots)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(LoadOptions{File: filepath.Join(dir, "nope.toml")})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "broken.toml"), "[ledger\nretention = ")
		_, err := Load(LoadOptions{File: path})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
	})
}

func TestLoad_IgnoresDirectoryOverrides(t *testing.T) {
	isolate(t)
	// RELOCATOR_DATA_DIR and friends are set by isolate and must not leak
	// into the configuration tree
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, cfg.Ledger.Path)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RELOCATOR_LEDGER__RETENTION", "ledger.retention"},
		{"RELOCATOR_MIGRATION__LINK_TYPE", "migration.link_type"},
		{"RELOCATOR_NAMING__CUSTOM__BYVENDOR", "naming.custom.byvendor"},
		{"RELOCATOR_DATA_DIR", ""},
		{"RELOCATOR_STATE_DIR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		problems int
	}{
		{name: "defaults", mutate: func(*Config) {}, problems: 0},
		{name: "zero retention", mutate: func(c *Config) { c.Ledger.Retention = 0 }, problems: 1},
		{name: "long substitute", mutate: func(c *Config) { c.Naming.Substitute = "--" }, problems: 1},
		{name: "illegal substitute", mutate: func(c *Config) { c.Naming.Substitute = ":" }, problems: 1},
		{name: "unknown template", mutate: func(c *Config) { c.Naming.Template = "nope" }, problems: 1},
		{name: "bad link type", mutate: func(c *Config) { c.Migration.LinkType = "hardlink" }, problems: 1},
		{name: "zero depth", mutate: func(c *Config) { c.Registry.MaxDepth = 0 }, problems: 1},
		{name: "empty root", mutate: func(c *Config) { c.Registry.Roots = []string{" "} }, problems: 1},
		{name: "bad format", mutate: func(c *Config) { c.Output.Format = "csv" }, problems: 1},
		{
			name: "invalid custom template in use",
			mutate: func(c *Config) {
				c.Naming.Custom = map[string]string{"broken": "{Nope}"}
				c.Naming.Template = "broken"
			},
			problems: 2,
		},
		{
			name: "everything at once",
			mutate: func(c *Config) {
				c.Ledger.Retention = -time.Hour
				c.Migration.LinkType = "x"
				c.Output.Format = "x"
			},
			problems: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.problems == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid))
			assert.Contains(t, err.Error(), strconv.Itoa(tt.problems)+" invalid settings")
		})
	}
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("RELOCATOR_MIGRATION__LINK_TYPE", "hardlink")

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid))
}

func TestGenerate_LoadsBack(t *testing.T) {
	dir := isolate(t)

	cfg, err := Default()
	require.NoError(t, err)
	cfg.Ledger.Retention = 90 * time.Minute
	cfg.Naming.Custom = map[string]string{"flat": "{Name}_{Version}"}
	cfg.Naming.Template = "flat"
	cfg.Registry.Roots = []string{`HKCU\Software\Acme`}

	out, err := Generate(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "1h30m0s")

	path := writeFile(t, filepath.Join(dir, "generated.toml"), string(out))
	loaded, err := Load(LoadOptions{File: path})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGenerateTemplate(t *testing.T) {
	dir := isolate(t)
	content := GenerateTemplate()

	for _, line := range strings.Split(content, "\n") {
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		t.Errorf("line is not commented out: %q", line)
	}
	assert.Contains(t, content, "# retention = \"720h\"")
	assert.Contains(t, content, "[migration]")

	// A saved template is a valid config that changes nothing
	path := writeFile(t, filepath.Join(dir, "template.toml"), content)
	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)
	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def, cfg)
}

func TestLedgerPath(t *testing.T) {
	dir := isolate(t)
	p, err := paths.New()
	require.NoError(t, err)

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", paths.LedgerFileName), cfg.LedgerPath(p))

	cfg.Ledger.Path = filepath.Join(dir, "elsewhere", "history.db")
	assert.Equal(t, cfg.Ledger.Path, cfg.LedgerPath(p))
}
