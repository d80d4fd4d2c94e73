// pkg/naming/naming_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: afero memory filesystem
// PURPOSE: Test name generation, template validation, sanitization and conflict resolution

package naming_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/naming"
	"github.com/arthur-debert/relocator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vscode() *types.SoftwareEntry {
	installed := time.Date(2023, 12, 7, 10, 0, 0, 0, time.UTC)
	return &types.SoftwareEntry{
		ID:          "vscode",
		Name:        "VSCode",
		Vendor:      "Microsoft",
		Version:     "1.85.0",
		Category:    types.CategoryIDE,
		InstallPath: "/apps/VSCode",
		InstallDate: &installed,
	}
}

func TestGenerateName(t *testing.T) {
	engine := naming.New(filesystem.NewMemoryFS())

	tests := []struct {
		name    string
		entry   *types.SoftwareEntry
		pattern string
		want    string
	}{
		{
			name:    "detailed preset",
			entry:   vscode(),
			pattern: "{Category}/{Vendor}_{Name}_{Version}",
			want:    "IDE/Microsoft_VSCode_1.85.0",
		},
		{
			name:    "tokens are case insensitive",
			entry:   vscode(),
			pattern: "{CATEGORY}/{name}-{vErSiOn}",
			want:    "IDE/VSCode-1.85.0",
		},
		{
			name:    "date formatting",
			entry:   vscode(),
			pattern: "{Category}/{Date}_{Name}",
			want:    "IDE/2023-12-07_VSCode",
		},
		{
			name:    "absent optional fields become Unknown",
			entry:   &types.SoftwareEntry{Name: "Tool", Category: types.CategoryUtility},
			pattern: "{Vendor}_{Name}_{Version}_{Date}",
			want:    "Unknown_Tool_Unknown_Unknown",
		},
		{
			name:    "field values cannot add segments or braces",
			entry:   &types.SoftwareEntry{Name: "A/B {x}", Vendor: "C:D", Category: types.CategoryOther},
			pattern: "{Category}/{Vendor}/{Name}",
			want:    "Other/C_D/A_B _x_",
		},
		{
			name:    "repeated tokens",
			entry:   vscode(),
			pattern: "{Name}/{Name}",
			want:    "VSCode/VSCode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.GenerateName(tt.entry, &types.NamingTemplate{Pattern: tt.pattern})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "{")
			assert.NotContains(t, got, "}")
		})
	}
}

func TestGenerateName_Errors(t *testing.T) {
	engine := naming.New(filesystem.NewMemoryFS())

	_, err := engine.GenerateName(nil, &types.NamingTemplate{Pattern: "{Name}"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = engine.GenerateName(vscode(), nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = engine.GenerateName(vscode(), &types.NamingTemplate{Pattern: "  "})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = engine.GenerateName(vscode(), &types.NamingTemplate{Pattern: "{Publisher}"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateInvalid))
}

func TestGenerateName_PresetsNeverFail(t *testing.T) {
	engine := naming.New(filesystem.NewMemoryFS())
	entries := []*types.SoftwareEntry{
		vscode(),
		{},
		{Name: `we"ird*na|me?`, Vendor: "<vendor>", Version: "1:2"},
	}

	for _, tmpl := range naming.PresetTemplates() {
		tmpl := tmpl
		assert.True(t, naming.ValidateTemplate(tmpl.Pattern).IsValid, tmpl.ID)
		for _, entry := range entries {
			got, err := engine.GenerateName(entry, &tmpl)
			require.NoError(t, err)
			assert.False(t, strings.ContainsAny(got, "{}"))
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		pattern    string
		valid      bool
		errorCount int
	}{
		{pattern: "{Category}/{Name}", valid: true},
		{pattern: "{category}/{VENDOR}_{name}", valid: true},
		{pattern: "Apps/{Name}", valid: true},
		{pattern: "", valid: false, errorCount: 1},
		{pattern: "{Name", valid: false, errorCount: 1},
		{pattern: "Name}", valid: false, errorCount: 1},
		{pattern: "{}", valid: false, errorCount: 1},
		{pattern: "{Publisher}/{Name}", valid: false, errorCount: 1},
		{pattern: "{Foo}/{}/{Name", valid: false, errorCount: 3},
		{pattern: "{Na{Name}", valid: false, errorCount: 1},
		{pattern: "/{Name}", valid: false, errorCount: 1},
		{pattern: "../{Name}", valid: false, errorCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			res := naming.ValidateTemplate(tt.pattern)
			assert.Equal(t, tt.valid, res.IsValid, "errors: %v", res.Errors)
			if tt.valid {
				assert.Empty(t, res.Errors)
			} else {
				assert.Len(t, res.Errors, tt.errorCount, "errors: %v", res.Errors)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	engine := naming.New(filesystem.NewMemoryFS())

	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "plain name", want: "plain name"},
		{in: `a\b/c:d*e?f"g<h>i|j`, want: "a_b_c_d_e_f_g_h_i_j"},
		{in: `\/:*?"<>|`, want: "_________"},
		{in: "ünïcødé:ok", want: "ünïcødé_ok"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := engine.SanitizeFileName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len([]rune(tt.in)), len([]rune(got)))
			assert.False(t, strings.ContainsAny(got, `\/:*?"<>|`))
		})
	}
}

func TestSanitizeFileName_CustomSubstitute(t *testing.T) {
	engine := naming.New(filesystem.NewMemoryFS(), naming.WithSubstitute('-'))
	assert.Equal(t, "a-b", engine.SanitizeFileName("a:b"))

	// An illegal substitute is ignored
	engine = naming.New(filesystem.NewMemoryFS(), naming.WithSubstitute('*'))
	assert.Equal(t, "a_b", engine.SanitizeFileName("a:b"))
}

func TestResolveConflict(t *testing.T) {
	base := filepath.FromSlash("/Software")

	t.Run("free name is used as is", func(t *testing.T) {
		engine := naming.New(filesystem.NewMemoryFS())
		got, err := engine.ResolveConflict(base, "App")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "App"), got)
	})

	t.Run("probes numbered suffixes", func(t *testing.T) {
		fsys := filesystem.NewMemoryFS()
		require.NoError(t, fsys.MkdirAll(filepath.Join(base, "App"), 0755))
		require.NoError(t, fsys.MkdirAll(filepath.Join(base, "App_1"), 0755))
		engine := naming.New(fsys)

		got, err := engine.ResolveConflict(base, "App")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "App_2"), got)
	})

	t.Run("files count as conflicts too", func(t *testing.T) {
		fsys := filesystem.NewMemoryFS()
		require.NoError(t, fsys.MkdirAll(base, 0755))
		require.NoError(t, fsys.WriteFile(filepath.Join(base, "App"), []byte("x"), 0644))
		engine := naming.New(fsys)

		got, err := engine.ResolveConflict(base, "App")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "App_1"), got)
	})

	t.Run("nested names get the suffix on the last segment", func(t *testing.T) {
		fsys := filesystem.NewMemoryFS()
		require.NoError(t, fsys.MkdirAll(filepath.Join(base, "IDE", "VSCode"), 0755))
		engine := naming.New(fsys)

		got, err := engine.ResolveConflict(base, "IDE/VSCode")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "IDE", "VSCode_1"), got)
	})

	t.Run("result stays under base", func(t *testing.T) {
		engine := naming.New(filesystem.NewMemoryFS())
		got, err := engine.ResolveConflict(base, "../../etc/App")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, base))
		assert.Equal(t, filepath.Join(base, "etc", "App"), got)
	})

	t.Run("invalid input", func(t *testing.T) {
		engine := naming.New(filesystem.NewMemoryFS())
		_, err := engine.ResolveConflict("", "App")
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
		_, err = engine.ResolveConflict(base, "//")
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	})
}

func TestPresetTemplates(t *testing.T) {
	presets := naming.PresetTemplates()
	require.Len(t, presets, 3)

	patterns := map[string]string{}
	for _, p := range presets {
		assert.True(t, p.IsPreset)
		patterns[p.ID] = p.Pattern
	}
	assert.Equal(t, "{Category}/{Name}", patterns[naming.PresetSimple])
	assert.Equal(t, "{Category}/{Vendor}_{Name}_{Version}", patterns[naming.PresetDetailed])
	assert.Equal(t, "{Category}/{Date}_{Name}", patterns[naming.PresetDated])

	// Callers cannot mutate the built-ins
	presets[0].Pattern = "{Name}"
	assert.Equal(t, "{Category}/{Name}", naming.PresetTemplates()[0].Pattern)
}

func TestLookup(t *testing.T) {
	custom := map[string]string{
		"by-vendor": "{Vendor}/{Name}",
		"broken":    "{Vendor",
	}

	tmpl, err := naming.Lookup("Detailed", custom)
	require.NoError(t, err)
	assert.Equal(t, naming.PresetDetailed, tmpl.ID)

	tmpl, err = naming.Lookup("by-vendor", custom)
	require.NoError(t, err)
	assert.Equal(t, "{Vendor}/{Name}", tmpl.Pattern)
	assert.False(t, tmpl.IsPreset)

	tmpl, err = naming.Lookup("{Name}-{Version}", nil)
	require.NoError(t, err)
	assert.Equal(t, "{Name}-{Version}", tmpl.Pattern)

	_, err = naming.Lookup("broken", custom)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateInvalid))

	_, err = naming.Lookup("nope", custom)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	_, err = naming.Lookup("", custom)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}
