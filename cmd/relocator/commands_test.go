// cmd/relocator/commands_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Real filesystem (testutil.EnvIsolated), bbolt ledger in the temp dir
// PURPOSE: Test command wiring end to end: plan, migrate, inspect, history, report, rollback

package relocator

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/links"
	"github.com/arthur-debert/relocator/pkg/testutil"
	"github.com/arthur-debert/relocator/pkg/types"
	"github.com/arthur-debert/relocator/pkg/ui"
)

var appTree = testutil.FileTree{
	"app.exe": "binary-content",
	"data": testutil.FileTree{
		"config.ini": "key=value",
	},
}

// execute runs the root command with args and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestPlan_DoesNotTouchDisk(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	source := env.WithInstall("App", appTree)

	out, _, err := execute(t, "plan", source, env.TargetDir, "--category", "utility", "--format", "json")
	require.NoError(t, err)

	plan := decode[types.MigrationPlan](t, out)
	assert.Equal(t, filepath.Join(env.TargetDir, "Utility", "App"), plan.TargetPath)
	assert.Equal(t, "App", plan.Entry.Name)
	assert.Equal(t, types.CategoryUtility, plan.Entry.Category)
	assert.Equal(t, int64(len("binary-content")+len("key=value")), plan.TotalSizeBytes)

	assert.DirExists(t, source)
	assert.NoDirExists(t, env.TargetDir)
}

func TestPlan_EntryFile(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	source := env.WithInstall("App", appTree)

	entryFile := filepath.Join(env.StateDir, "app.yaml")
	content := "name: Editor\nvendor: Acme\nversion: 2.0.1\ncategory: IDE\ninstallPath: " + source + "\n"
	require.NoError(t, os.WriteFile(entryFile, []byte(content), 0o644))

	out, _, err := execute(t, "plan", "--entry", entryFile, env.TargetDir, "--template", "detailed", "--format", "json")
	require.NoError(t, err)

	plan := decode[types.MigrationPlan](t, out)
	assert.Equal(t, filepath.Join(env.TargetDir, "IDE", "Acme_Editor_2.0.1"), plan.TargetPath)
}

func TestPlan_ArgumentErrors(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	source := env.WithInstall("App", appTree)

	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"target only without entry", []string{"plan", env.TargetDir}, errors.ErrInvalidInput},
		{"unknown category", []string{"plan", source, env.TargetDir, "--category", "toys"}, errors.ErrInvalidInput},
		{"bad install date", []string{"plan", source, env.TargetDir, "--installed", "yesterday"}, errors.ErrInvalidInput},
		{"unknown template", []string{"plan", source, env.TargetDir, "--template", "nope"}, errors.ErrNotFound},
		{"invalid template pattern", []string{"plan", source, env.TargetDir, "--template", "{Nope}"}, errors.ErrTemplateInvalid},
		{"missing source", []string{"plan", filepath.Join(env.AppsDir, "Gone"), env.TargetDir}, errors.ErrSourceMissing},
		{"missing entry file", []string{"plan", "--entry", filepath.Join(env.StateDir, "none.yaml"), env.TargetDir}, errors.ErrFileAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMigrate_DryRun(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	source := env.WithInstall("App", appTree)

	out, _, err := execute(t, "migrate", source, env.TargetDir, "--dry-run", "--format", "json")
	require.NoError(t, err)

	plan := decode[types.MigrationPlan](t, out)
	assert.NotEmpty(t, plan.ID)
	assert.DirExists(t, source)
	assert.NoDirExists(t, plan.TargetPath)
}

func TestMigrate_RoundTrip(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	if !links.New(env.FS).IsSymbolicLinkSupported() {
		t.Skip("directory symlinks are not available to this process")
	}
	source := env.WithInstall("App", appTree)
	before := testutil.Snapshot(t, env.FS, source)

	out, stderr, err := execute(t, "migrate", source, env.TargetDir, "--link-type", "symlink", "--verify", "--format", "json")
	require.NoError(t, err, stderr)

	result := decode[types.MigrationResult](t, out)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, types.LinkTypeSymbolicLink, result.LinkType)
	target := filepath.Join(env.TargetDir, "Other", "App")
	assert.Equal(t, target, result.TargetPath)
	assert.Equal(t, before, testutil.Snapshot(t, env.FS, target))

	t.Run("inspect", func(t *testing.T) {
		out, _, err := execute(t, "inspect", source, "--format", "json")
		require.NoError(t, err)
		state := decode[types.InstallState](t, out)
		assert.Equal(t, types.StateMigrated, state.State)
	})

	t.Run("history", func(t *testing.T) {
		out, _, err := execute(t, "history", "--since", "1h", "--format", "json")
		require.NoError(t, err)
		records := decode[[]*types.OperationRecord](t, out)
		require.Len(t, records, 1)
		assert.Equal(t, result.OperationID, records[0].ID)
		assert.Equal(t, types.OperationMigration, records[0].Type)
	})

	t.Run("report", func(t *testing.T) {
		out, _, err := execute(t, "report", result.OperationID, "--format", "json")
		require.NoError(t, err)
		report := decode[ui.AuditReport](t, out)
		require.NotNil(t, report.Operation)
		assert.Equal(t, result.OperationID, report.Operation.ID)
	})

	out, stderr, err = execute(t, "rollback", result.OperationID, "--format", "json")
	require.NoError(t, err, stderr)
	rb := decode[types.RollbackResult](t, out)
	assert.True(t, rb.Success)
	assert.Equal(t, before, testutil.Snapshot(t, env.FS, source))
	assert.NoDirExists(t, target)

	_, _, err = execute(t, "rollback", result.OperationID, "--format", "json")
	assert.True(t, errors.IsErrorCode(err, errors.ErrRollbackStateMissing), "got %v", err)
}

func TestMigrate_TextProgress(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	if !links.New(env.FS).IsSymbolicLinkSupported() {
		t.Skip("directory symlinks are not available to this process")
	}
	source := env.WithInstall("App", appTree)

	out, stderr, err := execute(t, "migrate", source, env.TargetDir, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[preflight]")
	assert.Contains(t, stderr, "[complete]")
	assert.Contains(t, out, filepath.Join(env.TargetDir, "Other", "App"))
}

func TestReport_UnknownOperation(t *testing.T) {
	testutil.NewTestEnvironment(t, testutil.EnvIsolated)

	_, _, err := execute(t, "report", "does-not-exist")
	assert.True(t, errors.IsErrorCode(err, errors.ErrOperationNotFound), "got %v", err)
}

func TestTemplates(t *testing.T) {
	testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	t.Setenv("RELOCATOR_NAMING__CUSTOM__MINE", "{Vendor}/{Name}")

	t.Run("list", func(t *testing.T) {
		out, _, err := execute(t, "templates", "list", "--format", "json")
		require.NoError(t, err)
		templates := decode[[]types.NamingTemplate](t, out)
		require.Len(t, templates, 4)
		assert.Equal(t, "simple", templates[0].ID)
		assert.Equal(t, "mine", templates[3].ID)
		assert.False(t, templates[3].IsPreset)
	})

	t.Run("valid", func(t *testing.T) {
		out, _, err := execute(t, "templates", "validate", "{Vendor}/{Name}", "--format", "json")
		require.NoError(t, err)
		check := decode[ui.TemplateCheck](t, out)
		assert.True(t, check.Result.IsValid)
		assert.Equal(t, "Microsoft/Visual Studio Code", check.Example)
	})

	t.Run("invalid", func(t *testing.T) {
		out, _, err := execute(t, "templates", "validate", "{Nope}", "--format", "json")
		assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateInvalid), "got %v", err)
		check := decode[ui.TemplateCheck](t, out)
		assert.False(t, check.Result.IsValid)
		assert.NotEmpty(t, check.Result.Errors)
	})
}

func TestGenConfig(t *testing.T) {
	testutil.NewTestEnvironment(t, testutil.EnvIsolated)

	out, _, err := execute(t, "genconfig")
	require.NoError(t, err)
	assert.Contains(t, out, "# template = ")

	out, _, err = execute(t, "genconfig", "--effective")
	require.NoError(t, err)
	assert.Contains(t, out, "[naming]")

	_, _, err = execute(t, "genconfig", "--write", "--format", "text")
	require.NoError(t, err)
	_, _, err = execute(t, "genconfig", "--write")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput), "got %v", err)
	_, _, err = execute(t, "genconfig", "--write", "--force")
	assert.NoError(t, err)
}

func TestInvalidFormat(t *testing.T) {
	testutil.NewTestEnvironment(t, testutil.EnvIsolated)

	_, _, err := execute(t, "templates", "list", "--format", "html")
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid), "got %v", err)
}

func TestVersionAndCompletion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "relocator "))

	out, _, err = execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "relocator")

	_, _, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	got, err := parseSince("2h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), got)

	got, err = parseSince("2024-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local), got)

	_, err = parseSince("last week", now)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestHelpTopics(t *testing.T) {
	out, _, err := execute(t, "help", "topics")
	require.NoError(t, err)
	for _, want := range []string{"templates", "ledger", "--link-type"} {
		assert.Contains(t, out, want)
	}

	out, _, err = execute(t, "help", "ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "bbolt database")

	out, _, err = execute(t, "help", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "--dry-run")
}
