// pkg/ui/ui_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None (renders into buffers)
// PURPOSE: Test format parsing, document conversion and every renderer

package ui

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/types"
)

func samplePlan() *types.MigrationPlan {
	return &types.MigrationPlan{
		ID:         "plan-1",
		Entry:      types.SoftwareEntry{Name: "VSCode"},
		SourcePath: "/apps/VSCode",
		TargetPath: "/volume2/Software/IDE/VSCode",
		FileOperations: []types.FileMoveOperation{
			{Source: "/apps/VSCode/bin", Destination: "/volume2/Software/IDE/VSCode/bin", SizeBytes: 1536, IsDir: true},
			{Source: "/apps/VSCode/code.exe", Destination: "/volume2/Software/IDE/VSCode/code.exe", SizeBytes: 512},
		},
		TotalSizeBytes:      2048,
		AvailableSpaceBytes: 1 << 30,
		RecommendedLinkType: types.LinkTypeSymbolicLink,
	}
}

func sampleRecord() *types.OperationRecord {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	ok := true
	return &types.OperationRecord{
		ID:          "op-1",
		Type:        types.OperationMigration,
		Description: "Migrate VSCode",
		StartTime:   start,
		EndTime:     &end,
		Success:     &ok,
		Actions: []types.OperationAction{
			{ActionType: types.ActionCreateDirectory, Description: "Create target", Timestamp: start, CanRollback: true},
			{ActionType: types.ActionMoveFile, Description: "Move bin", Timestamp: start, CanRollback: true},
		},
	}
}

func sampleRegistry() *types.RegistryUpdateReport {
	return &types.RegistryUpdateReport{
		OperationID:  "reg-1",
		OldPath:      `C:\Apps\VSCode`,
		NewPath:      `D:\Software\IDE\VSCode`,
		UpdatedCount: 1,
		FailedCount:  1,
		Entries: []types.RegistryUpdateEntry{
			{Reference: types.RegistryReference{KeyPath: `HKCU\Software\VSCode`, ValueName: "InstallLocation"}, Replacements: 1, Success: true},
			{Reference: types.RegistryReference{KeyPath: `HKLM\Software\VSCode`, ValueName: "Icon"}, Error: "access denied"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatAuto, false},
		{"auto", FormatAuto, false},
		{"term", FormatTerminal, false},
		{"terminal", FormatTerminal, false},
		{"TEXT", FormatText, false},
		{"plain", FormatText, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", FormatXML, false},
		{"md", FormatMarkdown, false},
		{"csv", FormatAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			// String is accepted back
			again, err := ParseFormat(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestDetectFormat_NonTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, FormatText, DetectFormat(f))
	assert.False(t, IsTerminal(f))
	assert.False(t, IsTerminal(nil))

	// Auto on a non-terminal writer is plain text
	r, err := NewRenderer(FormatAuto, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &textRenderer{}, r)
}

func TestBuildDocument(t *testing.T) {
	t.Run("plan", func(t *testing.T) {
		doc := BuildDocument(samplePlan())
		assert.Equal(t, "plan", doc.Kind)
		assert.Equal(t, StatusInfo, doc.Status)
		assert.Contains(t, doc.Fields, Field{"Size", "2KiB"})
		require.Len(t, doc.Tables, 1)
		assert.Equal(t, []string{"bin", "dir", "1.5KiB"}, doc.Tables[0].Rows[0])
		assert.Empty(t, doc.Notes)
	})

	t.Run("plan without space", func(t *testing.T) {
		p := samplePlan()
		p.AvailableSpaceBytes = 1024
		doc := BuildDocument(p)
		assert.Equal(t, StatusFailure, doc.Status)
		require.Len(t, doc.Notes, 1)
		assert.Contains(t, doc.Notes[0], "1KiB more")
	})

	t.Run("rolled back migration", func(t *testing.T) {
		doc := BuildDocument(&types.MigrationResult{
			OperationID: "op-1",
			Error:       "[MIGRATION_FAILED] migration failed",
			RolledBack:  true,
		})
		assert.Equal(t, StatusFailure, doc.Status)
		assert.Equal(t, "Migration failed and was rolled back", doc.Title)
		assert.Equal(t, []string{"[MIGRATION_FAILED] migration failed"}, doc.Notes)
	})

	t.Run("migration with registry failures", func(t *testing.T) {
		doc := BuildDocument(&types.MigrationResult{Success: true, RegistryReport: sampleRegistry()})
		assert.Equal(t, StatusWarning, doc.Status)
		require.Len(t, doc.Tables, 1)
		assert.Equal(t, "failed: access denied", doc.Tables[0].Rows[1][3])
	})

	t.Run("empty history", func(t *testing.T) {
		doc := BuildDocument([]*types.OperationRecord{})
		assert.Equal(t, []string{"No operations recorded"}, doc.Notes)
	})

	t.Run("history", func(t *testing.T) {
		doc := BuildDocument([]*types.OperationRecord{sampleRecord()})
		require.Len(t, doc.Tables, 1)
		row := doc.Tables[0].Rows[0]
		assert.Equal(t, "op-1", row[0])
		assert.Equal(t, "1.5s", row[3])
		assert.Equal(t, "success", row[4])
		assert.Equal(t, "2", row[5])
	})

	t.Run("audit report", func(t *testing.T) {
		doc := BuildDocument(&AuditReport{Operation: sampleRecord(), Registry: sampleRegistry()})
		assert.Equal(t, "Migration op-1", doc.Title)
		assert.Equal(t, StatusSuccess, doc.Status)
		assert.Len(t, doc.Tables, 2)
		assert.Contains(t, doc.Fields, Field{"Rollbackable", "yes"})
	})

	t.Run("corrupt state", func(t *testing.T) {
		doc := BuildDocument(types.InstallState{
			Path:    "/apps/VSCode",
			State:   types.StateCorrupt,
			Link:    &types.LinkInfo{TargetPath: "/gone", LinkType: types.LinkTypeSymbolicLink},
			Problem: "link target /gone does not exist",
		})
		assert.Equal(t, StatusFailure, doc.Status)
		assert.Contains(t, doc.Fields, Field{"Target", "/gone"})
	})

	t.Run("templates sort presets first", func(t *testing.T) {
		doc := BuildDocument([]types.NamingTemplate{
			{ID: "mine", Pattern: "{Name}"},
			{ID: "simple", Pattern: "{Category}/{Name}", IsPreset: true},
		})
		assert.Equal(t, "simple", doc.Tables[0].Rows[0][0])
	})

	t.Run("unknown", func(t *testing.T) {
		doc := BuildDocument(42)
		assert.Equal(t, []Field{{"Result", "42"}}, doc.Fields)
	})
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatText, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(samplePlan()))
	out := buf.String()
	assert.Contains(t, out, "Migration plan for VSCode")
	assert.Contains(t, out, "/volume2/Software/IDE/VSCode")
	assert.Contains(t, out, "code.exe")
	assert.NotContains(t, out, "\x1b[", "no styling")

	buf.Reset()
	require.NoError(t, r.RenderError(errors.New(errors.ErrTargetExists, "target exists")))
	assert.Equal(t, "Error: [TARGET_EXISTS] target exists\n", buf.String())
}

func TestTerminalRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatTerminal, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(&AuditReport{Operation: sampleRecord()}))
	out := buf.String()
	assert.Contains(t, out, "Migration op-1")
	assert.Contains(t, out, "Move bin")

	buf.Reset()
	err = errors.New(errors.ErrInsufficientSpace, "not enough space").WithDetail("required", 10)
	require.NoError(t, r.RenderError(err))
	assert.Contains(t, buf.String(), "INSUFFICIENT_SPACE")
	assert.Contains(t, buf.String(), "required:")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatJSON, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(samplePlan()))
	var decoded types.MigrationPlan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "plan-1", decoded.ID)

	buf.Reset()
	require.NoError(t, r.RenderError(errors.New(errors.ErrOperationNotFound, "no such operation")))
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "OPERATION_NOT_FOUND", payload["code"])
}

func TestYAMLRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatYAML, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult([]*types.OperationRecord{sampleRecord()}))
	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "op-1", decoded[0]["id"])
	assert.Equal(t, "Migration", decoded[0]["type"])

	buf.Reset()
	require.NoError(t, r.RenderMessage("done"))
	assert.Equal(t, "message: done\n", buf.String())
}

func TestXMLRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatXML, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(&AuditReport{Operation: sampleRecord(), Registry: sampleRegistry()}))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))
	root := doc.SelectElement("report")
	require.NotNil(t, root)
	assert.Equal(t, "success", root.SelectAttrValue("status", ""))

	tables := root.SelectElements("table")
	require.Len(t, tables, 2)
	assert.Equal(t, "Actions", tables[0].SelectAttrValue("title", ""))
	rows := tables[1].SelectElements("row")
	require.Len(t, rows, 2)
	assert.Equal(t, `HKCU\Software\VSCode`, rows[0].SelectElement("key").Text())
	assert.Equal(t, "1", rows[0].SelectElement("replacements").Text())

	buf.Reset()
	require.NoError(t, r.RenderError(errors.New(errors.ErrStore, "disk full").WithDetail("path", "/x")))
	doc = etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))
	el := doc.SelectElement("error")
	require.NotNil(t, el)
	assert.Equal(t, "STORE", el.SelectAttrValue("code", ""))
	assert.Equal(t, "/x", el.SelectElement("detail").Text())
}

func TestElementName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Key", "key"},
		{"Link type", "link_type"},
		{"#", "column"},
		{"2nd Pass", "nd_pass"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, elementName(tt.in), tt.in)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(FormatMarkdown, &buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(&AuditReport{Operation: sampleRecord(), Registry: sampleRegistry()}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Migration op-1\n"))
	assert.Contains(t, out, "**Status:** success")
	assert.Contains(t, out, "- **Old path:** `C:\\Apps\\VSCode`")
	assert.Contains(t, out, "| Key | Value | Replacements | Result |")
	assert.Contains(t, out, "| HKCU\\\\Software\\\\VSCode | InstallLocation | 1 | updated |")

	// Styled output keeps the content
	styled := RenderMarkdown(out, 80)
	assert.Contains(t, styled, "Migration op-1")
}

func TestShowProgress_Text(t *testing.T) {
	var buf bytes.Buffer
	ch, stop := ShowProgress(&buf, FormatText, "Migrating")

	ch <- types.Progress{Stage: types.StagePreflight, CurrentItem: "/apps/VSCode"}
	ch <- types.Progress{Stage: types.StageMove, Percent: 10, CurrentItem: "/apps/VSCode/bin"}
	ch <- types.Progress{Stage: types.StageMove, Percent: 10, CurrentItem: "/apps/VSCode/bin"}
	ch <- types.Progress{Stage: types.StageComplete, Percent: 100}
	stop()
	stop()

	assert.Equal(t, "[preflight]   0% VSCode\n[move]  10% bin\n[complete] 100%\n", buf.String())
}

func TestShowProgress_Structured(t *testing.T) {
	var buf bytes.Buffer
	ch, stop := ShowProgress(&buf, FormatJSON, "Migrating")
	ch <- types.Progress{Stage: types.StageMove, Percent: 50}
	stop()
	assert.Empty(t, buf.String())
}
