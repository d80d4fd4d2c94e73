// pkg/types/types_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test data model helpers (parsing, record cloning, progress delivery)

package types_test

import (
	"testing"
	"time"

	"github.com/arthur-debert/relocator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkType(t *testing.T) {
	tests := []struct {
		in      string
		want    types.LinkType
		wantErr bool
	}{
		{in: "junction", want: types.LinkTypeJunction},
		{in: "Junction", want: types.LinkTypeJunction},
		{in: "symlink", want: types.LinkTypeSymbolicLink},
		{in: "SymbolicLink", want: types.LinkTypeSymbolicLink},
		{in: "hardlink", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := types.ParseLinkType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLinkPreference(t *testing.T) {
	got, err := types.ParseLinkPreference("")
	require.NoError(t, err)
	assert.Equal(t, types.LinkPreferenceAuto, got)

	got, err = types.ParseLinkPreference("JUNCTION")
	require.NoError(t, err)
	assert.Equal(t, types.LinkPreferenceJunction, got)

	_, err = types.ParseLinkPreference("copy")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Category
		wantErr bool
	}{
		{"", types.CategoryOther, false},
		{"ide", types.CategoryIDE, false},
		{" Browser ", types.CategoryBrowser, false},
		{"games", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := types.ParseCategory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperationRecord_Rollbackable(t *testing.T) {
	rec := &types.OperationRecord{
		Actions: []types.OperationAction{
			{ActionType: types.ActionMoveFile, CanRollback: true},
			{ActionType: types.ActionCreateLink, CanRollback: true},
		},
	}
	assert.True(t, rec.IsRollbackable())

	rec.Actions = append(rec.Actions, types.OperationAction{ActionType: types.ActionRegistryUpdate})
	assert.False(t, rec.IsRollbackable())
}

func TestOperationRecord_CloneIsDeep(t *testing.T) {
	end := time.Now()
	ok := true
	rec := &types.OperationRecord{
		ID:      "op",
		EndTime: &end,
		Success: &ok,
		Actions: []types.OperationAction{{ActionType: types.ActionMoveFile}},
	}

	c := rec.Clone()
	c.Actions[0].ActionType = "changed"
	*c.Success = false

	assert.Equal(t, types.ActionMoveFile, rec.Actions[0].ActionType)
	assert.True(t, *rec.Success)
	assert.False(t, rec.IsOpen())
	assert.Nil(t, (*types.OperationRecord)(nil).Clone())
}

func TestSendProgress_NeverBlocks(t *testing.T) {
	ch := make(chan types.Progress, 1)
	types.SendProgress(ch, types.Progress{Stage: types.StageMove, Percent: 10})
	// Buffer is full now; this must return immediately
	types.SendProgress(ch, types.Progress{Stage: types.StageMove, Percent: 20})
	types.SendProgress(nil, types.Progress{})

	got := <-ch
	assert.Equal(t, float64(10), got.Percent)
}

func TestRegistryUpdateResult_Report(t *testing.T) {
	res := &types.RegistryUpdateResult{
		OperationID:  "r1",
		UpdatedCount: 1,
		Entries:      []types.RegistryUpdateEntry{{Success: true}},
	}
	rep := res.Report(`C:\Old`, `D:\New`)
	assert.Equal(t, "r1", rep.OperationID)
	assert.Equal(t, `C:\Old`, rep.OldPath)
	assert.Len(t, rep.Entries, 1)
}
