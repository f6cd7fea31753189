package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSegment(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "ok", value: "lab-core_01"},
		{name: "empty", value: "", wantErr: true},
		{name: "blank", value: "   ", wantErr: true},
		{name: "slash", value: "a/b", wantErr: true},
		{name: "backslash", value: `a\b`, wantErr: true},
		{name: "dotdot", value: "..", wantErr: true},
		{name: "too long", value: strings.Repeat("x", 65), wantErr: true},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOwnerID(tc.value)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.NoError(t, ValidateName(strings.Repeat("x", 128)))
	assert.Error(t, ValidateName(strings.Repeat("x", 129)))
}

func TestRequests_IsValid(t *testing.T) {
	t.Parallel()

	assert.Error(t, (&CreateSnapshotRequest{}).IsValid())
	assert.NoError(t, (&CreateSnapshotRequest{Name: "lab"}).IsValid())
	assert.Error(t, (&RefreshSnapshotRequest{}).IsValid())
	assert.Error(t, (&RunToolRequest{ToolName: "get_bgp_failures"}).IsValid())
	assert.NoError(t, (&RunToolRequest{ToolName: "get_bgp_failures", SnapshotID: "snap_1"}).IsValid())
	assert.Error(t, (&RunAllToolsRequest{}).IsValid())
	assert.NoError(t, (&DeleteSnapshotRequest{SnapshotID: "snap_1"}).IsValid())
	assert.NoError(t, (&DescribeSnapshotRequest{SnapshotID: "snap_1"}).IsValid())
}
