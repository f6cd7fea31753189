package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jimyag/netrca/internal/netrca/repository/model"
	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSnapshotService_CreateOrRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snap.ID, "snap_"))
	assert.Equal(t, "alice_"+snap.ID, snap.IsolationKey)
	assert.Equal(t, model.StatusActive, snap.Status)
	assert.Equal(t, []string{"R1", "R2"}, snap.Devices)
	assert.Equal(t, 2, snap.DeviceCount)
	assert.Equal(t, ts.ConfigsRoot, snap.ConfigsRoot)
	require.NotNil(t, snap.LastIngestedAt)
	assert.Equal(t, snap.UpdatedAt, *snap.LastIngestedAt)
	assert.Empty(t, snap.ErrorMessage)

	ts.MockBatfish.AssertCalled(t, "InitSnapshot", mock.Anything, testNetwork, snap.IsolationKey,
		filepath.Join(ts.SnapshotRoot, snap.IsolationKey), true)

	// 同名再次调用在原 ID 上刷新
	ts.Clock.Advance(time.Minute)
	writeConfig(t, ts.ConfigsRoot, "r3/startup-config.cfg", "hostname R3\n")
	again, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, again.ID)
	assert.Equal(t, []string{"R1", "R2", "R3"}, again.Devices)
	assert.Equal(t, snap.CreatedAt, again.CreatedAt)
	assert.Greater(t, again.UpdatedAt, snap.UpdatedAt)

	list, err := ts.SnapshotService.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSnapshotService_Create_Conflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.Create(ctx, "alice", "incident_001", "")
	require.NoError(t, err)

	_, err = ts.SnapshotService.Create(ctx, "alice", "incident_001", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrSnapshotConflict)
	assert.Contains(t, err.Error(), snap.ID)

	// 不同 owner 可以使用相同的名字，ID 和隔离键都不同
	other, err := ts.SnapshotService.Create(ctx, "bob", "incident_001", "")
	require.NoError(t, err)
	assert.NotEqual(t, snap.ID, other.ID)
	assert.NotEqual(t, snap.IsolationKey, other.IsolationKey)
}

func TestSnapshotService_OwnerIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)

	_, foreignErr := ts.SnapshotService.Get(ctx, "bob", snap.ID)
	require.Error(t, foreignErr)
	_, absentErr := ts.SnapshotService.Get(ctx, "bob", "snap_does_not_exist")
	require.Error(t, absentErr)

	assert.ErrorIs(t, foreignErr, apierror.ErrSnapshotNotFound)
	assert.ErrorIs(t, absentErr, apierror.ErrSnapshotNotFound)
	assert.Equal(t,
		strings.Replace(foreignErr.Error(), snap.ID, "ID", 1),
		strings.Replace(absentErr.Error(), "snap_does_not_exist", "ID", 1))

	_, err = ts.SnapshotService.Refresh(ctx, "bob", snap.ID, "")
	assert.ErrorIs(t, err, apierror.ErrSnapshotNotFound)

	err = ts.SnapshotService.Delete(ctx, "bob", snap.ID)
	assert.ErrorIs(t, err, apierror.ErrSnapshotNotFound)

	list, err := ts.SnapshotService.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshotService_ConfigsRootInsideSnapshotRoot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)

	for _, configsRoot := range []string{ts.SnapshotRoot, filepath.Join(ts.SnapshotRoot, snap.IsolationKey)} {
		_, err = ts.SnapshotService.CreateOrRefresh(ctx, "bob", "x", configsRoot)
		require.Error(t, err, configsRoot)
		assert.ErrorIs(t, err, apierror.ErrInvalidParameter)
	}
	ts.MockBatfish.AssertNumberOfCalls(t, "InitSnapshot", 1)
}

func TestSnapshotService_Refresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)

	override := filepath.Join(t.TempDir(), "override")
	writeConfig(t, override, "core/startup-config.cfg", "hostname CORE1\n")

	refreshed, err := ts.SnapshotService.Refresh(ctx, "alice", snap.ID, override)
	require.NoError(t, err)
	assert.Equal(t, []string{"CORE1"}, refreshed.Devices)
	assert.Equal(t, override, refreshed.ConfigsRoot)

	// 不传 configs_root 时使用记录上的值
	writeConfig(t, override, "edge/startup-config.cfg", "hostname EDGE1\n")
	refreshed, err = ts.SnapshotService.Refresh(ctx, "alice", snap.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CORE1", "EDGE1"}, refreshed.Devices)
	assert.Equal(t, override, refreshed.ConfigsRoot)
}

func TestSnapshotService_IngestFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	testcases := []struct {
		name       string
		setup      func(*TestServices) string
		wantErr     *apierror.Error
		wantStatus  string
		wantMessage string
	}{
		{
			name: "configs root missing",
			setup: func(ts *TestServices) string {
				return filepath.Join(ts.ConfigsRoot, "missing")
			},
			wantErr:     apierror.ErrConfigsRootNotFound,
			wantStatus:  model.StatusFailed,
			wantMessage: "does not exist",
		},
		{
			name: "backend rejects snapshot",
			setup: func(ts *TestServices) string {
				ts.MockBatfish.ExpectedCalls = nil
				ts.MockBatfish.On("EnsureNetwork", mock.Anything, testNetwork).Return(nil)
				ts.MockBatfish.On("InitSnapshot", mock.Anything, testNetwork, mock.Anything, mock.Anything, true).
					Return(&batfish.StatusError{Op: "upload snapshot", StatusCode: 400, Body: "bad config"})
				return ""
			},
			wantErr:     apierror.ErrSnapshotLoadFailed,
			wantStatus:  model.StatusFailed,
			wantMessage: "batfish upload snapshot failed (HTTP 400): bad config",
		},
		{
			name: "backend unreachable",
			setup: func(ts *TestServices) string {
				ts.MockBatfish.ExpectedCalls = nil
				ts.MockBatfish.On("EnsureNetwork", mock.Anything, testNetwork).
					Return(fmt.Errorf("%w: dial tcp 127.0.0.1:9996: connect: connection refused", batfish.ErrUnreachable))
				return ""
			},
			wantErr:     apierror.ErrBackendUnreachable,
			wantStatus:  model.StatusFailed,
			wantMessage: "dial tcp 127.0.0.1:9996: connect: connection refused",
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := setupTestServices(t)
			ts.expectLoad()

			good, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
			require.NoError(t, err)

			ts.Clock.Advance(time.Minute)
			root := tc.setup(ts)
			_, err = ts.SnapshotService.Refresh(ctx, "alice", good.ID, root)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			// 失败只改状态和错误信息，设备列表保持上一次成功的结果
			after, err := ts.SnapshotService.Get(ctx, "alice", good.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, after.Status)
			assert.Contains(t, after.ErrorMessage, tc.wantMessage)
			assert.Equal(t, good.Devices, after.Devices)
			assert.Equal(t, good.DeviceCount, after.DeviceCount)
			assert.Equal(t, good.ConfigsRoot, after.ConfigsRoot)
			assert.Equal(t, good.LastIngestedAt, after.LastIngestedAt)
			assert.Greater(t, after.UpdatedAt, good.UpdatedAt)
		})
	}
}

func TestSnapshotService_NewRecordFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)

	_, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", filepath.Join(ts.ConfigsRoot, "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrConfigsRootNotFound)

	snap, err := ts.SnapshotService.GetByName(ctx, "alice", "incident_001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, snap.Status)
	assert.Equal(t, []string{}, snap.Devices)
	assert.Zero(t, snap.DeviceCount)
	assert.Nil(t, snap.LastIngestedAt)
	ts.MockBatfish.AssertNotCalled(t, "InitSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotService_CancelledCallerStillFinishes(t *testing.T) {
	t.Parallel()

	ts := setupTestServices(t)
	ts.expectLoad()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, snap.Status)
}

func TestSnapshotService_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)

	require.NoError(t, ts.SnapshotService.Delete(ctx, "alice", snap.ID))

	_, err = ts.SnapshotService.Get(ctx, "alice", snap.ID)
	assert.ErrorIs(t, err, apierror.ErrSnapshotNotFound)
	_, err = ts.SnapshotService.GetByName(ctx, "alice", "incident_001")
	assert.ErrorIs(t, err, apierror.ErrSnapshotNotFound)
	_, err = ts.SnapshotService.Refresh(ctx, "alice", snap.ID, "")
	assert.ErrorIs(t, err, apierror.ErrSnapshotNotFound)
	assert.ErrorIs(t, ts.SnapshotService.Delete(ctx, "alice", snap.ID), apierror.ErrSnapshotNotFound)

	// 已删除的名字不会复活，新建记录拿到新 ID
	recreated, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
	require.NoError(t, err)
	assert.NotEqual(t, snap.ID, recreated.ID)

	// 后端快照不卸载，注册表里的旧记录仍在
	var count int64
	require.NoError(t, ts.Repo.DB().Model(&model.Snapshot{}).Where("owner_id = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSnapshotService_List_Order(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)
	ts.expectLoad()

	first, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "first", "")
	require.NoError(t, err)
	ts.Clock.Advance(time.Minute)
	second, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "second", "")
	require.NoError(t, err)
	ts.Clock.Advance(time.Minute)

	list, err := ts.SnapshotService.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	// 刷新后排到最前
	_, err = ts.SnapshotService.Refresh(ctx, "alice", first.ID, "")
	require.NoError(t, err)
	list, err = ts.SnapshotService.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestSnapshotService_Archive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	testcases := []struct {
		name       string
		archiveErr error
	}{
		{name: "archived"},
		{name: "archive failure is ignored", archiveErr: errors.New("bucket not found")},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			archiver := &mockArchiver{}
			ts := setupTestServices(t, WithArchiver(archiver))
			ts.expectLoad()
			archiver.On("Archive", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(tc.archiveErr)

			snap, err := ts.SnapshotService.CreateOrRefresh(ctx, "alice", "incident_001", "")
			require.NoError(t, err)
			assert.Equal(t, model.StatusActive, snap.Status)
			archiver.AssertCalled(t, "Archive", mock.Anything, snap.IsolationKey, filepath.Join(ts.SnapshotRoot, snap.IsolationKey))
		})
	}
}

func TestSnapshotService_InvalidArguments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := setupTestServices(t)

	testcases := []struct {
		name  string
		owner string
		snap  string
	}{
		{name: "empty owner", owner: "", snap: "incident"},
		{name: "owner with separator", owner: "../alice", snap: "incident"},
		{name: "empty name", owner: "alice", snap: " "},
		{name: "name with separator", owner: "alice", snap: "a/b"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ts.SnapshotService.CreateOrRefresh(ctx, tc.owner, tc.snap, "")
			assert.ErrorIs(t, err, apierror.ErrInvalidParameter)
		})
	}
}

func TestSnapshotModelToEntity(t *testing.T) {
	t.Parallel()

	ingested := int64(42)
	e, err := snapshotModelToEntity(&model.Snapshot{
		ID:             "snap_1",
		Name:           "n",
		IsolationKey:   "o_snap_1",
		OwnerID:        "o",
		Status:         model.StatusActive,
		LastIngestedAt: &ingested,
	})
	require.NoError(t, err)
	assert.Equal(t, "o_snap_1", e.IsolationKey)
	assert.Equal(t, []string{}, e.Devices)
	require.NotNil(t, e.LastIngestedAt)
	assert.Equal(t, int64(42), *e.LastIngestedAt)
}
