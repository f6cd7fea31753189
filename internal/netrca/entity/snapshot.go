package entity

import (
	"fmt"
	"strings"
)

const (
	maxOwnerIDLen = 64
	maxNameLen    = 128
)

// Snapshot 描述快照信息
type Snapshot struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	IsolationKey   string   `json:"isolation_key"`
	OwnerID        string   `json:"owner_id"`
	ConfigsRoot    string   `json:"configs_root,omitempty"`
	DeviceCount    int      `json:"device_count"`
	Devices        []string `json:"devices"`
	Status         string   `json:"status"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
	LastIngestedAt *int64   `json:"last_ingested_at,omitempty"`
}

// CreateSnapshotRequest 创建快照请求
// 用于 create-or-refresh 和严格创建两个接口
type CreateSnapshotRequest struct {
	Name        string `json:"snapshot_name" form:"snapshot_name"`
	ConfigsRoot string `json:"configs_root,omitempty" form:"configs_root"`
	// UserID 仅 admin key 可用，代其他租户操作
	UserID string `json:"user_id,omitempty" form:"user_id"`
}

func (r *CreateSnapshotRequest) IsValid() error {
	return ValidateName(r.Name)
}

type CreateSnapshotResponse struct {
	Snapshot *Snapshot `json:"snapshot"`
}

// RefreshSnapshotRequest 刷新快照请求
type RefreshSnapshotRequest struct {
	SnapshotID  string `uri:"snapshot_id" json:"-"`
	ConfigsRoot string `json:"configs_root,omitempty" form:"configs_root"`
	UserID      string `json:"user_id,omitempty" form:"user_id"`
}

func (r *RefreshSnapshotRequest) IsValid() error {
	return validateID(r.SnapshotID)
}

type RefreshSnapshotResponse struct {
	Snapshot *Snapshot `json:"snapshot"`
}

// DescribeSnapshotRequest 查询快照详情请求
type DescribeSnapshotRequest struct {
	SnapshotID string `uri:"snapshot_id" json:"-"`
	UserID     string `json:"user_id,omitempty" form:"user_id"`
}

func (r *DescribeSnapshotRequest) IsValid() error {
	return validateID(r.SnapshotID)
}

type DescribeSnapshotResponse struct {
	Snapshot *Snapshot `json:"snapshot"`
}

// ListSnapshotsRequest 列举快照请求
type ListSnapshotsRequest struct {
	UserID string `json:"user_id,omitempty" form:"user_id"`
}

type ListSnapshotsResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// DeleteSnapshotRequest 删除快照请求
type DeleteSnapshotRequest struct {
	SnapshotID string `uri:"snapshot_id" json:"-"`
	UserID     string `json:"user_id,omitempty" form:"user_id"`
}

func (r *DeleteSnapshotRequest) IsValid() error {
	return validateID(r.SnapshotID)
}

type DeleteSnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
	Deleted    bool   `json:"deleted"`
}

// ValidateOwnerID 校验租户 ID，最终会出现在目录名中
func ValidateOwnerID(owner string) error {
	return validateSegment("owner_id", owner, maxOwnerIDLen)
}

// ValidateName 校验快照名字
func ValidateName(name string) error {
	return validateSegment("snapshot_name", name, maxNameLen)
}

func validateID(id string) error {
	return validateSegment("snapshot_id", id, maxNameLen)
}

func validateSegment(field, v string, maxLen int) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(v) > maxLen {
		return fmt.Errorf("%s must be at most %d characters", field, maxLen)
	}
	if strings.ContainsAny(v, `/\`) || v == "." || v == ".." || strings.ContainsRune(v, 0) {
		return fmt.Errorf("%s must not contain path separators", field)
	}
	return nil
}
