package model

// 快照状态
const (
	StatusProcessing = "processing"
	StatusActive     = "active"
	StatusFailed     = "failed"
	StatusDeleted    = "deleted"
)

// Snapshot 快照表
// 时间字段均为 unix 秒，由 service 层显式写入
type Snapshot struct {
	ID             string   `gorm:"primaryKey;type:text;column:id" json:"id"` // snap_{sonyflake}
	Name           string   `gorm:"type:text;not null;column:name" json:"name"`
	IsolationKey   string   `gorm:"type:text;not null;uniqueIndex:idx_snapshots_isolation_key;column:isolation_key" json:"isolation_key"` // {owner_id}_{id}
	OwnerID        string   `gorm:"type:text;not null;index:idx_snapshots_owner_id;column:owner_id" json:"owner_id"`
	ConfigsRoot    string   `gorm:"type:text;column:configs_root" json:"configs_root"`
	DeviceCount    int      `gorm:"type:integer;not null;default:0;column:device_count" json:"device_count"`
	Devices        []string `gorm:"serializer:json;type:text;column:devices" json:"devices"` // 发现顺序
	Status         string   `gorm:"type:text;not null;index:idx_snapshots_status;column:status" json:"status"`
	ErrorMessage   string   `gorm:"type:text;column:error_message" json:"error_message"`
	CreatedAt      int64    `gorm:"autoCreateTime:false;not null;column:created_at" json:"created_at"`
	UpdatedAt      int64    `gorm:"autoUpdateTime:false;not null;index:idx_snapshots_updated_at;column:updated_at" json:"updated_at"`
	LastIngestedAt *int64   `gorm:"column:last_ingested_at" json:"last_ingested_at"`
}

// TableName 指定表名
func (Snapshot) TableName() string {
	return "snapshots"
}
