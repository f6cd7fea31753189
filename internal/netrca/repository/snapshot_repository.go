package repository

import (
	"context"

	"github.com/jimyag/netrca/internal/netrca/repository/model"
	"gorm.io/gorm"
)

// SnapshotRepository 快照仓库接口
// 除 Create 外的查询都限定 owner，且排除已删除的记录；找不到时返回 gorm.ErrRecordNotFound
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *model.Snapshot) error
	GetOwned(ctx context.Context, ownerID, id string) (*model.Snapshot, error)
	GetByName(ctx context.Context, ownerID, name string) (*model.Snapshot, error)
	List(ctx context.Context, ownerID string) ([]*model.Snapshot, error)
	// Update 更新快照，columns 为空时保存全部字段
	Update(ctx context.Context, snapshot *model.Snapshot, columns ...string) error
	MarkDeleted(ctx context.Context, ownerID, id string, now int64) error
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建快照仓库
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) live(ctx context.Context, ownerID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("status <> ?", model.StatusDeleted)
}

// Create 创建快照
func (r *snapshotRepository) Create(ctx context.Context, snapshot *model.Snapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// GetOwned 根据 owner 和 ID 获取快照
func (r *snapshotRepository) GetOwned(ctx context.Context, ownerID, id string) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := r.live(ctx, ownerID).Where("id = ?", id).First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetByName 根据 owner 和名字获取快照
func (r *snapshotRepository) GetByName(ctx context.Context, ownerID, name string) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := r.live(ctx, ownerID).Where("name = ?", name).First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List 列出 owner 的快照，最近更新的在前
func (r *snapshotRepository) List(ctx context.Context, ownerID string) ([]*model.Snapshot, error) {
	var snapshots []*model.Snapshot
	err := r.live(ctx, ownerID).
		Order("updated_at DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Update 更新快照
func (r *snapshotRepository) Update(ctx context.Context, snapshot *model.Snapshot, columns ...string) error {
	if len(columns) == 0 {
		return r.db.WithContext(ctx).Save(snapshot).Error
	}
	return r.db.WithContext(ctx).Model(snapshot).Select(columns).Updates(snapshot).Error
}

// MarkDeleted 软删除快照
func (r *snapshotRepository) MarkDeleted(ctx context.Context, ownerID, id string, now int64) error {
	result := r.live(ctx, ownerID).
		Model(&model.Snapshot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.StatusDeleted,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
