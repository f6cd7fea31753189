// Package service 提供业务逻辑层的服务实现
// 包括快照注册表（SnapshotService）和 RCA 工具分发（ToolService）
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/internal/netrca/lock"
	"github.com/jimyag/netrca/internal/netrca/repository"
	"github.com/jimyag/netrca/internal/netrca/repository/model"
	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/idgen"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SnapshotService 快照注册表
// 所有操作都带 ownerID，只能看到和修改自己名下未删除的快照
type SnapshotService struct {
	snapshotRepo       repository.SnapshotRepository
	stager             *Stager
	loader             *Loader
	locker             lock.Locker
	archiver           Archiver
	idGen              *idgen.Generator
	defaultConfigsRoot string
	now                func() time.Time
}

// SnapshotServiceOption 可选配置
type SnapshotServiceOption func(*SnapshotService)

// WithArchiver 加载成功后把暂存目录归档
func WithArchiver(a Archiver) SnapshotServiceOption {
	return func(s *SnapshotService) {
		s.archiver = a
	}
}

// WithClock 替换时间源
func WithClock(now func() time.Time) SnapshotServiceOption {
	return func(s *SnapshotService) {
		s.now = now
	}
}

// NewSnapshotService 创建快照注册表
func NewSnapshotService(
	repo *repository.Repository,
	stager *Stager,
	loader *Loader,
	locker lock.Locker,
	defaultConfigsRoot string,
	opts ...SnapshotServiceOption,
) *SnapshotService {
	s := &SnapshotService{
		snapshotRepo:       repository.NewSnapshotRepository(repo.DB()),
		stager:             stager,
		loader:             loader,
		locker:             locker,
		idGen:              idgen.New(),
		defaultConfigsRoot: defaultConfigsRoot,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrRefresh 按名字幂等地创建或刷新快照
// 名字已存在时在原 ID 上重新 ingest，否则插入新记录后 ingest
func (s *SnapshotService) CreateOrRefresh(ctx context.Context, ownerID, name, configsRoot string) (*entity.Snapshot, error) {
	if err := validateOwnerAndName(ownerID, name); err != nil {
		return nil, err
	}
	// 插入的 processing 记录必须走完 ingest
	ctx = context.WithoutCancel(ctx)

	existing, err := s.snapshotRepo.GetByName(ctx, ownerID, name)
	switch {
	case err == nil:
		return s.ingest(ctx, ownerID, existing.ID, configsRoot)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to query snapshot", err)
	}

	record, err := s.insert(ctx, ownerID, name, configsRoot)
	if repository.IsUniqueViolation(err) {
		// 并发创建同名快照，输的一方转为刷新
		existing, err = s.snapshotRepo.GetByName(ctx, ownerID, name)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to query snapshot", err)
		}
		return s.ingest(ctx, ownerID, existing.ID, configsRoot)
	}
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to create snapshot", err)
	}
	return s.ingest(ctx, ownerID, record.ID, configsRoot)
}

// Create 严格创建，同名快照已存在时返回 SnapshotConflict
func (s *SnapshotService) Create(ctx context.Context, ownerID, name, configsRoot string) (*entity.Snapshot, error) {
	if err := validateOwnerAndName(ownerID, name); err != nil {
		return nil, err
	}
	// 插入的 processing 记录必须走完 ingest
	ctx = context.WithoutCancel(ctx)

	existing, err := s.snapshotRepo.GetByName(ctx, ownerID, name)
	switch {
	case err == nil:
		return nil, conflict(name, existing.ID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to query snapshot", err)
	}

	record, err := s.insert(ctx, ownerID, name, configsRoot)
	if repository.IsUniqueViolation(err) {
		if existing, getErr := s.snapshotRepo.GetByName(ctx, ownerID, name); getErr == nil {
			return nil, conflict(name, existing.ID)
		}
		return nil, apierror.WrapError(apierror.ErrSnapshotConflict,
			fmt.Sprintf("Snapshot '%s' already exists. Use refresh to update it.", name), err)
	}
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to create snapshot", err)
	}
	return s.ingest(ctx, ownerID, record.ID, configsRoot)
}

// Refresh 在已有快照上重新 ingest
func (s *SnapshotService) Refresh(ctx context.Context, ownerID, id, configsRoot string) (*entity.Snapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	return s.ingest(ctx, ownerID, id, configsRoot)
}

// Get 按 ID 查询快照
func (s *SnapshotService) Get(ctx context.Context, ownerID, id string) (*entity.Snapshot, error) {
	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.toEntity(record)
}

// GetByName 按名字查询快照
func (s *SnapshotService) GetByName(ctx context.Context, ownerID, name string) (*entity.Snapshot, error) {
	if err := validateOwnerAndName(ownerID, name); err != nil {
		return nil, err
	}
	record, err := s.snapshotRepo.GetByName(ctx, ownerID, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.WrapError(apierror.ErrSnapshotNotFound,
			fmt.Sprintf("Snapshot '%s' not found.", name), nil)
	}
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to query snapshot", err)
	}
	return s.toEntity(record)
}

// List 列出 owner 名下未删除的快照，最近更新的在前
func (s *SnapshotService) List(ctx context.Context, ownerID string) ([]entity.Snapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	records, err := s.snapshotRepo.List(ctx, ownerID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to list snapshots", err)
	}
	out := make([]entity.Snapshot, 0, len(records))
	for _, r := range records {
		e, err := s.toEntity(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// Delete 软删除快照，后端已加载的快照不卸载
func (s *SnapshotService) Delete(ctx context.Context, ownerID, id string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	err := s.snapshotRepo.MarkDeleted(ctx, ownerID, id, s.now().Unix())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(id)
	}
	if err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to delete snapshot", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("owner_id", ownerID).
		Str("snapshot_id", id).
		Msg("Snapshot deleted")
	return nil
}

func (s *SnapshotService) insert(ctx context.Context, ownerID, name, configsRoot string) (*model.Snapshot, error) {
	id, err := s.idGen.GenerateSnapshotID()
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	record := &model.Snapshot{
		ID:           id,
		Name:         name,
		IsolationKey: isolationKey(ownerID, id),
		OwnerID:      ownerID,
		ConfigsRoot:  configsRoot,
		Devices:      []string{},
		Status:       model.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.snapshotRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("owner_id", ownerID).
		Str("snapshot_id", id).
		Str("snapshot_name", name).
		Msg("Snapshot record created")
	return record, nil
}

// ingest 在隔离键锁内执行 暂存 -> 加载 -> 落库
// 调用方断开不会中断流程，记录不会卡在 processing
func (s *SnapshotService) ingest(ctx context.Context, ownerID, id, configsRoot string) (*entity.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	logger := zerolog.Ctx(ctx)

	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	key := record.IsolationKey

	start := time.Now()
	err = lock.WithLock(ctx, s.locker, key, func() error {
		// 锁内重新读取，拿到上一个持锁者写入的最新状态
		fresh, err := s.getOwned(ctx, ownerID, id)
		if err != nil {
			return err
		}
		record = fresh
		return s.runIngest(ctx, record, configsRoot)
	})
	if err != nil {
		if _, ok := apierror.As(err); !ok {
			err = lockFailed(id, err)
		}
		ingestTotal.WithLabelValues(resultLabel(err)).Inc()
		logger.Error().Err(err).
			Str("snapshot_id", id).
			Str("isolation_key", key).
			Msg("Snapshot ingest failed")
		return nil, err
	}
	ingestTotal.WithLabelValues(resultLabel(nil)).Inc()
	ingestDuration.Observe(time.Since(start).Seconds())

	return s.toEntity(record)
}

func (s *SnapshotService) runIngest(ctx context.Context, record *model.Snapshot, configsRoot string) error {
	logger := zerolog.Ctx(ctx)
	root := s.resolveConfigsRoot(configsRoot, record.ConfigsRoot)

	record.Status = model.StatusProcessing
	record.ErrorMessage = ""
	record.UpdatedAt = s.now().Unix()
	if err := s.snapshotRepo.Update(ctx, record, "status", "error_message", "updated_at"); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to update snapshot", err)
	}

	logger.Info().
		Str("snapshot_id", record.ID).
		Str("isolation_key", record.IsolationKey).
		Str("configs_root", root).
		Msg("Ingesting snapshot")

	devices, err := s.stager.Stage(ctx, record.IsolationKey, root)
	if err != nil {
		return s.markFailed(ctx, record, err)
	}
	dir := s.stager.Dir(record.IsolationKey)
	if err := s.loader.Load(ctx, record.IsolationKey, dir); err != nil {
		return s.markFailed(ctx, record, err)
	}

	now := s.now().Unix()
	record.Devices = devices
	record.DeviceCount = len(devices)
	record.ConfigsRoot = root
	record.Status = model.StatusActive
	record.ErrorMessage = ""
	record.UpdatedAt = now
	record.LastIngestedAt = &now
	if err := s.snapshotRepo.Update(ctx, record,
		"devices", "device_count", "configs_root", "status", "error_message", "updated_at", "last_ingested_at",
	); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to update snapshot", err)
	}

	logger.Info().
		Str("snapshot_id", record.ID).
		Int("device_count", record.DeviceCount).
		Msg("Snapshot active")

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, record.IsolationKey, dir); err != nil {
			logger.Warn().Err(err).
				Str("snapshot_id", record.ID).
				Msg("Failed to archive staged snapshot")
		}
	}
	return nil
}

// markFailed 只更新状态和错误信息，设备相关字段保持上一次成功的值
func (s *SnapshotService) markFailed(ctx context.Context, record *model.Snapshot, cause error) error {
	record.Status = model.StatusFailed
	record.ErrorMessage = errorMessage(cause)
	record.UpdatedAt = s.now().Unix()
	if err := s.snapshotRepo.Update(ctx, record, "status", "error_message", "updated_at"); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("snapshot_id", record.ID).
			Msg("Failed to mark snapshot failed")
	}
	return cause
}

func (s *SnapshotService) getOwned(ctx context.Context, ownerID, id string) (*model.Snapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	record, err := s.snapshotRepo.GetOwned(ctx, ownerID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to query snapshot", err)
	}
	return record, nil
}

func (s *SnapshotService) resolveConfigsRoot(arg, recorded string) string {
	switch {
	case arg != "":
		return arg
	case recorded != "":
		return recorded
	default:
		return s.defaultConfigsRoot
	}
}

func (s *SnapshotService) toEntity(m *model.Snapshot) (*entity.Snapshot, error) {
	e, err := snapshotModelToEntity(m)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to convert snapshot", err)
	}
	return e, nil
}

// isolationKey 后端快照名和暂存目录名
func isolationKey(ownerID, id string) string {
	return ownerID + "_" + id
}

func notFound(id string) error {
	return apierror.WrapError(apierror.ErrSnapshotNotFound, fmt.Sprintf("Snapshot %s not found.", id), nil)
}

func conflict(name, existingID string) error {
	return apierror.WrapError(apierror.ErrSnapshotConflict,
		fmt.Sprintf("Snapshot '%s' already exists with id %s. Use refresh to update it.", name, existingID), nil)
}

func lockFailed(id string, err error) error {
	if errors.Is(err, lock.ErrTimeout) {
		return apierror.WrapError(apierror.ErrSnapshotConflict,
			fmt.Sprintf("Snapshot %s is being refreshed by another request. Retry later.", id), err)
	}
	return apierror.WrapError(apierror.ErrInternalError, "Failed to acquire snapshot lock", err)
}

// errorMessage 落库的错误信息，优先使用面向调用方的消息
func errorMessage(err error) string {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

func validateOwner(ownerID string) error {
	if err := entity.ValidateOwnerID(ownerID); err != nil {
		return apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
	}
	return nil
}

func validateOwnerAndName(ownerID, name string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	if err := entity.ValidateName(name); err != nil {
		return apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
	}
	return nil
}
