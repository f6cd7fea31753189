package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/pkg/ginx"
	"github.com/rs/zerolog"
)

// SnapshotServiceInterface 定义快照注册表的接口
type SnapshotServiceInterface interface {
	CreateOrRefresh(ctx context.Context, ownerID, name, configsRoot string) (*entity.Snapshot, error)
	Create(ctx context.Context, ownerID, name, configsRoot string) (*entity.Snapshot, error)
	Refresh(ctx context.Context, ownerID, id, configsRoot string) (*entity.Snapshot, error)
	Get(ctx context.Context, ownerID, id string) (*entity.Snapshot, error)
	List(ctx context.Context, ownerID string) ([]entity.Snapshot, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type Snapshot struct {
	snapshotService SnapshotServiceInterface
}

func NewSnapshot(snapshotService SnapshotServiceInterface) *Snapshot {
	return &Snapshot{
		snapshotService: snapshotService,
	}
}

func (s *Snapshot) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/snapshot/refresh", ginx.Adapt5(s.CreateOrRefreshSnapshot))
	router.POST("/snapshots", ginx.Adapt5(s.CreateSnapshot))
	router.POST("/snapshot/:snapshot_id/refresh", ginx.Adapt5(s.RefreshSnapshot))
	router.GET("/snapshots", ginx.Adapt5(s.ListSnapshots))
	router.GET("/snapshot/:snapshot_id", ginx.Adapt5(s.DescribeSnapshot))
	router.DELETE("/snapshot/:snapshot_id", ginx.Adapt5(s.DeleteSnapshot))
}

func (s *Snapshot) CreateOrRefreshSnapshot(ctx *gin.Context, req *entity.CreateSnapshotRequest) (*entity.CreateSnapshotResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("owner_id", owner).
		Str("snapshot_name", req.Name).
		Str("configs_root", req.ConfigsRoot).
		Msg("CreateOrRefreshSnapshot called")

	snap, err := s.snapshotService.CreateOrRefresh(ctx, owner, req.Name, req.ConfigsRoot)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to refresh snapshot")
		return nil, err
	}
	return &entity.CreateSnapshotResponse{Snapshot: snap}, nil
}

func (s *Snapshot) CreateSnapshot(ctx *gin.Context, req *entity.CreateSnapshotRequest) (*entity.CreateSnapshotResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("owner_id", owner).
		Str("snapshot_name", req.Name).
		Msg("CreateSnapshot called")

	snap, err := s.snapshotService.Create(ctx, owner, req.Name, req.ConfigsRoot)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create snapshot")
		return nil, err
	}
	return &entity.CreateSnapshotResponse{Snapshot: snap}, nil
}

func (s *Snapshot) RefreshSnapshot(ctx *gin.Context, req *entity.RefreshSnapshotRequest) (*entity.RefreshSnapshotResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("owner_id", owner).
		Str("snapshot_id", req.SnapshotID).
		Msg("RefreshSnapshot called")

	snap, err := s.snapshotService.Refresh(ctx, owner, req.SnapshotID, req.ConfigsRoot)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to refresh snapshot")
		return nil, err
	}
	return &entity.RefreshSnapshotResponse{Snapshot: snap}, nil
}

func (s *Snapshot) DescribeSnapshot(ctx *gin.Context, req *entity.DescribeSnapshotRequest) (*entity.DescribeSnapshotResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshotService.Get(ctx, owner, req.SnapshotID)
	if err != nil {
		return nil, err
	}
	return &entity.DescribeSnapshotResponse{Snapshot: snap}, nil
}

func (s *Snapshot) ListSnapshots(ctx *gin.Context, req *entity.ListSnapshotsRequest) (*entity.ListSnapshotsResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	snaps, err := s.snapshotService.List(ctx, owner)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list snapshots")
		return nil, err
	}
	return &entity.ListSnapshotsResponse{Snapshots: snaps}, nil
}

func (s *Snapshot) DeleteSnapshot(ctx *gin.Context, req *entity.DeleteSnapshotRequest) (*entity.DeleteSnapshotResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.snapshotService.Delete(ctx, owner, req.SnapshotID); err != nil {
		return nil, err
	}
	return &entity.DeleteSnapshotResponse{SnapshotID: req.SnapshotID, Deleted: true}, nil
}
