// Package netrca 提供 netrca 服务器的主入口和初始化逻辑
package netrca

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jimmicro/grace"
	"github.com/jimyag/netrca/internal/netrca/api"
	"github.com/jimyag/netrca/internal/netrca/config"
	"github.com/jimyag/netrca/internal/netrca/lock"
	"github.com/jimyag/netrca/internal/netrca/repository"
	"github.com/jimyag/netrca/internal/netrca/service"
	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg  *config.Config
	repo *repository.Repository
	api  *api.API

	snapshotService *service.SnapshotService
	toolService     *service.ToolService
}

func New(cfg *config.Config) (*Server, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	// 1. 注册表
	repo, err := repository.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	logger.Info().Str("driver", repo.Driver()).Msg("Snapshot registry ready")

	// 2. 刷新锁：PostgreSQL 上用 advisory lock，多实例之间也互斥
	locker, err := newLocker(cfg, repo)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	// 3. 后端客户端工厂，每次调用创建新客户端
	newClient := func() (batfish.Client, error) {
		return batfish.New(batfish.Config{
			Host:          cfg.Batfish.Host,
			Port:          cfg.Batfish.Port,
			UseTLS:        cfg.Batfish.UseTLS,
			APIKey:        cfg.Batfish.APIKey,
			Timeout:       cfg.Batfish.RequestTimeout,
			HealthTimeout: cfg.Batfish.HealthTimeout,
		})
	}

	// 4. Service
	opts := []service.SnapshotServiceOption{}
	if cfg.Archive.Enabled {
		archiver, err := service.NewObjectStoreArchiver(service.ArchiveConfig{
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("create archiver: %w", err)
		}
		opts = append(opts, service.WithArchiver(archiver))
		logger.Info().Str("endpoint", cfg.Archive.Endpoint).Str("bucket", cfg.Archive.Bucket).Msg("Snapshot archive enabled")
	}

	snapshotService := service.NewSnapshotService(
		repo,
		service.NewStager(cfg.Snapshot.Root),
		service.NewLoader(newClient, cfg.Batfish.Network),
		locker,
		cfg.Snapshot.DefaultConfigsRoot,
		opts...,
	)
	toolService := service.NewToolService(snapshotService, newClient, cfg.Batfish.Network, cfg.Batfish.Host, cfg.Batfish.Port)

	// 5. API
	apiInstance, err := api.New(cfg, snapshotService, toolService)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return &Server{
		cfg:             cfg,
		repo:            repo,
		api:             apiInstance,
		snapshotService: snapshotService,
		toolService:     toolService,
	}, nil
}

func newLocker(cfg *config.Config, repo *repository.Repository) (lock.Locker, error) {
	if repo.Driver() == repository.DriverPostgres {
		db, err := repo.SQLDB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		return lock.NewPGLocker(db, cfg.Snapshot.LockTimeout), nil
	}
	return lock.NewFileLocker(cfg.LockDir(), cfg.Snapshot.LockTimeout), nil
}

// Snapshots 快照注册表，供 CLI 直接调用
func (s *Server) Snapshots() *service.SnapshotService {
	return s.snapshotService
}

// Tools RCA 工具分发，供 CLI 直接调用
func (s *Server) Tools() *service.ToolService {
	return s.toolService
}

func (s *Server) Run(ctx context.Context) error {
	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	return s.Close()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.api.Shutdown(ctx)
}

// Close 释放数据库连接
func (s *Server) Close() error {
	return s.repo.Close()
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "netrca Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
