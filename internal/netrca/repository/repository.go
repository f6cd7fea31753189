// Package repository 提供数据持久化层实现
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // 注册 pgx database/sql 驱动
	"github.com/jimyag/netrca/internal/netrca/repository/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动，不需要 CGO
)

// 支持的数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Repository 数据库仓库
type Repository struct {
	db     *gorm.DB
	driver string
}

// New 创建新的 Repository 实例
// sqlite 的 dsn 为数据库文件路径，postgres 的 dsn 为连接串
func New(driver, dsn string) (*Repository, error) {
	var (
		dialector gorm.Dialector
		sqlDB     *sql.DB
		err       error
	)
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		// 确保数据库目录存在
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		sqlDB, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// SQLite 单写者，避免并发写入时 database is locked
		sqlDB.SetMaxOpenConns(1)
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: dsn, Conn: sqlDB}
	case DriverPostgres:
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	// 自动迁移
	if err := db.AutoMigrate(&model.Snapshot{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	if err := createIndexes(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return &Repository{db: db, driver: driver}, nil
}

// DB 返回 GORM 数据库实例（用于 Repository 实现）
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Driver 返回数据库驱动名
func (r *Repository) Driver() string {
	return r.driver
}

// SQLDB 返回底层连接池，advisory lock 需要独占连接
func (r *Repository) SQLDB() (*sql.DB, error) {
	return r.db.DB()
}

// Close 关闭数据库连接
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// createIndexes 创建额外的索引和唯一约束
func createIndexes(db *gorm.DB) error {
	// 同一 owner 下未删除快照的名字唯一，已删除的名字可以复用
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_owner_name_live
		ON snapshots(owner_id, name)
		WHERE status <> 'deleted'
	`).Error; err != nil {
		return fmt.Errorf("create unique index on snapshots: %w", err)
	}
	return nil
}

// IsUniqueViolation 判断是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// unique_violation
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
