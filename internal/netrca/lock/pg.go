package lock

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// KeyFromString 把隔离键映射为 advisory lock 使用的 int64
func KeyFromString(s string) int64 {
	sum := sha256.Sum256([]byte("netrca:snapshot:" + s))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

// PGLocker 基于 PostgreSQL advisory lock 的分布式锁
//
// advisory lock 绑定在数据库会话上，加锁和解锁必须在同一个连接上执行，
// 因此每次加锁都从连接池中独占一个 *sql.Conn，直到解锁才归还。
type PGLocker struct {
	db      *sql.DB
	timeout time.Duration
}

var _ Locker = (*PGLocker)(nil)

// NewPGLocker 创建 advisory lock
func NewPGLocker(db *sql.DB, timeout time.Duration) *PGLocker {
	return &PGLocker{db: db, timeout: timeout}
}

// Lock 获取锁
func (l *PGLocker) Lock(ctx context.Context, key string) (Handle, error) {
	if l.db == nil {
		return nil, fmt.Errorf("db unavailable")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	id := KeyFromString(key)
	err = poll(ctx, l.timeout, func() (bool, error) {
		var ok bool
		if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, id).Scan(&ok); err != nil {
			return false, err
		}
		return ok, nil
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &pgHandle{conn: conn, key: id}, nil
}

type pgHandle struct {
	conn *sql.Conn
	key  int64
	once sync.Once
}

// Unlock 释放锁并归还连接
func (h *pgHandle) Unlock(ctx context.Context) error {
	var unlockErr error
	h.once.Do(func() {
		var ok bool
		unlockErr = h.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, h.key).Scan(&ok)
		if unlockErr == nil && !ok {
			unlockErr = fmt.Errorf("advisory lock not held for key %d", h.key)
		}
		if closeErr := h.conn.Close(); unlockErr == nil && closeErr != nil {
			unlockErr = closeErr
		}
		h.conn = nil
	})
	return unlockErr
}
