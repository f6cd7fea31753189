package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// FileLocker 基于 flock 的文件锁，锁文件位于 dir/<key>.lock
// flock 绑定在打开的文件描述上，同一进程内的两次 Lock 同样互斥
type FileLocker struct {
	dir     string
	timeout time.Duration
}

var _ Locker = (*FileLocker)(nil)

// NewFileLocker 创建文件锁
func NewFileLocker(dir string, timeout time.Duration) *FileLocker {
	return &FileLocker{dir: dir, timeout: timeout}
}

// Path 返回 key 对应的锁文件路径
func (l *FileLocker) Path(key string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(key)
	return filepath.Join(l.dir, safe+".lock")
}

// Lock 获取锁
func (l *FileLocker) Lock(ctx context.Context, key string) (Handle, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := l.Path(key)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = poll(ctx, l.timeout, func() (bool, error) {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return false, nil
		}
		return false, err
	})
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("lock_path", path).Msg("Lock acquired")
	return &fileHandle{path: path, file: file}, nil
}

type fileHandle struct {
	path string
	file *os.File
}

// Unlock 释放锁，重复调用无副作用
func (h *fileHandle) Unlock(ctx context.Context) error {
	if h.file == nil {
		return nil
	}
	logger := zerolog.Ctx(ctx)
	if err := syscall.Flock(int(h.file.Fd()), syscall.LOCK_UN); err != nil {
		logger.Warn().Err(err).Str("lock_path", h.path).Msg("Failed to unlock file")
	}
	if err := h.file.Close(); err != nil {
		logger.Warn().Err(err).Str("lock_path", h.path).Msg("Failed to close lock file")
	}
	h.file = nil
	logger.Debug().Str("lock_path", h.path).Msg("Lock released")
	return nil
}
