// Package lock 提供按隔离键串行化快照刷新的锁
//
// 单实例部署使用 flock 文件锁，注册表跑在 PostgreSQL 上时使用 advisory lock，
// 多个实例之间也能互斥。
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout 在超时时间内没有拿到锁
var ErrTimeout = errors.New("lock timeout")

// pollInterval 非阻塞加锁失败后的重试间隔
const pollInterval = 100 * time.Millisecond

// Handle 已持有的锁
type Handle interface {
	Unlock(ctx context.Context) error
}

// Locker 按 key 加互斥锁
type Locker interface {
	Lock(ctx context.Context, key string) (Handle, error)
}

// WithLock 持有 key 对应的锁执行 fn
func WithLock(ctx context.Context, l Locker, key string, fn func() error) error {
	h, err := l.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	defer func() {
		_ = h.Unlock(context.WithoutCancel(ctx))
	}()
	return fn()
}

// poll 反复调用 try 直到成功、超时或 ctx 取消
// timeout 为 0 表示只受 ctx 约束
func poll(ctx context.Context, timeout time.Duration, try func() (bool, error)) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
