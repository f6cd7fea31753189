package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLocker_Exclusive(t *testing.T) {
	t.Parallel()

	l := NewFileLocker(t.TempDir(), 300*time.Millisecond)
	ctx := context.Background()

	h, err := l.Lock(ctx, "alice_snap_1")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "alice_snap_1")
	assert.ErrorIs(t, err, ErrTimeout)

	// 不同 key 互不影响
	other, err := l.Lock(ctx, "bob_snap_2")
	require.NoError(t, err)
	require.NoError(t, other.Unlock(ctx))

	require.NoError(t, h.Unlock(ctx))
	require.NoError(t, h.Unlock(ctx))

	h, err = l.Lock(ctx, "alice_snap_1")
	require.NoError(t, err)
	require.NoError(t, h.Unlock(ctx))
}

func TestFileLocker_ContextCancel(t *testing.T) {
	t.Parallel()

	l := NewFileLocker(t.TempDir(), 0)
	h, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer h.Unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileLocker_Path(t *testing.T) {
	t.Parallel()

	l := NewFileLocker("/data/snapshots/.locks", time.Second)
	assert.Equal(t, "/data/snapshots/.locks/a_b.lock", l.Path("a/b"))
}

func TestWithLock_Serializes(t *testing.T) {
	t.Parallel()

	l := NewFileLocker(t.TempDir(), 5*time.Second)
	var inside, maxInside int32
	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- WithLock(context.Background(), l, "same", func() error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestWithLock_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := WithLock(context.Background(), NewFileLocker(t.TempDir(), time.Second), "k", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPGLocker_NoDB(t *testing.T) {
	t.Parallel()

	_, err := NewPGLocker(nil, time.Second).Lock(context.Background(), "k")
	assert.Error(t, err)
}

func TestKeyFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KeyFromString("alice_snap_1"), KeyFromString("alice_snap_1"))
	assert.NotEqual(t, KeyFromString("alice_snap_1"), KeyFromString("alice_snap_2"))
}
