package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tryLockSQL = `SELECT pg_try_advisory_lock($1)`
	unlockSQL  = `SELECT pg_advisory_unlock($1)`
)

func boolRow(col string, v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{col}).AddRow(v)
}

func newMockDB(t *testing.T, timeout time.Duration) (*PGLocker, sqlmock.Sqlmock) {
	t.Helper()
	db, sm, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPGLocker(db, timeout), sm
}

func TestPGLocker_LockUnlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, sm := newMockDB(t, time.Second)
	id := KeyFromString("alice_snap_1")

	// 第一次被别人持有，轮询后拿到
	sm.ExpectQuery(tryLockSQL).WithArgs(id).WillReturnRows(boolRow("pg_try_advisory_lock", false))
	sm.ExpectQuery(tryLockSQL).WithArgs(id).WillReturnRows(boolRow("pg_try_advisory_lock", true))
	sm.ExpectQuery(unlockSQL).WithArgs(id).WillReturnRows(boolRow("pg_advisory_unlock", true))

	h, err := locker.Lock(ctx, "alice_snap_1")
	require.NoError(t, err)
	require.NoError(t, h.Unlock(ctx))
	// 重复解锁不再访问数据库
	require.NoError(t, h.Unlock(ctx))
	require.NoError(t, sm.ExpectationsWereMet())
}

func TestPGLocker_Timeout(t *testing.T) {
	t.Parallel()

	locker, sm := newMockDB(t, time.Nanosecond)
	id := KeyFromString("alice_snap_1")
	sm.ExpectQuery(tryLockSQL).WithArgs(id).WillReturnRows(boolRow("pg_try_advisory_lock", false))

	_, err := locker.Lock(context.Background(), "alice_snap_1")
	assert.ErrorIs(t, err, ErrTimeout)
	require.NoError(t, sm.ExpectationsWereMet())
}

func TestPGLocker_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	id := KeyFromString("k")

	t.Run("query fails", func(t *testing.T) {
		t.Parallel()

		locker, sm := newMockDB(t, time.Second)
		boom := errors.New("conn reset")
		sm.ExpectQuery(tryLockSQL).WithArgs(id).WillReturnError(boom)

		_, err := locker.Lock(ctx, "k")
		assert.ErrorIs(t, err, boom)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("unlock without holding", func(t *testing.T) {
		t.Parallel()

		locker, sm := newMockDB(t, time.Second)
		sm.ExpectQuery(tryLockSQL).WithArgs(id).WillReturnRows(boolRow("pg_try_advisory_lock", true))
		sm.ExpectQuery(unlockSQL).WithArgs(id).WillReturnRows(boolRow("pg_advisory_unlock", false))

		h, err := locker.Lock(ctx, "k")
		require.NoError(t, err)
		err = h.Unlock(ctx)
		assert.ErrorContains(t, err, "advisory lock not held")
		require.NoError(t, sm.ExpectationsWereMet())
	})
}
