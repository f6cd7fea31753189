package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jimyag/netrca/internal/netrca/lock"
	"github.com/jimyag/netrca/internal/netrca/repository"
	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testNetwork = "gns3_network"

// TestServices 包含测试所需的服务和依赖
type TestServices struct {
	Repo            *repository.Repository
	MockBatfish     *batfish.MockClient
	Clock           *fakeClock
	SnapshotRoot    string
	ConfigsRoot     string
	Stager          *Stager
	SnapshotService *SnapshotService
}

// setupTestServices 为每个测试用例创建独立的数据库、暂存目录和 mock 后端
func setupTestServices(t *testing.T, opts ...SnapshotServiceOption) *TestServices {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := repository.New(repository.DriverSQLite, filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(tmpDir)
	})

	snapshotRoot := filepath.Join(tmpDir, "snapshots")
	configsRoot := filepath.Join(tmpDir, "gns3")
	writeConfig(t, configsRoot, "r1/startup-config.cfg", "!\nhostname R1\n!")
	writeConfig(t, configsRoot, "r2/startup-config.cfg", "!\nhostname R2\n!")

	mockBatfish := &batfish.MockClient{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	stager := NewStager(snapshotRoot)
	loader := NewLoader(func() (batfish.Client, error) { return mockBatfish, nil }, testNetwork)
	locker := lock.NewFileLocker(filepath.Join(snapshotRoot, ".locks"), 5*time.Second)

	opts = append([]SnapshotServiceOption{WithClock(clock.Now)}, opts...)
	svc := NewSnapshotService(repo, stager, loader, locker, configsRoot, opts...)

	return &TestServices{
		Repo:            repo,
		MockBatfish:     mockBatfish,
		Clock:           clock,
		SnapshotRoot:    snapshotRoot,
		ConfigsRoot:     configsRoot,
		Stager:          stager,
		SnapshotService: svc,
	}
}

// expectLoad 后端加载成功
func (ts *TestServices) expectLoad() {
	ts.MockBatfish.On("EnsureNetwork", mock.Anything, testNetwork).Return(nil)
	ts.MockBatfish.On("InitSnapshot", mock.Anything, testNetwork, mock.AnythingOfType("string"), mock.AnythingOfType("string"), true).Return(nil)
}

func writeConfig(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.cfg"))
	require.NoError(t, err)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}

// fakeClock 可手动推进的时间源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockArchiver Archiver 的 mock 实现
type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Archive(ctx context.Context, isolationKey, dir string) error {
	args := m.Called(ctx, isolationKey, dir)
	return args.Error(0)
}
