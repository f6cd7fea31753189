package batfish

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 Client 接口的 mock 实现，用于测试
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

// EnsureNetwork mock 实现
func (m *MockClient) EnsureNetwork(ctx context.Context, network string) error {
	args := m.Called(ctx, network)
	return args.Error(0)
}

// InitSnapshot mock 实现
func (m *MockClient) InitSnapshot(ctx context.Context, network, snapshot, dir string, overwrite bool) error {
	args := m.Called(ctx, network, snapshot, dir, overwrite)
	return args.Error(0)
}

// Session mock 实现
func (m *MockClient) Session(ctx context.Context, network, snapshot string) (Session, error) {
	args := m.Called(ctx, network, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Session), args.Error(1)
}

// Health mock 实现
func (m *MockClient) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSession 是 Session 接口的 mock 实现，按问题名返回预置表格
type MockSession struct {
	mock.Mock
	NetworkName  string
	SnapshotName string
}

var _ Session = (*MockSession)(nil)

// Network mock 实现
func (m *MockSession) Network() string { return m.NetworkName }

// Snapshot mock 实现
func (m *MockSession) Snapshot() string { return m.SnapshotName }

// Answer mock 实现，按 Question.Name 匹配
func (m *MockSession) Answer(ctx context.Context, q Question) (*Table, error) {
	args := m.Called(ctx, q.Name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Table), args.Error(1)
}
