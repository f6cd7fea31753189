package batfish

import "context"

// Client 定义了 Batfish 后端的接口
// 实现必须是无状态的：每次调用都可以重新创建，不在调用之间缓存已绑定的 Session
type Client interface {
	// EnsureNetwork 确保逻辑网络存在，不存在时创建
	EnsureNetwork(ctx context.Context, network string) error
	// InitSnapshot 将目录打包上传为快照，overwrite 为 true 时先删除同名快照
	InitSnapshot(ctx context.Context, network, snapshot, dir string, overwrite bool) error
	// Session 绑定到指定快照，快照未加载时返回 ErrSnapshotNotFound
	Session(ctx context.Context, network, snapshot string) (Session, error)
	// Health 探测后端可达性，失败时返回 ErrUnreachable
	Health(ctx context.Context) error
}

// Session 绑定到某个快照的查询会话
type Session interface {
	Network() string
	Snapshot() string
	// Answer 执行一个问题并返回表格结果
	Answer(ctx context.Context, q Question) (*Table, error)
}
