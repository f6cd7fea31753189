package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/rs/zerolog"
)

// ClientFactory 每次调用创建一个新的后端客户端，不跨请求复用会话
type ClientFactory func() (batfish.Client, error)

// Loader 把暂存目录加载为后端快照
type Loader struct {
	newClient ClientFactory
	network   string
}

// NewLoader 创建 Loader，network 为所有租户共享的逻辑网络
func NewLoader(newClient ClientFactory, network string) *Loader {
	return &Loader{newClient: newClient, network: network}
}

// Load 以覆盖方式把 stagedDir 加载为名为 isolationKey 的快照
func (l *Loader) Load(ctx context.Context, isolationKey, stagedDir string) error {
	logger := zerolog.Ctx(ctx)

	client, err := l.newClient()
	if err != nil {
		return loadFailed(isolationKey, err)
	}
	if err := client.EnsureNetwork(ctx, l.network); err != nil {
		return loadFailed(isolationKey, err)
	}
	if err := client.InitSnapshot(ctx, l.network, isolationKey, stagedDir, true); err != nil {
		return loadFailed(isolationKey, err)
	}

	logger.Info().
		Str("network", l.network).
		Str("snapshot", isolationKey).
		Msg("Snapshot loaded into Batfish")
	return nil
}

// loadFailed 保留后端原始错误；连接失败时同时满足 BackendUnreachable
func loadFailed(isolationKey string, err error) error {
	loadErr := apierror.WrapError(apierror.ErrSnapshotLoadFailed,
		fmt.Sprintf("Batfish failed to load snapshot %s: %v", isolationKey, err), err)
	if errors.Is(err, batfish.ErrUnreachable) {
		return apierror.WrapError(apierror.ErrBackendUnreachable,
			fmt.Sprintf("Batfish is unreachable while loading snapshot %s: %v", isolationKey, err), loadErr)
	}
	return loadErr
}
