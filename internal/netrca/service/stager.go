package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/idgen"
	"github.com/rs/zerolog"
)

const (
	startupConfigSuffix = "startup-config.cfg"
	configExt           = ".cfg"
	stagedConfigsDir    = "configs"
)

var hostnameRe = regexp.MustCompile(`(?m)^hostname\s+(\S+)`)

// Stager 把设备配置复制到 <root>/<isolation_key>/configs/ 下
// 只访问文件系统
type Stager struct {
	root string
}

// NewStager 创建 Stager，root 为快照暂存根目录
func NewStager(root string) *Stager {
	return &Stager{root: root}
}

// Dir 返回隔离键对应的快照目录，即上传给后端的目录
func (s *Stager) Dir(isolationKey string) string {
	return filepath.Join(s.root, isolationKey)
}

// Stage 发现 configsRoot 下的设备配置并暂存，返回按发现顺序排列的设备名
// 每个暂存文件对应一个设备，设备名即暂存文件名（不含扩展名）
func (s *Stager) Stage(ctx context.Context, isolationKey, configsRoot string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(configsRoot)
	if err != nil || !info.IsDir() {
		return nil, apierror.WrapError(apierror.ErrConfigsRootNotFound,
			fmt.Sprintf("Configs root %s does not exist or is not a directory.", configsRoot), err)
	}

	src, err := resolvePath(configsRoot)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrConfigsRootNotFound,
			fmt.Sprintf("Configs root %s does not exist or is not a directory.", configsRoot), err)
	}
	snapshotRoot, err := resolvePath(s.root)
	if err != nil {
		return nil, stagingFailed(s.root, err)
	}
	// 暂存根目录里是所有租户的配置，不能作为配置来源
	if isWithin(snapshotRoot, src) {
		return nil, apierror.WrapError(apierror.ErrInvalidParameter,
			fmt.Sprintf("Configs root %s must not be inside the snapshot root.", configsRoot), nil)
	}

	candidates, err := discoverConfigs(src, snapshotRoot)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrStagingFailed,
			fmt.Sprintf("Failed to scan configs root %s.", configsRoot), err)
	}
	if len(candidates) == 0 {
		return nil, apierror.WrapError(apierror.ErrConfigsRootNotFound,
			fmt.Sprintf("No *%s files found under %s.", configExt, configsRoot), nil)
	}

	dest := filepath.Join(s.Dir(isolationKey), stagedConfigsDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, stagingFailed(dest, err)
	}
	// 全量替换：先清掉上一次暂存的配置
	stale, err := filepath.Glob(filepath.Join(dest, "*"+configExt))
	if err != nil {
		return nil, stagingFailed(dest, err)
	}
	for _, f := range stale {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, stagingFailed(f, err)
		}
	}

	devices := make([]string, 0, len(candidates))
	used := make(map[string]struct{}, len(candidates))
	for _, src := range candidates {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, stagingFailed(src, err)
		}
		name := uniqueName(extractHostname(data), used)
		used[name] = struct{}{}
		if err := os.WriteFile(filepath.Join(dest, name+configExt), data, 0o644); err != nil {
			return nil, stagingFailed(dest, err)
		}
		devices = append(devices, name)
	}

	logger.Info().
		Str("isolation_key", isolationKey).
		Str("configs_root", configsRoot).
		Int("device_count", len(devices)).
		Msg("Configs staged")
	return devices, nil
}

func stagingFailed(path string, err error) error {
	return apierror.WrapError(apierror.ErrStagingFailed, fmt.Sprintf("Config staging failed at %s.", path), err)
}

// resolvePath 返回展开符号链接后的绝对路径
// 路径不存在时展开最近的已存在祖先目录
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		parent := filepath.Dir(abs)
		if parent == abs {
			return abs, nil
		}
		base, err := resolvePath(parent)
		if err != nil {
			return "", err
		}
		return filepath.Join(base, filepath.Base(abs)), nil
	}
	return resolved, err
}

// isWithin target 等于 base 或位于 base 之下
func isWithin(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// discoverConfigs 递归查找配置文件，优先 *startup-config.cfg，没有时退化为任意 *.cfg
// 遍历时跳过 skip 目录；WalkDir 按字典序遍历，结果顺序稳定
func discoverConfigs(root, skip string) ([]string, error) {
	var startup, any []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path == skip {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, startupConfigSuffix) {
			startup = append(startup, path)
		}
		if strings.HasSuffix(name, configExt) {
			any = append(any, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(startup) > 0 {
		return startup, nil
	}
	return any, nil
}

// extractHostname 取第一条 hostname 语句，没有时生成 device_<6 位 hex>
func extractHostname(cfg []byte) string {
	if m := hostnameRe.FindSubmatch(cfg); m != nil {
		if name := sanitizeName(string(m[1])); name != "" {
			return name
		}
	}
	return "device_" + idgen.RandomHex(6)
}

// sanitizeName 去掉会破坏文件名的字符
func sanitizeName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_", "\x00", "").Replace(name)
	name = strings.Trim(name, ".")
	return name
}

// uniqueName 与已暂存的名字冲突时追加 _<4 位 hex>
func uniqueName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		return name
	}
	for {
		candidate := name + "_" + idgen.RandomHex(4)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}
