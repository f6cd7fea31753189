package idgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator 快照 ID 生成器，基于 Sonyflake，单调递增
type Generator struct {
	sf *sonyflake.Sonyflake
}

func New() *Generator {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{StartTime: epoch})
	if sf == nil {
		// 拿不到机器 ID（例如没有私有 IP）时，固定 MachineID 兜底
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: epoch,
			MachineID: func() (uint16, error) { return 1, nil },
		})
	}
	return &Generator{sf: sf}
}

// GenerateSnapshotID 格式 snap_{sonyflake}
func (g *Generator) GenerateSnapshotID() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("generate snapshot ID: %w", err)
	}
	return fmt.Sprintf("snap_%d", id), nil
}

// RandomHex 返回 n 个随机十六进制字符，n 最大 32
func RandomHex(n int) string {
	if n <= 0 {
		return ""
	}
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s[:min(n, len(s))]
}
