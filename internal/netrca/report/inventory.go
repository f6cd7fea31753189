package report

import (
	"fmt"
	"strings"

	"github.com/jimyag/netrca/pkg/batfish"
)

// DeviceOSInventory 按配置格式（OS 平台）对设备分组
// 输入为 nodeProperties(properties="Configuration_Format")
func DeviceOSInventory(nodes *batfish.Table) (string, error) {
	if nodes.Empty() || !nodes.HasColumn("Configuration_Format") {
		return "=== DEVICE OS INVENTORY ===\nNo OS information could be extracted.", nil
	}

	keys, groups := groupRows(nodes.Rows, func(r batfish.Row) string {
		return r.Str("Configuration_Format")
	})
	out := []string{"=== DEVICE OS / VENDOR INVENTORY ==="}
	for _, format := range keys {
		rows := groups[format]
		names := make([]string, 0, len(rows))
		for _, r := range rows {
			names = append(names, nodeOf(r))
		}
		out = append(out,
			fmt.Sprintf("\nOS Platform: [%s]", format),
			fmt.Sprintf("%sDevices (%d): %s", bullet, len(names), strings.Join(names, ", ")),
		)
	}
	return join(out), nil
}
