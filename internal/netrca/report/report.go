// Package report 把 Batfish 的表格应答整理成面向 RCA 的文本报告。
//
// 所有函数都是纯函数：空输入返回明确的"无问题"语句，有结果时按设备或子网分组，
// 组按 key 排序输出，组内保持应答中的行顺序。缺少可选列时用 "?" 占位，
// 缺少必需列返回错误。
package report

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/jimyag/netrca/pkg/batfish"
)

const (
	// Warn 报告中的告警标记
	Warn = "⚠️"

	bullet = "  └─ "

	statusEstablished = "ESTABLISHED"
	statusUniqueMatch = "UNIQUE_MATCH"
)

// sessionHints OSPF/BGP 会话状态对应的诊断提示
// INIT、EXSTART、EXCHANGE 的提示与子网是否存在 MTU 不一致有关，见 SessionHint
var sessionHints = map[string]string{
	"ATTEMPT":          "neighbour unreachable or auth failure",
	"LOADING":          "LSA retransmit loop — check for corrupt LSA",
	"NO_SESSION":       "OSPF not configured on one or both interfaces",
	"HALF_OPEN":        "one side configured, other side missing peer definition",
	"UNIQUE_MATCH":     "",
	"LOCAL_IP_UNKNOWN": "local interface IP missing or misconfigured",
	"INVALID_LOCAL_IP": "local IP not matching any interface subnet",
}

// SessionHint 返回会话状态的诊断提示，格式为 " ← hint"，无提示时返回空串
func SessionHint(status string, mtuMismatch bool) string {
	var hint string
	switch status {
	case "INIT":
		hint = "dead/hello timer mismatch or auth failure"
		if mtuMismatch {
			hint = "dead/hello timer or MTU mismatch likely"
		}
	case "EXSTART":
		hint = "DBD exchange failure — check MTU and duplex"
		if mtuMismatch {
			hint = "MTU mismatch preventing DBD exchange"
		}
	case "EXCHANGE":
		hint = "LSA exchange stalled"
		if mtuMismatch {
			hint = "MTU mismatch during LSA flood"
		}
	default:
		h, ok := sessionHints[status]
		if !ok {
			h = "unknown failure — manual inspection required"
		}
		hint = h
	}
	if hint == "" {
		return ""
	}
	return " ← " + hint
}

// groupRows 按 key 分组，返回排序后的 key 和分组结果
func groupRows(rows []batfish.Row, key func(batfish.Row) string) ([]string, map[string][]batfish.Row) {
	groups := make(map[string][]batfish.Row)
	for _, row := range rows {
		k := key(row)
		groups[k] = append(groups[k], row)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// nodeOf 取设备名：优先 Node 列，其次 Interface 列的 hostname
func nodeOf(row batfish.Row) string {
	if name := row.Node("Node"); name != "" {
		return name
	}
	if iface, ok := row.Interface("Interface"); ok && iface.Hostname != "" {
		return iface.Hostname
	}
	return "?"
}

// subnetOf 把接口地址换算成所在网段，无法解析时返回 "Unknown"
// 不带掩码的地址视为 /32
func subnetOf(addr string) string {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "/") {
		ip, err := netip.ParseAddr(addr)
		if err != nil || !ip.Is4() {
			return "Unknown"
		}
		return netip.PrefixFrom(ip, 32).String()
	}
	prefix, err := netip.ParsePrefix(addr)
	if err != nil || !prefix.Addr().Is4() {
		return "Unknown"
	}
	return prefix.Masked().String()
}

// join 用换行拼接报告行
func join(lines []string) string {
	return strings.Join(lines, "\n")
}

func missingColumn(tool string, err error) error {
	return fmt.Errorf("%s: %w", tool, err)
}
