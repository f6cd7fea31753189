package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jimyag/netrca/pkg/batfish"
)

const (
	toolLogicalTopology  = "get_logical_topology_with_mtu"
	toolEnrichedTopology = "get_enriched_topology"
)

// l3Interface 一个有主地址的三层接口
type l3Interface struct {
	node    string
	name    string
	address string
	subnet  string
	mtu     string // 空串表示 MTU 缺失
	row     batfish.Row // 接口属性原始行
	ospf    batfish.Row // 对应的 OSPF 接口配置，可能为 nil
	ifType  string
}

func (i l3Interface) inactive() bool {
	v, ok := i.row.Bool("Active")
	return ok && !v
}

// activeText Active 列按 True/False 输出
func (i l3Interface) activeText() string {
	if v, ok := i.row.Bool("Active"); ok {
		if v {
			return "True"
		}
		return "False"
	}
	return i.row.Str("Active")
}

func (i l3Interface) mtuText() string {
	if i.mtu == "" {
		return "?"
	}
	return i.mtu
}

func ifaceKey(node, name string) string {
	return node + "\x00" + name
}

// ospfByInterface 以 (node, interface) 为 key 索引 OSPF 接口配置
func ospfByInterface(ospf *batfish.Table) map[string]batfish.Row {
	index := make(map[string]batfish.Row)
	if ospf.Empty() {
		return index
	}
	for _, row := range ospf.Rows {
		iface, ok := row.Interface("Interface")
		if !ok {
			continue
		}
		index[ifaceKey(iface.Hostname, iface.Name)] = row
	}
	return index
}

// collectL3 解析接口表，丢弃没有主地址的接口
func collectL3(tool string, ifaces, ospf *batfish.Table) ([]l3Interface, error) {
	if err := ifaces.Require("Interface"); err != nil {
		return nil, missingColumn(tool, err)
	}
	index := ospfByInterface(ospf)
	out := make([]l3Interface, 0, len(ifaces.Rows))
	for i, row := range ifaces.Rows {
		iface, ok := row.Interface("Interface")
		if !ok {
			return nil, fmt.Errorf("%s: row %d has a malformed Interface value", tool, i)
		}
		if !row.Has("Primary_Address") {
			continue
		}
		address := row.Str("Primary_Address")
		mtu := ""
		if row.Has("MTU") {
			mtu = row.Str("MTU")
		}
		ifType := ""
		if row.Has("Interface_Type") {
			ifType = row.Str("Interface_Type")
		}
		out = append(out, l3Interface{
			node:    iface.Hostname,
			name:    iface.Name,
			address: address,
			subnet:  subnetOf(address),
			mtu:     mtu,
			row:     row,
			ospf:    index[ifaceKey(iface.Hostname, iface.Name)],
			ifType:  ifType,
		})
	}
	return out, nil
}

// groupBySubnet 按子网分组，返回排序后的子网列表
func groupBySubnet(ifaces []l3Interface) ([]string, map[string][]l3Interface) {
	groups := make(map[string][]l3Interface)
	for _, i := range ifaces {
		groups[i.subnet] = append(groups[i.subnet], i)
	}
	subnets := make([]string, 0, len(groups))
	for s := range groups {
		subnets = append(subnets, s)
	}
	sort.Strings(subnets)
	return subnets, groups
}

// mtuMismatch 子网内出现多个不同的 MTU 值，缺失值不参与比较
func mtuMismatch(group []l3Interface) bool {
	seen := make(map[string]struct{})
	for _, i := range group {
		if i.mtu == "" {
			continue
		}
		seen[i.mtu] = struct{}{}
	}
	return len(seen) > 1
}

// LogicalTopology 按子网列出三层接口，标记 MTU 不一致的子网
// 输入为 interfaceProperties(Primary_Address,Active,MTU) 与 ospfInterfaceConfiguration
func LogicalTopology(ifaces, ospf *batfish.Table) (string, error) {
	const header = "=== LOGICAL L3 TOPOLOGY (GROUPED BY SUBNET WITH MTU) ==="
	if ifaces.Empty() {
		return header + "\nNo L3 interfaces with a primary address were found.", nil
	}
	l3, err := collectL3(toolLogicalTopology, ifaces, ospf)
	if err != nil {
		return "", err
	}
	if len(l3) == 0 {
		return header + "\nNo L3 interfaces with a primary address were found.", nil
	}

	subnets, groups := groupBySubnet(l3)
	out := []string{header}
	for _, subnet := range subnets {
		group := groups[subnet]
		warn := ""
		if mtuMismatch(group) {
			warn = "[" + Warn + " MTU MISMATCH DETECTED]"
		}
		out = append(out, fmt.Sprintf("\nNetwork: %s%s", subnet, warn))
		for _, i := range group {
			area := "None"
			if i.ospf != nil && i.ospf.Has("OSPF_Area_Name") {
				area = i.ospf.Str("OSPF_Area_Name")
			}
			out = append(out, fmt.Sprintf("%s%s:%s (IP: %s, Area: %s, Active: %s, MTU: %s)",
				bullet, i.node, i.name, i.address, area, i.activeText(), i.mtuText()))
		}
	}
	return join(out), nil
}

// protoLabel 接口的路由协议来源
func protoLabel(i l3Interface) string {
	if i.ospf != nil {
		if enabled, ok := i.ospf.Bool("OSPF_Enabled"); ok && enabled {
			passive := ""
			if p, ok := i.ospf.Bool("OSPF_Passive"); ok && p {
				passive = " PASSIVE"
			}
			return "OSPF Area " + i.ospf.Str("OSPF_Area_Name") + passive
		}
	}
	if strings.Contains(strings.ToUpper(i.ifType), "LOOPBACK") {
		return "CONNECTED (loopback)"
	}
	return "CONNECTED"
}

// ospfSessionIndex 以 (node, remote node) 为 key 索引 OSPF 会话状态
// 同一对设备出现多次时后出现的覆盖先出现的
func ospfSessionIndex(sessions *batfish.Table) map[[2]string]string {
	index := make(map[[2]string]string)
	if sessions.Empty() || !sessions.HasColumn("Session_Status") {
		return index
	}
	for _, row := range sessions.Rows {
		status := "UNKNOWN"
		if row.Has("Session_Status") {
			status = row.Str("Session_Status")
		}
		index[[2]string{nodeOf(row), remoteNodeOf(row)}] = status
	}
	return index
}

// remoteNodeOf 取对端设备名：优先 Remote_Node 列，其次 Remote_Interface 的 hostname
func remoteNodeOf(row batfish.Row) string {
	if name := row.Node("Remote_Node"); name != "" {
		return name
	}
	if iface, ok := row.Interface("Remote_Interface"); ok && iface.Hostname != "" {
		return iface.Hostname
	}
	return "?"
}

// EnrichedTopology 融合接口属性、OSPF 成员关系和会话状态，只展开有问题的子网
// 健康子网折叠为一行计数，每个失败会话附带诊断提示
func EnrichedTopology(ifaces, ospfIfaces, ospfSessions *batfish.Table) (string, error) {
	var l3 []l3Interface
	if !ifaces.Empty() {
		var err error
		l3, err = collectL3(toolEnrichedTopology, ifaces, ospfIfaces)
		if err != nil {
			return "", err
		}
	}
	sessions := ospfSessionIndex(ospfSessions)

	subnets, groups := groupBySubnet(l3)
	healthy := 0
	var blocks []string
	for _, subnet := range subnets {
		group := groups[subnet]
		mismatch := mtuMismatch(group)
		inactive := 0
		for _, i := range group {
			if i.inactive() {
				inactive++
			}
		}

		var sessionLines []string
		for a := 0; a < len(group); a++ {
			for b := a + 1; b < len(group); b++ {
				n1, n2 := group[a].node, group[b].node
				status, ok := sessions[[2]string{n1, n2}]
				if !ok || status == "" {
					status = sessions[[2]string{n2, n1}]
				}
				if status == "" || status == statusEstablished {
					continue
				}
				sessionLines = append(sessionLines, fmt.Sprintf("    └─ OSPF Session %s↔%s: [%s %s]%s",
					n1, n2, Warn, status, SessionHint(status, mismatch)))
			}
		}

		if !mismatch && inactive == 0 && len(sessionLines) == 0 {
			healthy++
			continue
		}

		var flags []string
		if mismatch {
			flags = append(flags, Warn+" MTU MISMATCH")
		}
		if inactive > 0 {
			flags = append(flags, fmt.Sprintf("%s %d INACTIVE INTERFACE(S)", Warn, inactive))
		}
		flagText := ""
		if len(flags) > 0 {
			flagText = "  [" + strings.Join(flags, " | ") + "]"
		}

		lines := []string{fmt.Sprintf("\nNetwork: %s%s", subnet, flagText)}
		for _, i := range group {
			activeText := "✓"
			if i.inactive() {
				activeText = "✗ INACTIVE"
			}
			lines = append(lines, fmt.Sprintf("%s%s:%s  IP: %s  Proto: %s  MTU: %s  Active: %s",
				bullet, i.node, i.name, i.address, protoLabel(i), i.mtuText(), activeText))
		}
		lines = append(lines, sessionLines...)
		blocks = append(blocks, join(lines))
	}

	out := []string{"=== ENRICHED L3 TOPOLOGY (PROBLEMS ONLY) ==="}
	if len(blocks) == 0 {
		out = append(out, fmt.Sprintf("\nAll %d subnet(s) are healthy — "+
			"no MTU mismatches, inactive interfaces, or session failures detected.", healthy))
		return join(out), nil
	}
	out = append(out, blocks...)
	out = append(out, fmt.Sprintf("\n── %d healthy subnet(s) suppressed (%d problem subnet(s) shown above) ──",
		healthy, len(blocks)))
	return join(out), nil
}
