package report

import (
	"fmt"

	"github.com/jimyag/netrca/pkg/batfish"
)

// OSPFFailures 列出状态不是 ESTABLISHED 的 OSPF 邻接，按本端设备分组
// 输入为 ospfSessionCompatibility
func OSPFFailures(sessions *batfish.Table) (string, error) {
	if sessions.Empty() || !sessions.HasColumn("Session_Status") {
		return "=== OSPF FAILURES ===\nAll configured OSPF sessions are healthy or none exist.", nil
	}
	var failed []batfish.Row
	for _, row := range sessions.Rows {
		if row.Str("Session_Status") != statusEstablished {
			failed = append(failed, row)
		}
	}
	if len(failed) == 0 {
		return "=== OSPF FAILURES ===\nAll configured OSPF sessions are established.", nil
	}

	keys, groups := groupRows(failed, nodeOf)
	out := []string{"=== OSPF SESSION FAILURES DETECTED ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nNode: %s", node))
		for _, row := range groups[node] {
			status := row.Str("Session_Status")
			out = append(out, fmt.Sprintf("%sInterface: %s (IP: %s, Area: %s) -> Remote: %s (IP: %s) | Status: [%s %s]%s",
				bullet,
				row.Str("Interface"), row.Str("IP"), row.Str("Area"),
				row.Str("Remote_Interface"), row.Str("Remote_IP"),
				Warn, status, SessionHint(status, false)))
		}
	}
	return join(out), nil
}

// BGPFailures 列出兼容性状态不是 UNIQUE_MATCH 的 BGP 对等体，按设备分组
// 输入为 bgpSessionCompatibility
func BGPFailures(sessions *batfish.Table) (string, error) {
	if sessions.Empty() || !sessions.HasColumn("Configured_Status") {
		return "=== BGP FAILURES ===\nNo BGP sessions exist or status cannot be verified.", nil
	}
	var failed []batfish.Row
	for _, row := range sessions.Rows {
		if row.Str("Configured_Status") != statusUniqueMatch {
			failed = append(failed, row)
		}
	}
	if len(failed) == 0 {
		return "=== BGP FAILURES ===\nAll configured BGP sessions are compatible and healthy.", nil
	}

	keys, groups := groupRows(failed, nodeOf)
	out := []string{"=== BGP SESSION FAILURES DETECTED ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nNode: %s", node))
		for _, row := range groups[node] {
			out = append(out, fmt.Sprintf("%sPeer IP: %s | Local AS: %s -> Remote AS: %s | Status: [%s %s]",
				bullet, row.Str("Remote_IP"), row.Str("Local_AS"), row.Str("Remote_AS"),
				Warn, row.Str("Configured_Status")))
		}
	}
	return join(out), nil
}
