package report

import (
	"fmt"
	"strings"

	"github.com/jimyag/netrca/pkg/batfish"
)

// UndefinedReferences 列出被引用但未定义的配置结构
func UndefinedReferences(refs *batfish.Table) (string, error) {
	if refs.Empty() {
		return "=== CONFIGURATION HYGIENE ===\nNo undefined references found.", nil
	}
	keys, groups := groupRows(refs.Rows, nodeOf)
	out := []string{"=== UNDEFINED REFERENCES (POSSIBLE TYPOS/MISSING CONFIG) ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nNode: %s", node))
		for _, row := range groups[node] {
			out = append(out, fmt.Sprintf("%sMissing[%s]: '%s' | Called by: %s | File Lines: %s",
				bullet, row.Str("Structure_Type"), row.Str("Structure_Name"),
				row.Str("Context"), sourceLines(row)))
		}
	}
	return join(out), nil
}

// UnusedStructures 列出定义了但从未被引用的配置结构
func UnusedStructures(unused *batfish.Table) (string, error) {
	if unused.Empty() {
		return "=== DEAD CODE ANALYSIS ===\nNo unused structures found.", nil
	}
	keys, groups := groupRows(unused.Rows, nodeOf)
	out := []string{"=== UNUSED STRUCTURES (DEAD CODE / ORPHANED CONFIG) ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nNode: %s", node))
		for _, row := range groups[node] {
			out = append(out, fmt.Sprintf("%sUnused [%s]: '%s'",
				bullet, row.Str("Structure_Type"), row.Str("Structure_Name")))
		}
	}
	return join(out), nil
}

// ACLShadowing 列出因前序规则匹配而不可达的 ACL 行
func ACLShadowing(lines *batfish.Table) (string, error) {
	if lines.Empty() {
		return "=== ACL SHADOWING ===\nNo shadowed or unreachable ACL lines detected.", nil
	}
	var shadowed []batfish.Row
	for _, row := range lines.Rows {
		if row.Has("Unreachable_Line") {
			shadowed = append(shadowed, row)
		}
	}
	if len(shadowed) == 0 {
		return "=== ACL SHADOWING ===\nAll ACL lines are reachable (no shadowing detected).", nil
	}

	keys, groups := groupRows(shadowed, nodeOf)
	out := []string{"=== ACL SHADOWING (UNREACHABLE FILTER LINES) ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nNode: %s", node))
		for _, row := range groups[node] {
			out = append(out, fmt.Sprintf("%sACL [%s] | Shadowed Line: '%s' | Action: %s | Blocked By: %s",
				bullet, row.Str("Filter_Name"), row.Str("Unreachable_Line"),
				row.Str("Unreachable_Line_Action"), row.Str("Blocking_Lines")))
		}
	}
	return join(out), nil
}

// RoutingLoops 列出数据面仿真中发现的转发环路及完整路径
func RoutingLoops(loops *batfish.Table) (string, error) {
	if loops.Empty() {
		return "=== ROUTING LOOP DETECTION ===\nNo forwarding loops detected across the data plane.", nil
	}
	keys, groups := groupRows(loops.Rows, nodeOf)
	out := []string{"=== ROUTING LOOPS DETECTED (DATA-PLANE SIMULATION) ==="}
	for _, node := range keys {
		out = append(out, fmt.Sprintf("\nLoop Origin Node: %s", node))
		for _, row := range groups[node] {
			out = append(out, fmt.Sprintf("%sIngress Interface: %s\n     Loop Path: %s [%s LOOPS BACK TO ORIGIN]",
				bullet, row.Str("Ingress_Interface"), loopPath(row), Warn))
		}
	}
	return join(out), nil
}

func loopPath(row batfish.Row) string {
	if !row.Has("Loop") {
		return "Unknown"
	}
	if hops, ok := row["Loop"].([]any); ok {
		parts := make([]string, 0, len(hops))
		for _, h := range hops {
			parts = append(parts, batfish.FormatValue(h))
		}
		return strings.Join(parts, " → ")
	}
	return row.Str("Loop")
}

// sourceLines 格式化 Source_Lines，Batfish 返回 {"filename","lines"} 对象时渲染为 file:1,2
func sourceLines(row batfish.Row) string {
	if v, ok := row["Source_Lines"].(map[string]any); ok {
		file, _ := v["filename"].(string)
		lines := batfish.Row(v).List("lines")
		if file != "" {
			return file + ":" + strings.Join(lines, ",")
		}
	}
	return row.Str("Source_Lines")
}
