package batfish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingColumn 应答缺少必需列
var ErrMissingColumn = errors.New("missing required column")

// Column 表头元数据
type Column struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// Row 一行数据，key 为列名
// 数值统一解码为 json.Number，避免 MTU、AS 号被格式化成浮点数
type Row map[string]any

// Table 问题应答的表格
type Table struct {
	Columns []Column
	Rows    []Row
}

// Empty 表格为 nil 或没有任何行
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn 判断列是否存在
// 没有列元数据时退化为检查第一行
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	if len(t.Columns) == 0 && len(t.Rows) > 0 {
		_, ok := t.Rows[0][name]
		return ok
	}
	return false
}

// Require 检查所有必需列都存在
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

type answerEnvelope struct {
	Status         string          `json:"status"`
	Summary        json.RawMessage `json:"summary"`
	AnswerElements []struct {
		Metadata struct {
			ColumnMetadata []Column `json:"columnMetadata"`
		} `json:"metadata"`
		Rows []Row `json:"rows"`
	} `json:"answerElements"`
}

// ParseAnswer 解析 Batfish 的表格应答
func ParseAnswer(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var env answerEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if strings.EqualFold(env.Status, "FAILURE") {
		return nil, fmt.Errorf("question failed: %s", strings.TrimSpace(string(env.Summary)))
	}
	if len(env.AnswerElements) == 0 {
		return nil, errors.New("answer has no answer elements")
	}
	elem := env.AnswerElements[0]
	return &Table{Columns: elem.Metadata.ColumnMetadata, Rows: elem.Rows}, nil
}

// Has 列存在且值非空
func (r Row) Has(col string) bool {
	v, ok := r[col]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Str 返回列的展示值，缺失时返回 "?"
func (r Row) Str(col string) string {
	if !r.Has(col) {
		return "?"
	}
	return FormatValue(r[col])
}

// Bool 解析布尔列，ok 表示值存在且可解析
func (r Row) Bool(col string) (value, ok bool) {
	switch v := r[col].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// Interface 解析接口列，兼容 {"hostname","interface"} 对象和 "host[iface]" 字符串
func (r Row) Interface(col string) (Interface, bool) {
	return parseInterface(r[col])
}

// Node 解析节点列，兼容 {"name": ...} 对象和纯字符串
func (r Row) Node(col string) string {
	switch v := r[col].(type) {
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	case string:
		return v
	}
	return ""
}

// List 解析列表列，元素逐个格式化
func (r Row) List(col string) []string {
	switch v := r[col].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, FormatValue(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{FormatValue(v)}
	}
}

// Interface 设备上的一个接口
type Interface struct {
	Hostname string
	Name     string
}

func (i Interface) String() string {
	return i.Hostname + "[" + i.Name + "]"
}

func parseInterface(v any) (Interface, bool) {
	switch val := v.(type) {
	case map[string]any:
		host, _ := val["hostname"].(string)
		name, _ := val["interface"].(string)
		if host == "" && name == "" {
			return Interface{}, false
		}
		return Interface{Hostname: host, Name: name}, true
	case string:
		open := strings.Index(val, "[")
		if open <= 0 || !strings.HasSuffix(val, "]") {
			return Interface{}, false
		}
		return Interface{Hostname: val[:open], Name: val[open+1 : len(val)-1]}, true
	default:
		return Interface{}, false
	}
}

// FormatValue 把单元格值格式化为报告中的文本
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		if iface, ok := parseInterface(val); ok {
			return iface.String()
		}
		if name, ok := val["name"].(string); ok {
			return name
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+FormatValue(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(val)
	}
}
