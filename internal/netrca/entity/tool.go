package entity

// RunToolRequest 执行单个 RCA 工具请求
// snapshot_id 可以放在 body 或 query 中
type RunToolRequest struct {
	ToolName   string `uri:"tool_name" json:"-"`
	SnapshotID string `json:"snapshot_id" form:"snapshot_id"`
	UserID     string `json:"user_id,omitempty" form:"user_id"`
}

func (r *RunToolRequest) IsValid() error {
	return validateID(r.SnapshotID)
}

type RunToolResponse struct {
	Tool       string `json:"tool"`
	SnapshotID string `json:"snapshot_id"`
	Result     string `json:"result"`
}

// RunAllToolsRequest 执行全部 RCA 工具请求
type RunAllToolsRequest struct {
	SnapshotID string `json:"snapshot_id" form:"snapshot_id"`
	UserID     string `json:"user_id,omitempty" form:"user_id"`
}

func (r *RunAllToolsRequest) IsValid() error {
	return validateID(r.SnapshotID)
}

// RunAllToolsResponse Results 中每个目录工具恰好一项，失败的工具值为错误文本
type RunAllToolsResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	Results    map[string]string `json:"results"`
}

type ListToolsResponse struct {
	Tools []string `json:"tools"`
}

// ToolDefinition 给 agent 层使用的函数调用定义
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolDefinitionsResponse struct {
	Tools []ToolDefinition `json:"tools"`
}

// HealthResponse 仿真后端健康状态
type HealthResponse struct {
	Status  string `json:"status"` // reachable 或 unreachable
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Network string `json:"network"`
	Error   string `json:"error,omitempty"`
}

// 流式执行全部工具时推送的事件类型
const (
	ToolEventResult = "result"
	ToolEventError  = "error"
	ToolEventDone   = "done"
)

// ToolEvent WebSocket 上推送的一条事件
// result 每个工具一条，done 在全部工具完成后发送，error 表示绑定快照失败
type ToolEvent struct {
	Type       string `json:"type"`
	SnapshotID string `json:"snapshot_id"`
	Tool       string `json:"tool,omitempty"`
	Result     string `json:"result,omitempty"`
	Failed     bool   `json:"failed,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	Count      int    `json:"count,omitempty"`
}
