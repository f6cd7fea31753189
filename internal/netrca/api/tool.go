package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/pkg/ginx"
	"github.com/rs/zerolog"
)

// ToolServiceInterface 定义 RCA 工具分发的接口
type ToolServiceInterface interface {
	RunTool(ctx context.Context, ownerID, snapshotID, toolName string) (string, error)
	RunAllTools(ctx context.Context, ownerID, snapshotID string) (map[string]string, error)
	StreamAllTools(ctx context.Context, ownerID, snapshotID string, emit func(name, result string, err error)) error
	ListTools() []string
	ToolDefinitions() []entity.ToolDefinition
	CheckHealth(ctx context.Context) (*entity.HealthResponse, error)
}

type Tool struct {
	toolService ToolServiceInterface
}

func NewTool(toolService ToolServiceInterface) *Tool {
	return &Tool{
		toolService: toolService,
	}
}

// RegisterPublicRoutes 不需要认证的路由
func (t *Tool) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/tools", ginx.Adapt2(t.ListTools))
	router.GET("/tools/definitions", ginx.Adapt2(t.ToolDefinitions))
	router.GET("/health", ginx.Adapt0(t.Health))
}

func (t *Tool) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/tool/:tool_name", ginx.Adapt5(t.RunTool))
	router.POST("/tools/all", ginx.Adapt5(t.RunAllTools))
	router.GET("/tools/all/stream", ginx.Adapt0(t.StreamAllTools))
}

func (t *Tool) RunTool(ctx *gin.Context, req *entity.RunToolRequest) (*entity.RunToolResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("owner_id", owner).
		Str("snapshot_id", req.SnapshotID).
		Str("tool", req.ToolName).
		Msg("RunTool called")

	result, err := t.toolService.RunTool(ctx, owner, req.SnapshotID, req.ToolName)
	if err != nil {
		return nil, err
	}
	return &entity.RunToolResponse{
		Tool:       req.ToolName,
		SnapshotID: req.SnapshotID,
		Result:     result,
	}, nil
}

func (t *Tool) RunAllTools(ctx *gin.Context, req *entity.RunAllToolsRequest) (*entity.RunAllToolsResponse, error) {
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("owner_id", owner).
		Str("snapshot_id", req.SnapshotID).
		Msg("RunAllTools called")

	results, err := t.toolService.RunAllTools(ctx, owner, req.SnapshotID)
	if err != nil {
		return nil, err
	}
	return &entity.RunAllToolsResponse{SnapshotID: req.SnapshotID, Results: results}, nil
}

func (t *Tool) ListTools(ctx *gin.Context) *entity.ListToolsResponse {
	return &entity.ListToolsResponse{Tools: t.toolService.ListTools()}
}

func (t *Tool) ToolDefinitions(ctx *gin.Context) *entity.ToolDefinitionsResponse {
	return &entity.ToolDefinitionsResponse{Tools: t.toolService.ToolDefinitions()}
}

// Health 后端不可达时返回 503，body 仍然是健康检查结果
func (t *Tool) Health(ctx *gin.Context) {
	resp, err := t.toolService.CheckHealth(ctx)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
