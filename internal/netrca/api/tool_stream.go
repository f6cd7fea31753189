package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/ginx"
	"github.com/jimyag/netrca/pkg/wsstream"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32768,
	// 调用方是 agent 进程而不是浏览器，来源由网关控制
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamAllTools 升级为 WebSocket 后并发执行全部工具
// 每个工具完成时推送一条 result 事件，全部完成后推送 done 并正常关闭
func (t *Tool) StreamAllTools(ctx *gin.Context) {
	req, ok := ginx.Bind[entity.RunAllToolsRequest](ctx)
	if !ok {
		return
	}
	owner, err := ownerOf(ctx, req.UserID)
	if err != nil {
		ginx.AbortWithError(ctx, http.StatusUnauthorized, err)
		return
	}

	logger := zerolog.Ctx(ctx.Request.Context())
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade 已经写入了 HTTP 错误响应
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket")
		return
	}
	stream := wsstream.New(ctx.Request.Context(), conn)

	logger.Info().
		Str("owner_id", owner).
		Str("snapshot_id", req.SnapshotID).
		Msg("StreamAllTools called")

	count := 0
	err = t.toolService.StreamAllTools(stream.Context(), owner, req.SnapshotID, func(name, result string, err error) {
		event := entity.ToolEvent{
			Type:       entity.ToolEventResult,
			SnapshotID: req.SnapshotID,
			Tool:       name,
			Result:     result,
		}
		if err != nil {
			event.Failed = true
			event.Result = err.Error()
			if apiErr, ok := apierror.As(err); ok {
				event.Code = apiErr.Code
			}
		}
		count++
		if sendErr := stream.Send(event); sendErr != nil {
			logger.Debug().Err(sendErr).Str("tool", name).Msg("Failed to push tool result")
		}
	})
	if err != nil {
		event := entity.ToolEvent{
			Type:       entity.ToolEventError,
			SnapshotID: req.SnapshotID,
			Message:    err.Error(),
		}
		if apiErr, ok := apierror.As(err); ok {
			event.Code = apiErr.Code
			event.Message = apiErr.Message
		}
		_ = stream.Send(event)
		stream.Close(websocket.CloseNormalClosure, event.Code)
		return
	}

	_ = stream.Send(entity.ToolEvent{Type: entity.ToolEventDone, SnapshotID: req.SnapshotID, Count: count})
	stream.Close(websocket.CloseNormalClosure, "")
}
