package ginx

import (
	"github.com/gin-gonic/gin"
)

// RequestIDKey gin.Context 中保存请求 ID 的 key
const RequestIDKey = "ginx.request_id"

// SetRequestID 保存请求 ID，错误响应会带上它
func SetRequestID(ctx *gin.Context, requestID string) {
	ctx.Set(RequestIDKey, requestID)
}

// RequestID 返回请求 ID，不存在时返回空串
func RequestID(ctx *gin.Context) string {
	return ctx.GetString(RequestIDKey)
}
