package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/netrca/pkg/apierror"
)

// renderResponse 字符串原样输出，基本类型包装为 {"value": v}，nil 为 204
func renderResponse(ctx *gin.Context, response any) {
	if response == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	switch v := response.(type) {
	case string:
		ctx.String(http.StatusOK, v)
	case int, int64, uint, uint64, float64, bool:
		ctx.JSON(http.StatusOK, gin.H{"value": v})
	default:
		ctx.JSON(http.StatusOK, response)
	}
}

// AbortWithError 写入 apierror.ErrorResponse 并终止后续 handler
// 错误链中有 *apierror.Error 时使用它的 Code 和 HTTPStatus，
// 否则 fallback 为 400 时包装成 InvalidParameter，其余包装成 InternalError
func AbortWithError(ctx *gin.Context, fallback int, err error) {
	_ = ctx.Error(err)

	apiErr, ok := apierror.As(err)
	if !ok {
		base := apierror.ErrInternalError
		if fallback == http.StatusBadRequest {
			base = apierror.ErrInvalidParameter
		}
		apiErr = apierror.WrapError(base, err.Error(), err)
	}
	status := fallback
	if apiErr.HTTPStatus > 0 {
		status = apiErr.HTTPStatus
	}
	ctx.AbortWithStatusJSON(status, apierror.NewErrorResponse(RequestID(ctx), apiErr))
}
