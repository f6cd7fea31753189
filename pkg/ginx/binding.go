package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// bindArgs 绑定请求参数到 args 结构体
// 依次绑定 JSON Body（有 body 时）、URI 参数、Query 参数，后绑定的覆盖先绑定的
// 必填校验交给 IsValid，因此 args 不使用 binding:"required"
func bindArgs(ctx *gin.Context, args any) error {
	if hasBody(ctx.Request) {
		if err := ctx.ShouldBindJSON(args); err != nil {
			return err
		}
	}

	if len(ctx.Params) > 0 {
		if err := ctx.ShouldBindUri(args); err != nil {
			return err
		}
	}

	if ctx.Request.URL.RawQuery != "" {
		if err := ctx.ShouldBindQuery(args); err != nil {
			return err
		}
	}
	return nil
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody && req.ContentLength != 0
}
