package ginx

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Adapt0 适配自己写响应的 handler，比如需要自定义状态码或升级连接
func Adapt0(fn func(*gin.Context)) gin.HandlerFunc {
	return gin.HandlerFunc(fn)
}

// Adapt2 适配无参数、只有返回值的 handler
func Adapt2[T any](fn func(*gin.Context) T) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		renderResponse(ctx, fn(ctx))
	}
}

// Adapt5 适配有参数、有返回值和 error 的 handler
// 参数绑定或校验失败时不会调用 fn
func Adapt5[TArgs any, TResp any](fn func(*gin.Context, *TArgs) (TResp, error)) gin.HandlerFunc {
	argsType := reflect.TypeOf((*TArgs)(nil)).Elem()

	return func(ctx *gin.Context) {
		args, ok := prepareArgs(ctx, argsType)
		if !ok {
			return
		}

		result, err := fn(ctx, args.(*TArgs))
		if err != nil {
			AbortWithError(ctx, http.StatusInternalServerError, err)
			return
		}
		renderResponse(ctx, result)
	}
}

// Bind 按 Adapt5 的规则绑定并校验参数，失败时已经写入 400 响应
// 用于 Adapt0 形式的 handler 在写响应之前取参数
func Bind[T any](ctx *gin.Context) (*T, bool) {
	args, ok := prepareArgs(ctx, reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return nil, false
	}
	return args.(*T), true
}

func prepareArgs(ctx *gin.Context, t reflect.Type) (any, bool) {
	args := reflect.New(t).Interface()

	if err := bindArgs(ctx, args); err != nil {
		AbortWithError(ctx, http.StatusBadRequest, err)
		return nil, false
	}
	if v, ok := args.(interface{ IsValid() error }); ok {
		if err := v.IsValid(); err != nil {
			AbortWithError(ctx, http.StatusBadRequest, err)
			return nil, false
		}
	}
	return args, true
}
