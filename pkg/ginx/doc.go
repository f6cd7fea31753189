// Package ginx 把普通函数适配成 gin handler
//
// 参数依次从 JSON Body、URI 参数、Query 参数绑定，后者覆盖前者；
// 参数实现了 IsValid() error 时在调用前校验。
// 错误统一渲染为 apierror.ErrorResponse，状态码取自错误链中的 *apierror.Error。
//
//	router.POST("/snapshots", ginx.Adapt5(func(c *gin.Context, args *CreateSnapshotRequest) (*CreateSnapshotResponse, error) {
//	    ...
//	}))
//
//	router.GET("/tools", ginx.Adapt2(func(c *gin.Context) *ListToolsResponse {
//	    ...
//	}))
package ginx
