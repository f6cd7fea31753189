// Package apierror 提供统一的错误类型，用于所有服务的错误处理
//
// 错误响应格式（JSON）：
//
//	{
//	    "errors": [
//	        {
//	            "code": "SnapshotNotFound",
//	            "message": "Snapshot 'snap_123' not found for this user."
//	        }
//	    ]
//	}
//
// 使用示例：
//
//	// 包装预定义错误，保留 Code 和 HTTPStatus
//	err := apierror.WrapError(apierror.ErrSnapshotNotFound, "Snapshot 'snap_123' not found for this user.", nil)
//
//	// 判断错误类型
//	if errors.Is(err, apierror.ErrSnapshotNotFound) { ... }
//
//	// 获取 HTTP 状态码
//	status := apierror.StatusOf(err)
//
// 预定义错误：
//
//   - ErrConfigsRootNotFound: 配置目录不存在或没有配置文件 (404)
//   - ErrSnapshotConflict: 同名快照已存在 (409)
//   - ErrSnapshotNotFound: 快照不存在/不属于调用方/已删除 (404)
//   - ErrInvalidTool: 未知的 RCA 工具 (400)
//   - ErrSnapshotNotLoaded: 后端未加载快照，需要 refresh (409)
//   - ErrBackendUnreachable: Batfish 不可达 (503)
//   - ErrSnapshotLoadFailed: Batfish 加载快照失败 (502)
//   - ErrStagingFailed: 暂存配置失败 (500)
//   - ErrToolExecutionFailed: 工具执行失败 (502)
//   - ErrInvalidParameter: 参数非法 (400)
//   - ErrAuthFailure: 身份校验失败 (401)
//   - ErrInternalError: 内部错误 (500)
package apierror
