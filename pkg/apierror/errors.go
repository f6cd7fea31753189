package apierror

import "net/http"

// 快照与 RCA 工具相关的预定义错误
// 调用方通过 errors.Is(err, apierror.ErrXXX) 判断错误类型
var (
	// ErrConfigsRootNotFound 配置根目录不存在或目录下没有任何候选配置文件
	ErrConfigsRootNotFound = &Error{
		Code:       "ConfigsRootNotFound",
		Message:    "The configs root does not exist or contains no device configuration files.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrSnapshotConflict 同一 owner 下已存在同名快照
	ErrSnapshotConflict = &Error{
		Code:       "SnapshotConflict",
		Message:    "A snapshot with this name already exists. Refresh it instead.",
		HTTPStatus: http.StatusConflict,
	}

	// ErrSnapshotNotFound 快照不存在、不属于调用方或已删除
	// 三种情况返回完全相同的错误，避免泄露其他租户的快照 ID
	ErrSnapshotNotFound = &Error{
		Code:       "SnapshotNotFound",
		Message:    "The snapshot does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrInvalidTool 工具不在固定目录内
	ErrInvalidTool = &Error{
		Code:       "InvalidTool",
		Message:    "The requested tool is not part of the RCA tool catalog.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrSnapshotNotLoaded 注册表记录存在，但仿真后端没有加载该快照
	ErrSnapshotNotLoaded = &Error{
		Code:       "SnapshotNotLoaded",
		Message:    "Snapshot not loaded in Batfish. Call refresh on the snapshot first.",
		HTTPStatus: http.StatusConflict,
	}

	// ErrBackendUnreachable 仿真后端不可达
	ErrBackendUnreachable = &Error{
		Code:       "BackendUnreachable",
		Message:    "The Batfish backend is unreachable. Contact the backend operators if this persists.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// ErrSnapshotLoadFailed 后端拒绝加载快照（解析失败等）
	ErrSnapshotLoadFailed = &Error{
		Code:       "SnapshotLoadFailed",
		Message:    "Batfish failed to load the snapshot.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ErrStagingFailed 暂存配置文件时发生文件系统错误
	ErrStagingFailed = &Error{
		Code:       "StagingFailed",
		Message:    "Config staging failed.",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrToolExecutionFailed 工具执行失败（应答格式异常、缺少必需列等）
	ErrToolExecutionFailed = &Error{
		Code:       "ToolExecutionFailed",
		Message:    "The RCA tool failed to execute.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ErrInvalidParameter 请求参数非法
	ErrInvalidParameter = &Error{
		Code:       "InvalidParameter",
		Message:    "A parameter specified in the request is not valid.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrAuthFailure 无法识别调用方身份
	ErrAuthFailure = &Error{
		Code:       "AuthFailure",
		Message:    "The provided credentials could not be validated.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrInternalError 内部错误，通常来自数据库
	ErrInternalError = &Error{
		Code:       "InternalError",
		Message:    "An internal error has occurred. Retry your request, but if the problem persists, contact the operators.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
