// Package batfish 是 Batfish v2 REST API 的最小客户端。
//
// 覆盖快照服务需要的全部操作：确保 network 存在、上传（覆盖）快照、
// 检查快照是否已加载、执行问题并取回表格应答、健康探测。
//
// 客户端不缓存任何会话状态，调用方可以每次请求新建一个 Client。
package batfish
