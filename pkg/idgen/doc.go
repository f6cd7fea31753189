// Package idgen 提供 ID 生成器
//
// 快照 ID 使用 Sonyflake 算法生成，全局唯一且时间有序：
//
//	gen := idgen.New()
//	snapshotID, err := gen.GenerateSnapshotID()
//	// snapshotID: "snap_1234567890"
//
// 不需要有序的短随机串（设备名兜底、文件名冲突后缀）使用 RandomHex：
//
//	suffix := idgen.RandomHex(4)
//	// suffix: "9f3a"
package idgen
