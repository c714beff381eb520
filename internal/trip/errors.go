package trip

import "errors"

// 调度核心的错误分类。所有业务错误都用 %w 包装这四个哨兵之一，
// 调用方（HTTP 层、测试）统一用 errors.Is 判断。
var (
	// ErrValidation 入参不合法（空目的地、非正货重、坏里程数等）。
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 引用的行程/车辆/司机不存在。
	ErrNotFound = errors.New("not found")

	// ErrIllegalState 行程不在命令要求的状态（如对草稿执行完成）。
	ErrIllegalState = errors.New("illegal trip state")

	// ErrResourceUnavailable 发车时车辆或司机已不可用。
	// 创建时通过校验不代表发车时仍然成立，资源可能已被并发行程占用。
	ErrResourceUnavailable = errors.New("resource unavailable")
)
