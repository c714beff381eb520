package trip

import (
	"fmt"
	"time"
)

// AllowTransition 定义行程状态机的允许流转关系。
// Draft → Dispatched → Completed，Draft/Dispatched 均可取消。
var AllowTransition = map[Status][]Status{
	StatusDraft:      {StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusCompleted, StatusCancelled},
	// 终态：不允许从 completed / cancelled 再流转
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// applyStatus 对行程应用状态变更，并维护关键时间字段。
// 资源占用/释放等副作用由 Service 在同一原子单元内处理。
func applyStatus(t *Trip, to Status, now time.Time) error {
	if t == nil {
		return fmt.Errorf("trip is nil")
	}
	from := t.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalState, from, to)
	}

	t.Status = to

	switch to {
	case StatusDispatched:
		if t.DispatchedAt == nil {
			ts := now
			t.DispatchedAt = &ts
		}
	case StatusCompleted:
		if t.CompletedAt == nil {
			ts := now
			t.CompletedAt = &ts
		}
	case StatusCancelled:
		if t.CancelledAt == nil {
			ts := now
			t.CancelledAt = &ts
		}
	}
	return nil
}
