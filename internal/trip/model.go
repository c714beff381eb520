package trip

import "time"

// Status 行程状态枚举（持久化为字符串）。
type Status string

const (
	StatusDraft      Status = "draft"      // 草稿，未占用任何资源
	StatusDispatched Status = "dispatched" // 已发车，车辆/司机被独占
	StatusCompleted  Status = "completed"  // 已完成
	StatusCancelled  Status = "cancelled"  // 已取消
)

// Terminal 判断是否终态。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Trip 行程 GORM 模型。
// 单号由存储层按序生成（TRP-001 递增），同一存储实例内单调。
type Trip struct {
	ID string `gorm:"primaryKey;size:16"`

	// 业务关联
	VehicleID string `gorm:"index;size:36;not null"` // 指派车辆
	DriverID  string `gorm:"index;size:36;not null"` // 指派司机
	Status    Status `gorm:"type:varchar(16);index;not null"`

	// 货运信息
	Destination   string  `gorm:"size:255;not null"`
	Cargo         string  `gorm:"size:255;not null"` // 货物描述
	CargoWeightKg float64 `gorm:"not null"`          // 货重（kg），创建时校验不超载

	// 里程快照：发车时取车辆当前里程，完成时由调用方提供
	StartOdometerKm *float64
	EndOdometerKm   *float64

	// 时间信息
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
	DispatchedAt *time.Time // 发车时间
	CompletedAt  *time.Time // 完成时间
	CancelledAt  *time.Time // 取消时间
}
