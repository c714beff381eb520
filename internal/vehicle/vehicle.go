package vehicle

import (
	"strings"
	"time"
)

// Type 车辆类型枚举（持久化为字符串）。
type Type string

const (
	TypeTruck Type = "truck" // 卡车
	TypeVan   Type = "van"   // 厢式车
	TypeBike  Type = "bike"  // 两轮车
)

// ParseType 解析车辆类型，大小写不敏感。
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeTruck:
		return TypeTruck, true
	case TypeVan:
		return TypeVan, true
	case TypeBike:
		return TypeBike, true
	}
	return "", false
}

// Status 车辆状态枚举。
type Status string

const (
	StatusAvailable            Status = "available"             // 空闲可调度
	StatusOnTrip               Status = "on_trip"               // 行程占用中
	StatusMaintenanceRequested Status = "maintenance_requested" // 已报修，待进厂
	StatusInShop               Status = "in_shop"               // 维修中
	StatusOutOfService         Status = "out_of_service"        // 已停用
)

// Vehicle 是 vehicles 表的 GORM 模型。
type Vehicle struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:64;not null"`
	PlateNumber string `gorm:"uniqueIndex;size:32;not null"` // 统一大写存储
	Type        Type   `gorm:"type:varchar(16);not null"`

	// 最大载重（kg）。nil 表示登记信息不全、容量未知，
	// 调度侧按“无约束”处理（见 trip.FitsCapacity）。
	MaxCapacityKg *float64

	OdometerKm float64 `gorm:"not null;default:0"` // 里程表读数（km），正常运营下单调不减
	Status     Status  `gorm:"type:varchar(32);index;not null"`
	Region     string  `gorm:"size:64"` // 运营区域（自由文本）

	LastMaintainedAt *time.Time // 最近一次保养完成时间
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

// NormalizePlate 车牌归一化：去空白、统一大写。
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
