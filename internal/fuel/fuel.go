package fuel

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expense 单次加油记录，按车辆归档，用于成本与油耗分析。
type Expense struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	VehicleID  string    `gorm:"size:36;index" json:"vehicle_id"`
	Liters     float64   `json:"liters"`
	CostCents  int64     `json:"cost_cents"`
	OdometerKm *float64  `json:"odometer_km,omitempty"`
	FilledAt   time.Time `json:"filled_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Expense) TableName() string {
	return "fuel_expenses"
}

// BeforeCreate 缺省生成 UUID 主键。
func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
