package fuel

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, e *Expense) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(e).Error
}

// ListByVehicle 按加油时间倒序分页返回某车辆的加油记录。
func (r *Repo) ListByVehicle(ctx context.Context, vehicleID string, offset, limit int) ([]Expense, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	q := db.Model(&Expense{}).Where("vehicle_id = ?", vehicleID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Expense
	err := q.Order("filled_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// TotalCostByVehicle 汇总某车辆的累计油费（分）与升数。
func (r *Repo) TotalCostByVehicle(ctx context.Context, vehicleID string) (costCents int64, liters float64, err error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, 0, fmt.Errorf("repo db is nil")
	}
	var agg struct {
		CostCents int64
		Liters    float64
	}
	err = db.Model(&Expense{}).
		Select("COALESCE(SUM(cost_cents),0) AS cost_cents, COALESCE(SUM(liters),0) AS liters").
		Where("vehicle_id = ?", vehicleID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	return agg.CostCents, agg.Liters, nil
}
