package driver

import (
	"strings"
	"time"
)

// Status 司机在岗状态枚举。
type Status string

const (
	StatusAvailable Status = "available" // 可接单
	StatusOnTrip    Status = "on_trip"   // 行程中
	StatusSuspended Status = "suspended" // 已停职
	StatusOffDuty   Status = "off_duty"  // 休班
)

// Driver 是 drivers 表的 GORM 模型。
type Driver struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Name          string    `gorm:"size:64;not null"`
	LicenseNumber string    `gorm:"uniqueIndex;size:32;not null"`
	LicenseExpiry time.Time `gorm:"not null"` // 驾照到期日；到期当刻即视为过期

	// 准驾车型集合，逗号分隔存储，例如 "truck,van"
	LicenseCategories string `gorm:"size:64;not null"`

	Status      Status    `gorm:"type:varchar(16);index;not null"`
	SafetyScore int       `gorm:"not null;default:100"` // 0-100，仅供展示
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// CategorySlice 拆分准驾车型集合。
func (d Driver) CategorySlice() []string {
	if strings.TrimSpace(d.LicenseCategories) == "" {
		return nil
	}
	parts := strings.Split(d.LicenseCategories, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// HasCategory 判断司机是否持有某一车型的准驾资质。
func (d Driver) HasCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	for _, c := range d.CategorySlice() {
		if c == category {
			return true
		}
	}
	return false
}

// CategoriesJoin 规整并拼接准驾车型集合。
func CategoriesJoin(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return strings.Join(out, ",")
}
