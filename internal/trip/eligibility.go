package trip

import (
	"math"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

// 本文件是纯判定函数，无副作用。调度引擎在创建和发车两个时点都会
// 重新评估：草稿创建后资源状态随时可能被其他行程改变。

// VehicleAvailable 车辆是否空闲可调度。
func VehicleAvailable(v *vehicle.Vehicle) bool {
	return v != nil && v.Status == vehicle.StatusAvailable
}

// DriverEligible 司机是否可承接指定车型的行程：
// - 在岗状态为 available
// - 驾照严格未过期（到期时刻等于 now 视为已过期）
// - 持有该车型的准驾资质
func DriverEligible(d *driver.Driver, vehicleType vehicle.Type, now time.Time) bool {
	if d == nil || d.Status != driver.StatusAvailable {
		return false
	}
	if !d.LicenseExpiry.After(now) {
		return false
	}
	return d.HasCategory(string(vehicleType))
}

// FitsCapacity 货重是否在车辆载重范围内。
// 容量未知（MaxCapacityKg 为 nil）按无约束放行——沿用既有登记数据
// 允许不填载重的宽松口径；若要收紧应在登记侧强制填写而不是在这里拒单。
func FitsCapacity(cargoWeightKg float64, v *vehicle.Vehicle) bool {
	if math.IsNaN(cargoWeightKg) || math.IsInf(cargoWeightKg, 0) || cargoWeightKg <= 0 {
		return false
	}
	if v == nil || v.MaxCapacityKg == nil {
		return true
	}
	return cargoWeightKg <= *v.MaxCapacityKg
}
