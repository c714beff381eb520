package trip

import (
	"math"

	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

// FleetMetrics 面板指标：对快照的纯函数投影，可从同一快照幂等重算。
type FleetMetrics struct {
	TotalVehicles    int                    `json:"total_vehicles"`
	VehiclesByStatus map[vehicle.Status]int `json:"vehicles_by_status"`
	PendingDrafts    int                    `json:"pending_drafts"`
	ActiveTrips      int                    `json:"active_trips"` // dispatched 状态的行程数

	// 利用率 = (总数-空闲数)/总数，取整到百分比并夹在 [0,100]
	UtilizationPct int `json:"utilization_pct"`
}

// ComputeFleetMetrics 从车辆/行程快照计算指标，绝不触发写入。
func ComputeFleetMetrics(vehicles []vehicle.Vehicle, trips []Trip) FleetMetrics {
	m := FleetMetrics{
		TotalVehicles:    len(vehicles),
		VehiclesByStatus: make(map[vehicle.Status]int),
	}

	available := 0
	for _, v := range vehicles {
		m.VehiclesByStatus[v.Status]++
		if v.Status == vehicle.StatusAvailable {
			available++
		}
	}

	for _, t := range trips {
		switch t.Status {
		case StatusDraft:
			m.PendingDrafts++
		case StatusDispatched:
			m.ActiveTrips++
		}
	}

	if m.TotalVehicles > 0 {
		pct := math.Round(float64(m.TotalVehicles-available) / float64(m.TotalVehicles) * 100)
		m.UtilizationPct = clampPct(int(pct))
	}
	return m
}

func clampPct(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
