package trip

import (
	"context"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

// Effect 标记 Mutator 修改了三元组中的哪些记录，未修改的不回写。
type Effect struct {
	VehicleDirty bool
	DriverDirty  bool
}

// Mutator 在一个原子单元内读取并修改 行程+车辆+司机 三元组。
// 车辆/司机记录缺失时传入 nil（如草稿指向的车辆已被删除，取消仍应可行）。
// 返回 error 时整个单元放弃，不落任何部分更新。
type Mutator func(t *Trip, v *vehicle.Vehicle, d *driver.Driver) (Effect, error)

// TripFilter 行程查询条件。
type TripFilter struct {
	VehicleID string
	DriverID  string
	Status    Status
	Offset    int
	Limit     int
}

// Snapshot 指标层使用的只读快照。
type Snapshot struct {
	Vehicles []vehicle.Vehicle
	Drivers  []driver.Driver
	Trips    []Trip
}

// Store 调度引擎消费的实体存储契约。
//
// ApplyTransition 是唯一的写入口（除 CreateTrip 生成草稿外）：
// 实现必须串行化触及同一车辆/司机的并发命令——内存实现用互斥锁，
// MySQL 实现用事务 + SELECT ... FOR UPDATE 行锁。否则两个并发发车
// 命令会同时观察到 available 并双双占用同一辆车。
type Store interface {
	GetVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error)
	GetDriver(ctx context.Context, id string) (*driver.Driver, error)
	GetTrip(ctx context.Context, id string) (*Trip, error)

	// CreateTrip 生成顺序单号并持久化草稿，不占用任何资源。
	CreateTrip(ctx context.Context, t *Trip) (*Trip, error)

	// ApplyTransition 以原子单元执行 fn，按 Effect 回写。
	ApplyTransition(ctx context.Context, tripID string, fn Mutator) (*Trip, error)

	// HasActiveTrip 车辆是否被未终结（draft/dispatched）行程引用。
	HasActiveTrip(ctx context.Context, vehicleID string) (bool, error)

	ListTrips(ctx context.Context, f TripFilter) ([]Trip, int64, error)

	// Snapshot 供指标层做纯函数投影，绝不触发写入。
	Snapshot(ctx context.Context) (*Snapshot, error)
}
