package trip

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

// MemoryStore 内存实现：测试与本地联调用。
// 单把互斥锁覆盖全部读改写，天然满足 Store 的串行化要求。
type MemoryStore struct {
	mu       sync.Mutex
	vehicles map[string]vehicle.Vehicle
	drivers  map[string]driver.Driver
	trips    map[string]Trip
	seq      int64

	idPrefix string
	idPad    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles: make(map[string]vehicle.Vehicle),
		drivers:  make(map[string]driver.Driver),
		trips:    make(map[string]Trip),
		idPrefix: "TRP",
		idPad:    3,
	}
}

// PutVehicle 写入/覆盖车辆记录（测试装配用）。
func (s *MemoryStore) PutVehicle(v vehicle.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// PutDriver 写入/覆盖司机记录（测试装配用）。
func (s *MemoryStore) PutDriver(d driver.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = d
}

func (s *MemoryStore) GetVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	cp := v
	return &cp, nil
}

func (s *MemoryStore) GetDriver(ctx context.Context, id string) (*driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, fmt.Errorf("%w: driver %s", ErrNotFound, id)
	}
	cp := d
	return &cp, nil
}

func (s *MemoryStore) GetTrip(ctx context.Context, id string) (*Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, id)
	}
	cp := t
	return &cp, nil
}

func (s *MemoryStore) CreateTrip(ctx context.Context, t *Trip) (*Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t.ID = formatTripID(s.idPrefix, s.idPad, s.seq)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.trips[t.ID] = *t

	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ApplyTransition(ctx context.Context, tripID string, fn Mutator) (*Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trips[tripID]
	if !ok {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	}

	// 车辆/司机缺失传 nil，由 Mutator 决定是否视为错误
	var vp *vehicle.Vehicle
	if v, ok := s.vehicles[t.VehicleID]; ok {
		cp := v
		vp = &cp
	}
	var dp *driver.Driver
	if d, ok := s.drivers[t.DriverID]; ok {
		cp := d
		dp = &cp
	}

	eff, err := fn(&t, vp, dp)
	if err != nil {
		return nil, err
	}

	s.trips[t.ID] = t
	if eff.VehicleDirty && vp != nil {
		s.vehicles[vp.ID] = *vp
	}
	if eff.DriverDirty && dp != nil {
		s.drivers[dp.ID] = *dp
	}

	cp := t
	return &cp, nil
}

func (s *MemoryStore) HasActiveTrip(ctx context.Context, vehicleID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trips {
		if t.VehicleID == vehicleID && !t.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListTrips(ctx context.Context, f TripFilter) ([]Trip, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Trip, 0, len(s.trips))
	for _, t := range s.trips {
		if f.VehicleID != "" && t.VehicleID != f.VehicleID {
			continue
		}
		if f.DriverID != "" && t.DriverID != f.DriverID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		matched = append(matched, t)
	}
	total := int64(len(matched))

	// 与 MySQL 实现同序：新建在前。创建时间相同用单号兜底，
	// 保证分页结果不随 map 遍历顺序漂移。
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Vehicles: make([]vehicle.Vehicle, 0, len(s.vehicles)),
		Drivers:  make([]driver.Driver, 0, len(s.drivers)),
		Trips:    make([]Trip, 0, len(s.trips)),
	}
	for _, v := range s.vehicles {
		snap.Vehicles = append(snap.Vehicles, v)
	}
	for _, d := range s.drivers {
		snap.Drivers = append(snap.Drivers, d)
	}
	for _, t := range s.trips {
		snap.Trips = append(snap.Trips, t)
	}
	return snap, nil
}

// formatTripID 零填充顺序单号；超出位数自动加宽。
func formatTripID(prefix string, pad int, n int64) string {
	if pad <= 0 {
		pad = 3
	}
	return fmt.Sprintf("%s-%0*d", prefix, pad, n)
}
