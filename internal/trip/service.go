package trip

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/common/logger"
	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

// Service 调度引擎：驱动行程生命周期，并通过 Store 的原子单元
// 执行资源占用/释放。引擎自身不持有状态，是 存储状态+命令 的纯变换。
//
// 资源占用发生在发车而不是创建：多个草稿可以同时指向同一辆车/同一
// 司机互不冲突，真正的独占在发车这一刻才建立，且资格全部重查——
// 创建时通过的校验不可信，期间资源可能已被并发行程消耗。
type Service struct {
	store Store
	now   func() time.Time
	log   logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		log:   log,
	}
}

// CreateTripInput 创建行程草稿的入参。
type CreateTripInput struct {
	Destination   string
	Cargo         string
	CargoWeightKg float64
	VehicleID     string
	DriverID      string
}

// CreateTrip 创建草稿。只校验、不占用：成功与否都不改动车辆/司机。
func (s *Service) CreateTrip(ctx context.Context, in CreateTripInput) (*Trip, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	dest := strings.TrimSpace(in.Destination)
	if dest == "" {
		return nil, fmt.Errorf("%w: destination required", ErrValidation)
	}
	cargo := strings.TrimSpace(in.Cargo)
	if cargo == "" {
		return nil, fmt.Errorf("%w: cargo required", ErrValidation)
	}
	if math.IsNaN(in.CargoWeightKg) || math.IsInf(in.CargoWeightKg, 0) || in.CargoWeightKg <= 0 {
		return nil, fmt.Errorf("%w: cargo weight must be a positive number", ErrValidation)
	}

	v, err := s.store.GetVehicle(ctx, strings.TrimSpace(in.VehicleID))
	if err != nil {
		return nil, err
	}
	d, err := s.store.GetDriver(ctx, strings.TrimSpace(in.DriverID))
	if err != nil {
		return nil, err
	}

	if !VehicleAvailable(v) {
		return nil, fmt.Errorf("%w: vehicle %s is not available (status=%s)", ErrValidation, v.ID, v.Status)
	}
	if !DriverEligible(d, v.Type, s.now()) {
		return nil, fmt.Errorf("%w: driver %s is not eligible for vehicle type %s", ErrValidation, d.ID, v.Type)
	}
	if !FitsCapacity(in.CargoWeightKg, v) {
		return nil, fmt.Errorf("%w: cargo weight %.1fkg exceeds capacity %.1fkg of vehicle %s",
			ErrValidation, in.CargoWeightKg, *v.MaxCapacityKg, v.ID)
	}

	t, err := s.store.CreateTrip(ctx, &Trip{
		VehicleID:     v.ID,
		DriverID:      d.ID,
		Status:        StatusDraft,
		Destination:   dest,
		Cargo:         cargo,
		CargoWeightKg: in.CargoWeightKg,
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("trip %s created: vehicle=%s driver=%s weight=%.1fkg", t.ID, t.VehicleID, t.DriverID, t.CargoWeightKg)
	}
	return t, nil
}

// DispatchTrip 发车：建立车辆/司机的独占占用。
// 资格在此处重查（不信任创建时的结论），并与状态翻转同处一个原子单元。
func (s *Service) DispatchTrip(ctx context.Context, tripID string) (*Trip, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	now := s.now()

	t, err := s.store.ApplyTransition(ctx, strings.TrimSpace(tripID), func(t *Trip, v *vehicle.Vehicle, d *driver.Driver) (Effect, error) {
		if t.Status != StatusDraft {
			return Effect{}, fmt.Errorf("%w: trip %s is %s, dispatch requires draft", ErrIllegalState, t.ID, t.Status)
		}
		if v == nil {
			return Effect{}, fmt.Errorf("%w: vehicle %s", ErrNotFound, t.VehicleID)
		}
		if d == nil {
			return Effect{}, fmt.Errorf("%w: driver %s", ErrNotFound, t.DriverID)
		}
		if !VehicleAvailable(v) {
			return Effect{}, fmt.Errorf("%w: vehicle %s is %s", ErrResourceUnavailable, v.ID, v.Status)
		}
		if !DriverEligible(d, v.Type, now) {
			return Effect{}, fmt.Errorf("%w: driver %s is not eligible for vehicle type %s", ErrResourceUnavailable, d.ID, v.Type)
		}

		if err := applyStatus(t, StatusDispatched, now); err != nil {
			return Effect{}, err
		}
		start := v.OdometerKm
		t.StartOdometerKm = &start
		v.Status = vehicle.StatusOnTrip
		d.Status = driver.StatusOnTrip
		return Effect{VehicleDirty: true, DriverDirty: true}, nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("trip %s dispatched: vehicle=%s driver=%s start_odometer=%.1f", t.ID, t.VehicleID, t.DriverID, *t.StartOdometerKm)
	}
	return t, nil
}

// CompleteTrip 完成行程：回写车辆里程并释放车辆/司机。
func (s *Service) CompleteTrip(ctx context.Context, tripID string, endOdometerKm float64) (*Trip, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	now := s.now()

	t, err := s.store.ApplyTransition(ctx, strings.TrimSpace(tripID), func(t *Trip, v *vehicle.Vehicle, d *driver.Driver) (Effect, error) {
		if t.Status != StatusDispatched {
			return Effect{}, fmt.Errorf("%w: trip %s is %s, complete requires dispatched", ErrIllegalState, t.ID, t.Status)
		}
		if math.IsNaN(endOdometerKm) || math.IsInf(endOdometerKm, 0) || endOdometerKm < 0 {
			return Effect{}, fmt.Errorf("%w: end odometer must be a non-negative number", ErrValidation)
		}
		if t.StartOdometerKm != nil && endOdometerKm < *t.StartOdometerKm {
			return Effect{}, fmt.Errorf("%w: end odometer %.1f is below start odometer %.1f",
				ErrValidation, endOdometerKm, *t.StartOdometerKm)
		}

		if err := applyStatus(t, StatusCompleted, now); err != nil {
			return Effect{}, err
		}
		end := endOdometerKm
		t.EndOdometerKm = &end

		eff := Effect{}
		if v != nil {
			v.OdometerKm = endOdometerKm
			v.Status = vehicle.StatusAvailable
			eff.VehicleDirty = true
		}
		if d != nil {
			d.Status = driver.StatusAvailable
			eff.DriverDirty = true
		}
		return eff, nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("trip %s completed: end_odometer=%.1f", t.ID, endOdometerKm)
	}
	return t, nil
}

// CancelTrip 取消行程。补偿式释放：只有已发车的行程才占用过资源，
// 草稿取消不得触碰车辆/司机。
func (s *Service) CancelTrip(ctx context.Context, tripID string) (*Trip, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	now := s.now()

	t, err := s.store.ApplyTransition(ctx, strings.TrimSpace(tripID), func(t *Trip, v *vehicle.Vehicle, d *driver.Driver) (Effect, error) {
		wasDispatched := t.Status == StatusDispatched

		if err := applyStatus(t, StatusCancelled, now); err != nil {
			return Effect{}, err
		}

		eff := Effect{}
		if wasDispatched {
			if v != nil {
				v.Status = vehicle.StatusAvailable
				eff.VehicleDirty = true
			}
			if d != nil {
				d.Status = driver.StatusAvailable
				eff.DriverDirty = true
			}
		}
		return eff, nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("trip %s cancelled", t.ID)
	}
	return t, nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (*Trip, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: trip id required", ErrValidation)
	}
	return s.store.GetTrip(ctx, id)
}

func (s *Service) ListTrips(ctx context.Context, f TripFilter) ([]Trip, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.store.ListTrips(ctx, f)
}

// FleetMetrics 当前车队快照的只读投影。
func (s *Service) FleetMetrics(ctx context.Context) (*FleetMetrics, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m := ComputeFleetMetrics(snap.Vehicles, snap.Trips)
	return &m, nil
}
