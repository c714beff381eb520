package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/common/logger"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
	"gorm.io/gorm"
)

var (
	// ErrVehicleNotFound 车辆不存在。
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrVehicleOnTrip 行程中的车辆禁止任何维保状态变更。
	// 调度与维保是两条独立写路径，这条守卫保证它们不会同时改写同一辆车。
	ErrVehicleOnTrip = errors.New("vehicle is on an active trip")

	// ErrIllegalStatus 当前状态不允许该维保操作。
	ErrIllegalStatus = errors.New("illegal maintenance status transition")
)

// allowFlip 维保工作流允许的状态流转。
var allowFlip = map[vehicle.Status][]vehicle.Status{
	vehicle.StatusAvailable:            {vehicle.StatusMaintenanceRequested, vehicle.StatusInShop, vehicle.StatusOutOfService},
	vehicle.StatusMaintenanceRequested: {vehicle.StatusInShop, vehicle.StatusAvailable, vehicle.StatusOutOfService},
	vehicle.StatusInShop:               {vehicle.StatusAvailable, vehicle.StatusOutOfService},
	vehicle.StatusOutOfService:         {vehicle.StatusAvailable},
	// on_trip 不出现在这里：行程中的车辆由调度流程独占
}

// StatusRepo 维保流程依赖的车辆存取能力，*vehicle.Repo 天然满足。
type StatusRepo interface {
	FindByID(ctx context.Context, id string) (*vehicle.Vehicle, error)
	CASStatus(ctx context.Context, id string, from, to vehicle.Status, maintainedAt *time.Time) (bool, error)
}

// Service 维保工作流：车辆状态在 维修申请/进厂/恢复/停用 之间流转。
type Service struct {
	repo StatusRepo
	now  func() time.Time
	log  logger.Logger
}

func NewService(repo StatusRepo, log logger.Logger) *Service {
	return &Service{repo: repo, now: time.Now, log: log}
}

// RequestMaintenance 报修：available -> maintenance_requested。
func (s *Service) RequestMaintenance(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error) {
	return s.flip(ctx, vehicleID, vehicle.StatusMaintenanceRequested, false)
}

// StartShopWork 进厂维修。
func (s *Service) StartShopWork(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error) {
	return s.flip(ctx, vehicleID, vehicle.StatusInShop, false)
}

// ReturnToService 恢复运营，并记录保养完成时间。
func (s *Service) ReturnToService(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error) {
	return s.flip(ctx, vehicleID, vehicle.StatusAvailable, true)
}

// Retire 停用车辆。
func (s *Service) Retire(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error) {
	return s.flip(ctx, vehicleID, vehicle.StatusOutOfService, false)
}

// flip 用 CAS 写入状态：只有当车辆仍处于读取时的状态才落库，
// 避免读-改-写窗口内被调度流程抢先改成 on_trip。
func (s *Service) flip(ctx context.Context, vehicleID string, to vehicle.Status, stampMaintained bool) (*vehicle.Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	v, err := s.repo.FindByID(ctx, strings.TrimSpace(vehicleID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleID)
	}
	if err != nil {
		return nil, err
	}

	if err := flipGuard(v.Status, to); err != nil {
		return nil, err
	}

	var maintainedAt *time.Time
	if stampMaintained {
		ts := s.now()
		maintainedAt = &ts
	}

	applied, err := s.repo.CASStatus(ctx, v.ID, v.Status, to, maintainedAt)
	if err != nil {
		return nil, err
	}
	if !applied {
		// 状态在检查后被并发修改，重读后给出准确的拒绝原因
		cur, rerr := s.repo.FindByID(ctx, v.ID)
		if rerr == nil {
			if gerr := flipGuard(cur.Status, to); gerr != nil {
				return nil, gerr
			}
		}
		return nil, fmt.Errorf("%w: %s (concurrent change)", ErrIllegalStatus, v.ID)
	}

	v.Status = to
	if maintainedAt != nil {
		v.LastMaintainedAt = maintainedAt
	}

	if s.log != nil {
		s.log.Infof("vehicle %s maintenance status -> %s", v.ID, to)
	}
	return v, nil
}

func flipGuard(from, to vehicle.Status) error {
	if from == vehicle.StatusOnTrip {
		return fmt.Errorf("%w", ErrVehicleOnTrip)
	}
	if !flipAllowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalStatus, from, to)
	}
	return nil
}

func flipAllowed(from, to vehicle.Status) bool {
	for _, s := range allowFlip[from] {
		if s == to {
			return true
		}
	}
	return false
}
