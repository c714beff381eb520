package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
	"gorm.io/gorm"
)

// fakeRepo 内存版 StatusRepo，可注入并发竞争场景。
type fakeRepo struct {
	vehicles map[string]*vehicle.Vehicle

	// beforeCAS 在 CASStatus 执行前被调用，用来模拟读改写窗口内的并发修改
	beforeCAS func()
}

func newFakeRepo(vs ...*vehicle.Vehicle) *fakeRepo {
	r := &fakeRepo{vehicles: make(map[string]*vehicle.Vehicle)}
	for _, v := range vs {
		r.vehicles[v.ID] = v
	}
	return r
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeRepo) CASStatus(ctx context.Context, id string, from, to vehicle.Status, maintainedAt *time.Time) (bool, error) {
	if r.beforeCAS != nil {
		r.beforeCAS()
	}
	v, ok := r.vehicles[id]
	if !ok || v.Status != from {
		return false, nil
	}
	v.Status = to
	if maintainedAt != nil {
		v.LastMaintainedAt = maintainedAt
	}
	return true, nil
}

func TestMaintenanceWorkflow(t *testing.T) {
	repo := newFakeRepo(&vehicle.Vehicle{ID: "v1", Status: vehicle.StatusAvailable})
	svc := NewService(repo, nil)
	ctx := context.Background()

	v, err := svc.RequestMaintenance(ctx, "v1")
	if err != nil {
		t.Fatalf("RequestMaintenance: %v", err)
	}
	if v.Status != vehicle.StatusMaintenanceRequested {
		t.Fatalf("expected maintenance_requested, got %s", v.Status)
	}

	if v, err = svc.StartShopWork(ctx, "v1"); err != nil {
		t.Fatalf("StartShopWork: %v", err)
	}
	if v.Status != vehicle.StatusInShop {
		t.Fatalf("expected in_shop, got %s", v.Status)
	}

	if v, err = svc.ReturnToService(ctx, "v1"); err != nil {
		t.Fatalf("ReturnToService: %v", err)
	}
	if v.Status != vehicle.StatusAvailable {
		t.Fatalf("expected available, got %s", v.Status)
	}
	if v.LastMaintainedAt == nil {
		t.Fatalf("ReturnToService must stamp LastMaintainedAt")
	}
	if repo.vehicles["v1"].LastMaintainedAt == nil {
		t.Fatalf("LastMaintainedAt must be persisted")
	}
}

func TestMaintenanceRefusesOnTrip(t *testing.T) {
	repo := newFakeRepo(&vehicle.Vehicle{ID: "v1", Status: vehicle.StatusOnTrip})
	svc := NewService(repo, nil)
	ctx := context.Background()

	for name, op := range map[string]func(context.Context, string) (*vehicle.Vehicle, error){
		"request": svc.RequestMaintenance,
		"start":   svc.StartShopWork,
		"finish":  svc.ReturnToService,
		"retire":  svc.Retire,
	} {
		if _, err := op(ctx, "v1"); !errors.Is(err, ErrVehicleOnTrip) {
			t.Fatalf("%s: expected ErrVehicleOnTrip, got %v", name, err)
		}
	}
}

func TestMaintenanceIllegalTransitions(t *testing.T) {
	repo := newFakeRepo(&vehicle.Vehicle{ID: "v1", Status: vehicle.StatusOutOfService})
	svc := NewService(repo, nil)

	// 已停用的车辆只能恢复，不能报修
	if _, err := svc.RequestMaintenance(context.Background(), "v1"); !errors.Is(err, ErrIllegalStatus) {
		t.Fatalf("expected ErrIllegalStatus, got %v", err)
	}
	if _, err := svc.ReturnToService(context.Background(), "v1"); err != nil {
		t.Fatalf("out_of_service -> available must be allowed: %v", err)
	}
}

func TestMaintenanceNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	if _, err := svc.Retire(context.Background(), "nope"); !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
}

// 读取与写入之间车辆被调度走：CAS 不生效，返回 on_trip 拒绝。
func TestMaintenanceLosesRaceToDispatch(t *testing.T) {
	v := &vehicle.Vehicle{ID: "v1", Status: vehicle.StatusAvailable}
	repo := newFakeRepo(v)
	repo.beforeCAS = func() {
		v.Status = vehicle.StatusOnTrip
	}
	svc := NewService(repo, nil)

	if _, err := svc.RequestMaintenance(context.Background(), "v1"); !errors.Is(err, ErrVehicleOnTrip) {
		t.Fatalf("expected ErrVehicleOnTrip after losing the race, got %v", err)
	}
	if v.Status != vehicle.StatusOnTrip {
		t.Fatalf("vehicle must keep dispatch state, got %s", v.Status)
	}
}
