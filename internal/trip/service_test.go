package trip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func seedVehicle(store *MemoryStore, id string, capKg float64) {
	v := vehicle.Vehicle{
		ID:          id,
		Name:        "truck-" + id,
		PlateNumber: "TEST" + id,
		Type:        vehicle.TypeTruck,
		OdometerKm:  1200,
		Status:      vehicle.StatusAvailable,
	}
	if capKg > 0 {
		v.MaxCapacityKg = &capKg
	}
	store.PutVehicle(v)
}

func seedDriver(store *MemoryStore, id string) {
	store.PutDriver(driver.Driver{
		ID:                id,
		Name:              "driver-" + id,
		LicenseNumber:     "LIC" + id,
		LicenseExpiry:     testNow.Add(365 * 24 * time.Hour),
		LicenseCategories: "truck,van",
		Status:            driver.StatusAvailable,
	})
}

func mustCreate(t *testing.T, svc *Service, vehicleID, driverID string) *Trip {
	t.Helper()
	tr, err := svc.CreateTrip(context.Background(), CreateTripInput{
		Destination:   "Rotterdam DC",
		Cargo:         "pallets",
		CargoWeightKg: 500,
		VehicleID:     vehicleID,
		DriverID:      driverID,
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return tr
}

func TestCreateTripValidation(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateTripInput
		want error
	}{
		{"missing destination", CreateTripInput{Cargo: "x", CargoWeightKg: 1, VehicleID: "v1", DriverID: "d1"}, ErrValidation},
		{"missing cargo", CreateTripInput{Destination: "x", CargoWeightKg: 1, VehicleID: "v1", DriverID: "d1"}, ErrValidation},
		{"zero weight", CreateTripInput{Destination: "x", Cargo: "y", CargoWeightKg: 0, VehicleID: "v1", DriverID: "d1"}, ErrValidation},
		{"negative weight", CreateTripInput{Destination: "x", Cargo: "y", CargoWeightKg: -5, VehicleID: "v1", DriverID: "d1"}, ErrValidation},
		{"over capacity", CreateTripInput{Destination: "x", Cargo: "y", CargoWeightKg: 1500, VehicleID: "v1", DriverID: "d1"}, ErrValidation},
		{"unknown vehicle", CreateTripInput{Destination: "x", Cargo: "y", CargoWeightKg: 1, VehicleID: "nope", DriverID: "d1"}, ErrNotFound},
		{"unknown driver", CreateTripInput{Destination: "x", Cargo: "y", CargoWeightKg: 1, VehicleID: "v1", DriverID: "nope"}, ErrNotFound},
	}
	for _, c := range cases {
		_, err := svc.CreateTrip(ctx, c.in)
		if err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
		if !errors.Is(err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestCreateTripRejectsIneligibleDriver(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)

	store.PutDriver(driver.Driver{
		ID:                "d-expired",
		LicenseExpiry:     testNow.Add(-time.Hour),
		LicenseCategories: "truck",
		Status:            driver.StatusAvailable,
	})
	if _, err := svc.CreateTrip(context.Background(), CreateTripInput{
		Destination: "x", Cargo: "y", CargoWeightKg: 10, VehicleID: "v1", DriverID: "d-expired",
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for expired license, got %v", err)
	}

	store.PutDriver(driver.Driver{
		ID:                "d-bike",
		LicenseExpiry:     testNow.Add(time.Hour),
		LicenseCategories: "bike",
		Status:            driver.StatusAvailable,
	})
	if _, err := svc.CreateTrip(context.Background(), CreateTripInput{
		Destination: "x", Cargo: "y", CargoWeightKg: 10, VehicleID: "v1", DriverID: "d-bike",
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing category, got %v", err)
	}
}

// 创建只出草稿，不建立占用：车辆/司机保持 available，
// 同一辆车可以同时挂多个草稿。
func TestCreateTripDoesNotReserve(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	t1 := mustCreate(t, svc, "v1", "d1")
	t2 := mustCreate(t, svc, "v1", "d1")
	if t1.ID == t2.ID {
		t.Fatalf("expected distinct trip ids")
	}

	v, err := store.GetVehicle(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVehicle: %v", err)
	}
	if v.Status != vehicle.StatusAvailable {
		t.Fatalf("vehicle must stay available after draft, got %s", v.Status)
	}
	d, err := store.GetDriver(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDriver: %v", err)
	}
	if d.Status != driver.StatusAvailable {
		t.Fatalf("driver must stay available after draft, got %s", d.Status)
	}
}

func TestTripIDSequence(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")

	t1 := mustCreate(t, svc, "v1", "d1")
	t2 := mustCreate(t, svc, "v1", "d1")
	if t1.ID != "TRP-001" || t2.ID != "TRP-002" {
		t.Fatalf("expected TRP-001/TRP-002, got %s/%s", t1.ID, t2.ID)
	}
}

func TestDispatchReservesResources(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	got, err := svc.DispatchTrip(ctx, tr.ID)
	if err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}

	if got.Status != StatusDispatched {
		t.Fatalf("expected dispatched, got %s", got.Status)
	}
	if got.DispatchedAt == nil || !got.DispatchedAt.Equal(testNow) {
		t.Fatalf("expected DispatchedAt=%v, got %v", testNow, got.DispatchedAt)
	}
	if got.StartOdometerKm == nil || *got.StartOdometerKm != 1200 {
		t.Fatalf("expected start odometer snapshot 1200, got %v", got.StartOdometerKm)
	}

	v, _ := store.GetVehicle(ctx, "v1")
	if v.Status != vehicle.StatusOnTrip {
		t.Fatalf("vehicle must be on_trip after dispatch, got %s", v.Status)
	}
	d, _ := store.GetDriver(ctx, "d1")
	if d.Status != driver.StatusOnTrip {
		t.Fatalf("driver must be on_trip after dispatch, got %s", d.Status)
	}
}

func TestDispatchRequiresDraft(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	if _, err := svc.DispatchTrip(ctx, tr.ID); err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}
	if _, err := svc.DispatchTrip(ctx, tr.ID); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("second dispatch: expected ErrIllegalState, got %v", err)
	}
}

// 发车时点重新查验资格：创建之后资源状态可能已经变化。
func TestDispatchRechecksEligibility(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")

	// 草稿创建之后车辆进厂维修
	v, _ := store.GetVehicle(ctx, "v1")
	v.Status = vehicle.StatusInShop
	store.PutVehicle(*v)

	_, err := svc.DispatchTrip(ctx, tr.ID)
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}

	// 失败的发车不得留下部分副作用
	got, _ := store.GetTrip(ctx, tr.ID)
	if got.Status != StatusDraft {
		t.Fatalf("failed dispatch must leave trip draft, got %s", got.Status)
	}
	d, _ := store.GetDriver(ctx, "d1")
	if d.Status != driver.StatusAvailable {
		t.Fatalf("failed dispatch must not touch driver, got %s", d.Status)
	}
}

// 两个草稿争夺同一辆车并发发车，只能有一个赢家。
func TestConcurrentDispatchSingleWinner(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	seedDriver(store, "d2")
	ctx := context.Background()

	t1 := mustCreate(t, svc, "v1", "d1")
	t2 := mustCreate(t, svc, "v1", "d2")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{t1.ID, t2.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.DispatchTrip(ctx, id)
		}(i, id)
	}
	wg.Wait()

	var ok, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrResourceUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || unavailable != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d unavailable=%d", ok, unavailable)
	}
}

func TestCompleteTrip(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	if _, err := svc.DispatchTrip(ctx, tr.ID); err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}

	got, err := svc.CompleteTrip(ctx, tr.ID, 1350)
	if err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.EndOdometerKm == nil || *got.EndOdometerKm != 1350 {
		t.Fatalf("expected end odometer 1350, got %v", got.EndOdometerKm)
	}

	v, _ := store.GetVehicle(ctx, "v1")
	if v.Status != vehicle.StatusAvailable {
		t.Fatalf("vehicle must be released, got %s", v.Status)
	}
	if v.OdometerKm != 1350 {
		t.Fatalf("vehicle odometer must advance to 1350, got %.1f", v.OdometerKm)
	}
	d, _ := store.GetDriver(ctx, "d1")
	if d.Status != driver.StatusAvailable {
		t.Fatalf("driver must be released, got %s", d.Status)
	}
}

func TestCompleteTripOdometerValidation(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	if _, err := svc.CompleteTrip(ctx, tr.ID, 1500); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("completing a draft: expected ErrIllegalState, got %v", err)
	}

	if _, err := svc.DispatchTrip(ctx, tr.ID); err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}

	// 终点里程不得小于发车快照（快照为 1200）
	if _, err := svc.CompleteTrip(ctx, tr.ID, 1100); !errors.Is(err, ErrValidation) {
		t.Fatalf("end < start: expected ErrValidation, got %v", err)
	}
	if _, err := svc.CompleteTrip(ctx, tr.ID, -1); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative end: expected ErrValidation, got %v", err)
	}

	// 校验失败不得改变行程状态
	got, _ := store.GetTrip(ctx, tr.ID)
	if got.Status != StatusDispatched {
		t.Fatalf("trip must remain dispatched, got %s", got.Status)
	}
}

// 草稿取消是无副作用的：车辆/司机状态原样保留。
func TestCancelDraftLeavesResourcesUntouched(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	seedDriver(store, "d2")
	ctx := context.Background()

	// d1 把车开走，v1 上遗留一个 d2 的草稿
	active := mustCreate(t, svc, "v1", "d1")
	stale := mustCreate(t, svc, "v1", "d2")
	if _, err := svc.DispatchTrip(ctx, active.ID); err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}

	got, err := svc.CancelTrip(ctx, stale.ID)
	if err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	if got.Status != StatusCancelled || got.CancelledAt == nil {
		t.Fatalf("expected cancelled with timestamp, got %s/%v", got.Status, got.CancelledAt)
	}

	// 取消草稿不能把正在行程中的车辆放回 available
	v, _ := store.GetVehicle(ctx, "v1")
	if v.Status != vehicle.StatusOnTrip {
		t.Fatalf("cancelling a draft must not release the vehicle, got %s", v.Status)
	}
	d2, _ := store.GetDriver(ctx, "d2")
	if d2.Status != driver.StatusAvailable {
		t.Fatalf("draft driver must stay untouched, got %s", d2.Status)
	}
}

func TestCancelDispatchedReleasesResources(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	if _, err := svc.DispatchTrip(ctx, tr.ID); err != nil {
		t.Fatalf("DispatchTrip: %v", err)
	}
	if _, err := svc.CancelTrip(ctx, tr.ID); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}

	v, _ := store.GetVehicle(ctx, "v1")
	if v.Status != vehicle.StatusAvailable {
		t.Fatalf("vehicle must be released on cancel, got %s", v.Status)
	}
	d, _ := store.GetDriver(ctx, "d1")
	if d.Status != driver.StatusAvailable {
		t.Fatalf("driver must be released on cancel, got %s", d.Status)
	}
}

func TestTerminalTripsAreImmutable(t *testing.T) {
	svc, store := newTestService()
	seedVehicle(store, "v1", 1000)
	seedDriver(store, "d1")
	ctx := context.Background()

	tr := mustCreate(t, svc, "v1", "d1")
	if _, err := svc.CancelTrip(ctx, tr.ID); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}

	if _, err := svc.DispatchTrip(ctx, tr.ID); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("dispatch after cancel: expected ErrIllegalState, got %v", err)
	}
	if _, err := svc.CancelTrip(ctx, tr.ID); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("double cancel: expected ErrIllegalState, got %v", err)
	}
}
