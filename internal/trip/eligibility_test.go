package trip

import (
	"math"
	"testing"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
)

func TestVehicleAvailable(t *testing.T) {
	if VehicleAvailable(nil) {
		t.Fatalf("nil vehicle must not be available")
	}
	v := &vehicle.Vehicle{Status: vehicle.StatusAvailable}
	if !VehicleAvailable(v) {
		t.Fatalf("expected available")
	}
	for _, s := range []vehicle.Status{vehicle.StatusOnTrip, vehicle.StatusInShop, vehicle.StatusMaintenanceRequested, vehicle.StatusOutOfService} {
		v.Status = s
		if VehicleAvailable(v) {
			t.Fatalf("status %s must not be available", s)
		}
	}
}

func TestDriverEligible(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := driver.Driver{
		Status:            driver.StatusAvailable,
		LicenseExpiry:     now.Add(24 * time.Hour),
		LicenseCategories: "truck,van",
	}

	d := base
	if !DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("expected eligible")
	}

	if DriverEligible(nil, vehicle.TypeTruck, now) {
		t.Fatalf("nil driver must not be eligible")
	}

	d = base
	d.Status = driver.StatusOnTrip
	if DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("on_trip driver must not be eligible")
	}

	d = base
	d.LicenseCategories = "van"
	if DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("driver without truck category must not be eligible")
	}
}

// 驾照到期判定是严格的：到期时刻等于当前时刻视为已过期。
func TestDriverEligibleLicenseBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := driver.Driver{
		Status:            driver.StatusAvailable,
		LicenseCategories: "truck",
	}

	d.LicenseExpiry = now
	if DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("expiry == now must be expired")
	}

	d.LicenseExpiry = now.Add(-time.Second)
	if DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("expired license must not be eligible")
	}

	d.LicenseExpiry = now.Add(time.Second)
	if !DriverEligible(&d, vehicle.TypeTruck, now) {
		t.Fatalf("one second of validity is enough")
	}
}

func TestFitsCapacity(t *testing.T) {
	capKg := 1000.0
	v := &vehicle.Vehicle{MaxCapacityKg: &capKg}

	if !FitsCapacity(999.9, v) || !FitsCapacity(1000.0, v) {
		t.Fatalf("weight within capacity must fit")
	}
	if FitsCapacity(1000.1, v) {
		t.Fatalf("weight above capacity must not fit")
	}

	// 容量未知按无约束放行
	unknown := &vehicle.Vehicle{}
	if !FitsCapacity(99999, unknown) {
		t.Fatalf("nil capacity must be unconstrained")
	}

	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if FitsCapacity(w, v) {
			t.Fatalf("weight %v must be rejected", w)
		}
	}
}
