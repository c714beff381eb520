package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore MySQL 实现。
// ApplyTransition 在单个事务内对 行程→车辆→司机 依次加
// SELECT ... FOR UPDATE 行锁（固定顺序，避免死锁），从而串行化
// 触及同一资源的并发命令。
type GormStore struct {
	db       *gorm.DB
	idPrefix string
	idPad    int
}

func NewGormStore(db *gorm.DB, idPrefix string, idPad int) *GormStore {
	if idPrefix == "" {
		idPrefix = "TRP"
	}
	if idPad <= 0 {
		idPad = 3
	}
	return &GormStore{db: db, idPrefix: idPrefix, idPad: idPad}
}

// counter 顺序单号计数器（每个前缀一行）。
type counter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null;default:0"`
}

func (counter) TableName() string { return "trip_counters" }

// AutoMigrate 建表（行程 + 计数器）。
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Trip{}, &counter{})
}

func (s *GormStore) GetVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) GetDriver(ctx context.Context, id string) (*driver.Driver, error) {
	var d driver.Driver
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: driver %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *GormStore) GetTrip(ctx context.Context, id string) (*Trip, error) {
	var t Trip
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) CreateTrip(ctx context.Context, t *Trip) (*Trip, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := nextSeq(tx, s.idPrefix)
		if err != nil {
			return err
		}
		t.ID = formatTripID(s.idPrefix, s.idPad, n)
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// nextSeq 对计数器行加锁后自增，保证单号不重复。
func nextSeq(tx *gorm.DB, name string) (int64, error) {
	var c counter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = counter{Name: name}
		if err := tx.Create(&c).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	c.Value++
	if err := tx.Model(&counter{}).Where("name = ?", name).
		Update("value", c.Value).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (s *GormStore) ApplyTransition(ctx context.Context, tripID string, fn Mutator) (*Trip, error) {
	var out *Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := clause.Locking{Strength: "UPDATE"}

		var t Trip
		if err := tx.Clauses(lock).Where("id = ?", tripID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
			}
			return err
		}

		// 车辆/司机缺失传 nil，由 Mutator 决定是否视为错误
		var vp *vehicle.Vehicle
		var v vehicle.Vehicle
		if err := tx.Clauses(lock).Where("id = ?", t.VehicleID).First(&v).Error; err == nil {
			vp = &v
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var dp *driver.Driver
		var d driver.Driver
		if err := tx.Clauses(lock).Where("id = ?", t.DriverID).First(&d).Error; err == nil {
			dp = &d
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		eff, err := fn(&t, vp, dp)
		if err != nil {
			return err
		}

		if err := tx.Save(&t).Error; err != nil {
			return err
		}
		if eff.VehicleDirty && vp != nil {
			if err := tx.Save(vp).Error; err != nil {
				return err
			}
		}
		if eff.DriverDirty && dp != nil {
			if err := tx.Save(dp).Error; err != nil {
				return err
			}
		}

		out = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) HasActiveTrip(ctx context.Context, vehicleID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Trip{}).
		Where("vehicle_id = ? AND status IN ?", vehicleID,
			[]Status{StatusDraft, StatusDispatched}).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) ListTrips(ctx context.Context, f TripFilter) ([]Trip, int64, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&Trip{})
	if f.VehicleID != "" {
		q = q.Where("vehicle_id = ?", f.VehicleID)
	}
	if f.DriverID != "" {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trips []Trip
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&trips).Error; err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

func (s *GormStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := s.db.WithContext(ctx).Find(&snap.Vehicles).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Find(&snap.Drivers).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Find(&snap.Trips).Error; err != nil {
		return nil, err
	}
	return snap, nil
}
