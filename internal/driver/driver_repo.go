package driver

import (
	"context"
	"database/sql"
	"time"

	"go-fleet/internal/shared/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=driver_repo.go -destination=mock/driver_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, d *Driver) error
	FindByCode(ctx context.Context, code string) (*Driver, error)
	LockByID(ctx context.Context, id string) (*Driver, error)
	UpdateUsedDays(ctx context.Context, d *Driver, usedDays int) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: database.OnTx(r.db, tx)}
}

func (r *repository) Create(ctx context.Context, d *Driver) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*Driver, error) {
	var d Driver
	err := r.db.WithContext(ctx).
		First(&d, "external_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// LockByID reads the driver with SELECT ... FOR UPDATE. It must run on a
// repository bound to an open transaction; the lock is held until commit.
func (r *repository) LockByID(ctx context.Context, id string) (*Driver, error) {
	var d Driver
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateUsedDays writes used_days if the row still carries d.Version and
// bumps the version on success.
func (r *repository) UpdateUsedDays(ctx context.Context, d *Driver, usedDays int) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Driver{}).
		Where("id = ? AND version = ?", d.ID, d.Version).
		Updates(map[string]any{
			"used_days":  usedDays,
			"version":    d.Version + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrOptimisticLock
	}
	d.UsedDays = usedDays
	d.Version++
	d.UpdatedAt = now
	return nil
}
