package leave

import (
	"context"
	"database/sql"
	"time"

	"go-fleet/internal/shared/database"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	List(ctx context.Context, filter ListLeaveFilter) ([]LeaveRequest, int64, error)
	TransitionStatus(ctx context.Context, l *LeaveRequest, from string) error
	Delete(ctx context.Context, l *LeaveRequest) error
	FindOverlap(ctx context.Context, driverID string, start, end time.Time, excludeID *string) (string, bool, error)
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

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) List(ctx context.Context, filter ListLeaveFilter) ([]LeaveRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&LeaveRequest{})
	if filter.DriverCode != "" {
		q = q.Where("driver_code = ?", filter.DriverCode)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("start_date DESC").Order("created_at DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var leaves []LeaveRequest
	if err := q.Find(&leaves).Error; err != nil {
		return nil, 0, err
	}
	return leaves, total, nil
}

// TransitionStatus writes l's status and decision fields if the row is
// still in status from at l.Version. A miss returns
// database.ErrOptimisticLock and leaves l untouched.
func (r *repository) TransitionStatus(ctx context.Context, l *LeaveRequest, from string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("id = ? AND status = ? AND version = ?", l.ID, from, l.Version).
		Updates(map[string]any{
			"status":     l.Status,
			"decided_by": l.DecidedBy,
			"decided_at": l.DecidedAt,
			"version":    l.Version + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrOptimisticLock
	}
	l.Version++
	l.UpdatedAt = now
	return nil
}

func (r *repository) Delete(ctx context.Context, l *LeaveRequest) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Delete(&LeaveRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrOptimisticLock
	}
	return nil
}

// FindOverlap returns the earliest pending or approved request of the
// driver sharing at least one day with [start, end].
func (r *repository) FindOverlap(ctx context.Context, driverID string, start, end time.Time, excludeID *string) (string, bool, error) {
	q := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("id").
		Where("driver_id = ?", driverID).
		Where("status IN ?", []string{StatusPending, StatusApproved}).
		Where("start_date <= ? AND end_date >= ?", end.Format(dateLayout), start.Format(dateLayout))

	if excludeID != nil && *excludeID != "" {
		q = q.Where("id <> ?", *excludeID)
	}

	var conflicts []LeaveRequest
	if err := q.Order("start_date ASC").Limit(1).Find(&conflicts).Error; err != nil {
		return "", false, err
	}
	if len(conflicts) == 0 {
		return "", false, nil
	}
	return conflicts[0].ID.String(), true, nil
}
