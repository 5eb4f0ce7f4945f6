package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

const dateLayout = "2006-01-02"

type LeaveRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DriverID      uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_driver_dates"`
	DriverCode    string    `gorm:"type:varchar(64);not null"`
	StartDate     time.Time `gorm:"type:date;not null;index:idx_leave_requests_driver_dates"`
	EndDate       time.Time `gorm:"type:date;not null;index:idx_leave_requests_driver_dates"`
	RequestedDays int       `gorm:"type:int;not null"`
	Reason        string    `gorm:"type:text;not null;default:''"`

	Status      string    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leave_requests_status"`
	SubmittedAt time.Time `gorm:"not null"`
	DecidedBy   *string   `gorm:"type:varchar(128)"`
	DecidedAt   *time.Time
	Version     int `gorm:"type:int;not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// Active requests count towards overlap.
func (l LeaveRequest) Active() bool {
	return l.Status == StatusPending || l.Status == StatusApproved
}

// RequestedDaysBetween counts calendar days in [start, end].
func RequestedDaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}
