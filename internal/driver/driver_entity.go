package driver

import (
	"time"

	"github.com/google/uuid"
)

const (
	EmploymentFullTime   = "FULL_TIME"
	EmploymentPartTime   = "PART_TIME"
	EmploymentContractor = "CONTRACTOR"
)

type Driver struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalCode        string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_drivers_external_code"`
	FullName            string    `gorm:"type:varchar(255);not null;default:''"`
	EmploymentType      string    `gorm:"type:varchar(20);not null;default:'FULL_TIME'"`
	AnnualAllowanceDays int       `gorm:"type:int;not null;default:0"`
	UsedDays            int       `gorm:"type:int;not null;default:0"`
	Version             int       `gorm:"type:int;not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Driver) TableName() string { return "drivers" }

// Remaining is allowance minus used days.
func (d Driver) Remaining() int {
	return d.AnnualAllowanceDays - d.UsedDays
}
