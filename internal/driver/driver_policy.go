package driver

import (
	"go-fleet/internal/config"
	drivererrors "go-fleet/internal/driver/errors"
)

// AllowancePolicy holds the default annual allowance per employment type.
// It is consulted only when a driver is created without an explicit value.
type AllowancePolicy map[string]int

func NewAllowancePolicy(cfg config.AllowanceConfig) AllowancePolicy {
	return AllowancePolicy{
		EmploymentFullTime:   cfg.FullTime,
		EmploymentPartTime:   cfg.PartTime,
		EmploymentContractor: cfg.Contractor,
	}
}

func (p AllowancePolicy) DefaultFor(employmentType string) (int, error) {
	days, ok := p[employmentType]
	if !ok {
		return 0, drivererrors.ErrInvalidEmploymentType
	}
	return days, nil
}
