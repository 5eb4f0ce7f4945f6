package leave

import (
	"errors"

	drivererrors "go-fleet/internal/driver/errors"
	leaveerrors "go-fleet/internal/leave/errors"
	"go-fleet/internal/shared/database"

	"gorm.io/gorm"
)

const (
	constraintActiveOverlap   = "ex_leave_requests_active_overlap"
	constraintUsedWithinAllow = "ck_drivers_used_within_allowance"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return leaveerrors.ErrLeaveNotFound
	}
	if database.IsExclusionViolation(err, constraintActiveOverlap) {
		return leaveerrors.ErrLeaveOverlap
	}
	if database.IsCheckViolation(err, constraintUsedWithinAllow) {
		return drivererrors.ErrInsufficientBalance
	}
	return err
}
