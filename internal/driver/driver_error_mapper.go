package driver

import (
	"errors"

	drivererrors "go-fleet/internal/driver/errors"
	"go-fleet/internal/shared/database"

	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return drivererrors.ErrDriverNotFound
	}
	if database.IsUniqueViolation(err, "uq_drivers_external_code") {
		return drivererrors.ErrDriverAlreadyExists
	}
	return err
}
