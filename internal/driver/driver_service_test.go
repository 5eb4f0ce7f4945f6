package driver_test

import (
	"context"
	"errors"
	"testing"

	"go-fleet/internal/config"
	"go-fleet/internal/driver"
	drivererrors "go-fleet/internal/driver/errors"
	mock_driver "go-fleet/internal/driver/mock"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func setupDriverService(t *testing.T) (*mock_driver.MockRepository, *mock_driver.MockLedger, driver.Service) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mock_driver.NewMockRepository(ctrl)
	ledger := mock_driver.NewMockLedger(ctrl)
	policy := driver.NewAllowancePolicy(config.AllowanceConfig{FullTime: 25, PartTime: 12, Contractor: 0})
	return repo, ledger, driver.NewService(repo, ledger, policy, zap.NewNop())
}

func TestDriverService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success uses policy default", func(t *testing.T) {
		repo, _, svc := setupDriverService(t)
		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, d *driver.Driver) error {
				assert.Equal(t, 12, d.AnnualAllowanceDays)
				assert.Equal(t, 0, d.UsedDays)
				return nil
			})

		resp, err := svc.Create(ctx, driver.CreateDriverRequest{
			ExternalCode:   "D1",
			FullName:       "Dana Driver",
			EmploymentType: driver.EmploymentPartTime,
		})

		assert.NoError(t, err)
		assert.Equal(t, 12, resp.AnnualAllowanceDays)
		assert.Equal(t, 12, resp.RemainingDays)
	})

	t.Run("explicit allowance overrides policy", func(t *testing.T) {
		repo, _, svc := setupDriverService(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		days := 30

		resp, err := svc.Create(ctx, driver.CreateDriverRequest{
			ExternalCode:        "D2",
			FullName:            "Sam Driver",
			EmploymentType:      driver.EmploymentFullTime,
			AnnualAllowanceDays: &days,
		})

		assert.NoError(t, err)
		assert.Equal(t, 30, resp.AnnualAllowanceDays)
	})

	t.Run("negative unknown employment type", func(t *testing.T) {
		_, _, svc := setupDriverService(t)

		_, err := svc.Create(ctx, driver.CreateDriverRequest{ExternalCode: "D3", EmploymentType: "SEASONAL"})

		assert.ErrorIs(t, err, drivererrors.ErrInvalidEmploymentType)
	})

	t.Run("negative allowance below zero", func(t *testing.T) {
		_, _, svc := setupDriverService(t)
		days := -1

		_, err := svc.Create(ctx, driver.CreateDriverRequest{
			ExternalCode: "D4", EmploymentType: driver.EmploymentFullTime, AnnualAllowanceDays: &days,
		})

		assert.ErrorIs(t, err, drivererrors.ErrInvalidAllowance)
	})

	t.Run("negative duplicate external code", func(t *testing.T) {
		repo, _, svc := setupDriverService(t)
		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(&pgconn.PgError{Code: "23505", ConstraintName: "uq_drivers_external_code"})

		_, err := svc.Create(ctx, driver.CreateDriverRequest{
			ExternalCode: "D1", FullName: "Dana Driver", EmploymentType: driver.EmploymentFullTime,
		})

		assert.ErrorIs(t, err, drivererrors.ErrDriverAlreadyExists)
	})

	t.Run("negative repository error", func(t *testing.T) {
		repo, _, svc := setupDriverService(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db error"))

		_, err := svc.Create(ctx, driver.CreateDriverRequest{
			ExternalCode: "D1", FullName: "Dana Driver", EmploymentType: driver.EmploymentFullTime,
		})

		assert.EqualError(t, err, "db error")
	})
}

func TestDriverService_GetByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		_, ledger, svc := setupDriverService(t)
		ledger.EXPECT().Resolve(gomock.Any(), "D1").Return(sampleDriver(25, 5), nil)

		resp, err := svc.GetByCode(ctx, "D1")

		assert.NoError(t, err)
		assert.Equal(t, 20, resp.RemainingDays)
	})

	t.Run("negative not found", func(t *testing.T) {
		_, ledger, svc := setupDriverService(t)
		ledger.EXPECT().Resolve(gomock.Any(), "nope").Return(nil, drivererrors.ErrDriverNotFound)

		_, err := svc.GetByCode(ctx, "nope")

		assert.ErrorIs(t, err, drivererrors.ErrDriverNotFound)
	})
}

func TestDriverService_GetBalance(t *testing.T) {
	_, ledger, svc := setupDriverService(t)
	want := driver.BalanceResponse{DriverCode: "D1", Allowance: 25, Used: 5, Remaining: 20}
	ledger.EXPECT().GetBalance(gomock.Any(), "D1").Return(want, nil)

	got, err := svc.GetBalance(context.Background(), "D1")

	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAllowancePolicy_DefaultFor(t *testing.T) {
	policy := driver.NewAllowancePolicy(config.AllowanceConfig{FullTime: 25, PartTime: 12, Contractor: 0})

	days, err := policy.DefaultFor(driver.EmploymentFullTime)
	assert.NoError(t, err)
	assert.Equal(t, 25, days)

	days, err = policy.DefaultFor(driver.EmploymentContractor)
	assert.NoError(t, err)
	assert.Equal(t, 0, days)

	_, err = policy.DefaultFor("INTERN")
	assert.ErrorIs(t, err, drivererrors.ErrInvalidEmploymentType)
}
