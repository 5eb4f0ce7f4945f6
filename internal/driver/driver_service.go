package driver

import (
	"context"

	drivererrors "go-fleet/internal/driver/errors"

	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, req CreateDriverRequest) (DriverResponse, error)
	GetByCode(ctx context.Context, code string) (DriverResponse, error)
	GetBalance(ctx context.Context, code string) (BalanceResponse, error)
}

type service struct {
	repo   Repository
	ledger Ledger
	policy AllowancePolicy
	logger *zap.Logger
}

func NewService(repo Repository, ledger Ledger, policy AllowancePolicy, logger ...*zap.Logger) Service {
	l := zap.L().Named("driver.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("driver.service")
	}
	return &service{repo: repo, ledger: ledger, policy: policy, logger: l}
}

func (s *service) Create(ctx context.Context, req CreateDriverRequest) (DriverResponse, error) {
	s.logger.Debug("create driver requested",
		zap.String("external_code", req.ExternalCode),
		zap.String("employment_type", req.EmploymentType),
	)

	allowance, err := s.policy.DefaultFor(req.EmploymentType)
	if err != nil {
		return DriverResponse{}, err
	}
	if req.AnnualAllowanceDays != nil {
		if *req.AnnualAllowanceDays < 0 {
			return DriverResponse{}, drivererrors.ErrInvalidAllowance
		}
		allowance = *req.AnnualAllowanceDays
	}

	d := &Driver{
		ExternalCode:        req.ExternalCode,
		FullName:            req.FullName,
		EmploymentType:      req.EmploymentType,
		AnnualAllowanceDays: allowance,
		UsedDays:            0,
		Version:             1,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error("create driver persist failed", zap.String("external_code", req.ExternalCode), zap.Error(err))
		return DriverResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("create driver success",
		zap.String("driver_id", d.ID.String()),
		zap.String("external_code", d.ExternalCode),
		zap.Int("allowance", d.AnnualAllowanceDays),
	)
	return mapToResponse(*d), nil
}

func (s *service) GetByCode(ctx context.Context, code string) (DriverResponse, error) {
	d, err := s.ledger.Resolve(ctx, code)
	if err != nil {
		return DriverResponse{}, err
	}
	return mapToResponse(*d), nil
}

func (s *service) GetBalance(ctx context.Context, code string) (BalanceResponse, error) {
	return s.ledger.GetBalance(ctx, code)
}

func mapToResponse(d Driver) DriverResponse {
	return DriverResponse{
		ID:                  d.ID.String(),
		ExternalCode:        d.ExternalCode,
		FullName:            d.FullName,
		EmploymentType:      d.EmploymentType,
		AnnualAllowanceDays: d.AnnualAllowanceDays,
		UsedDays:            d.UsedDays,
		RemainingDays:       d.Remaining(),
	}
}
