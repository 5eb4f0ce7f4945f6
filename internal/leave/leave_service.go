package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-fleet/internal/audit"
	"go-fleet/internal/config"
	"go-fleet/internal/driver"
	"go-fleet/internal/events"
	leaveerrors "go-fleet/internal/leave/errors"
	"go-fleet/internal/notification"
	"go-fleet/internal/shared/apperror"
	"go-fleet/internal/shared/contextutil"
	"go-fleet/internal/shared/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	opSubmit  = "submit"
	opApprove = "approve"
	opReject  = "reject"
	opDelete  = "delete"

	auditEntity = "leave_request"
)

type Service interface {
	Submit(ctx context.Context, req SubmitLeaveRequest) (LeaveResponse, error)
	GetByID(ctx context.Context, id string) (LeaveResponse, error)
	List(ctx context.Context, filter ListLeaveFilter) ([]LeaveResponse, int64, error)
	Approve(ctx context.Context, id, approver string) (LeaveResponse, error)
	Reject(ctx context.Context, id, approver string) (LeaveResponse, error)
	Delete(ctx context.Context, id, actor string) error
}

// decision is the committed outcome of one status change. driver is the
// ledger row as written in the same transaction, zero when the change
// carried no ledger effect.
type decision struct {
	before LeaveRequest
	after  LeaveRequest
	effect ledgerEffect
	driver driver.Driver
}

type service struct {
	db       *sql.DB
	repo     Repository
	ledger   driver.Ledger
	notifier notification.Notifier
	recorder audit.Recorder
	metrics  *metrics.Leave
	cfg      config.LeaveConfig
	locks    *driverLocks
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	ledger driver.Ledger,
	notifier notification.Notifier,
	recorder audit.Recorder,
	m *metrics.Leave,
	cfg config.LeaveConfig,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	if notifier == nil {
		notifier = notification.NewNoopNotifier()
	}
	if recorder == nil {
		recorder = audit.NoopRecorder{}
	}
	return &service{
		db:       db,
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		recorder: recorder,
		metrics:  m,
		cfg:      cfg,
		locks:    newDriverLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   l,
	}
}

func (s *service) Submit(ctx context.Context, req SubmitLeaveRequest) (resp LeaveResponse, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(opSubmit, outcome(err), started) }()

	s.logger.Debug("submit leave requested",
		zap.String("driver_code", req.DriverCode),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	d, err := s.ledger.Resolve(ctx, req.DriverCode)
	if err != nil {
		s.logger.Warn("submit leave driver lookup failed", zap.String("driver_code", req.DriverCode), zap.Error(err))
		return LeaveResponse{}, err
	}

	if endDate.Before(startDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}

	driverID := d.ID.String()
	unlock, err := s.locks.Lock(ctx, driverID)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer unlock()

	var created *LeaveRequest
	err = s.withRetry(ctx, opSubmit, func() error {
		l, err := s.submitTx(ctx, d, startDate, endDate, req.Reason)
		if err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		s.logger.Warn("submit leave failed",
			zap.String("driver_code", req.DriverCode),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	resp = mapToResponse(*created)
	s.logger.Info("submit leave success",
		zap.String("leave_id", resp.ID),
		zap.String("driver_code", resp.DriverCode),
		zap.Int("requested_days", resp.RequestedDays),
	)

	actor := contextutil.GetUserID(ctx)
	s.emit(ctx, events.LeaveSubmitted, resp, actor)
	s.record(ctx, opSubmit, resp.ID, nil, resp, actor)
	return resp, nil
}

func (s *service) submitTx(ctx context.Context, d *driver.Driver, startDate, endDate time.Time, reason string) (*LeaveRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit leave begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if _, err := s.ledger.Lock(ctx, tx, d.ID.String()); err != nil {
		return nil, err
	}

	if err := NewOverlapChecker(qtx).Check(ctx, d.ID.String(), startDate, endDate, nil); err != nil {
		return nil, mapRepositoryError(err)
	}

	l := &LeaveRequest{
		ID:            uuid.New(),
		DriverID:      d.ID,
		DriverCode:    d.ExternalCode,
		StartDate:     startDate,
		EndDate:       endDate,
		RequestedDays: RequestedDaysBetween(startDate, endDate),
		Reason:        reason,
		Status:        StatusPending,
		SubmittedAt:   s.now(),
		Version:       1,
	}
	if err := qtx.Create(ctx, l); err != nil {
		mapped := mapRepositoryError(err)
		if errors.Is(mapped, leaveerrors.ErrLeaveOverlap) {
			return nil, s.describeOverlap(ctx, d.ID.String(), startDate, endDate, mapped)
		}
		s.logger.Error("submit leave persist failed", zap.String("driver_code", d.ExternalCode), zap.Error(err))
		return nil, mapped
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit leave commit failed", zap.Error(err))
		return nil, err
	}
	return l, nil
}

// describeOverlap looks up the row that won a race against the exclusion
// constraint. The aborted transaction cannot be used, so the lookup reads
// committed state; if the winner is gone the bare error is returned.
func (s *service) describeOverlap(ctx context.Context, driverID string, start, end time.Time, fallback error) error {
	err := NewOverlapChecker(s.repo).Check(ctx, driverID, start, end, nil)
	if errors.Is(err, leaveerrors.ErrLeaveOverlap) {
		return err
	}
	if err != nil {
		s.logger.Warn("overlap lookup after constraint violation failed", zap.String("driver_id", driverID), zap.Error(err))
	}
	return fallback
}

func (s *service) GetByID(ctx context.Context, id string) (LeaveResponse, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) List(ctx context.Context, filter ListLeaveFilter) ([]LeaveResponse, int64, error) {
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, 0, leaveerrors.ErrInvalidStatusFilter
	}
	leaves, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list leave failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(leaves), total, nil
}

func (s *service) Approve(ctx context.Context, id, approver string) (LeaveResponse, error) {
	return s.decide(ctx, opApprove, id, approver, StatusApproved)
}

func (s *service) Reject(ctx context.Context, id, approver string) (LeaveResponse, error) {
	return s.decide(ctx, opReject, id, approver, StatusRejected)
}

func (s *service) decide(ctx context.Context, operation, id, actor, target string) (resp LeaveResponse, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(operation, outcome(err), started) }()

	s.logger.Debug("leave decision requested",
		zap.String("operation", operation),
		zap.String("leave_id", id),
		zap.String("actor", actor),
	)

	if actor == "" {
		return LeaveResponse{}, leaveerrors.ErrActorRequired
	}

	l, err := s.load(ctx, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	if _, err := transitionEffect(l.Status, target); err != nil {
		s.logger.Warn("leave decision invalid transition",
			zap.String("leave_id", id),
			zap.String("from_status", l.Status),
			zap.String("to_status", target),
		)
		return LeaveResponse{}, err
	}

	unlock, err := s.locks.Lock(ctx, l.DriverID.String())
	if err != nil {
		return LeaveResponse{}, err
	}
	defer unlock()

	var dec decision
	err = s.withRetry(ctx, operation, func() error {
		d, err := s.decideTx(ctx, l.DriverID.String(), id, actor, target)
		if err != nil {
			return err
		}
		dec = d
		return nil
	})
	if err != nil {
		s.logger.Warn("leave decision failed",
			zap.String("operation", operation),
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	if dec.effect != effectNone {
		s.ledger.RefreshBalance(ctx, dec.driver)
	}

	before, after := dec.before, dec.after
	resp = mapToResponse(after)
	s.logger.Info("leave decision success",
		zap.String("operation", operation),
		zap.String("leave_id", id),
		zap.String("from_status", before.Status),
		zap.String("to_status", after.Status),
		zap.String("driver_code", after.DriverCode),
	)

	eventType := events.LeaveApproved
	if target == StatusRejected {
		eventType = events.LeaveRejected
	}
	s.emit(ctx, eventType, resp, actor)
	s.record(ctx, operation, resp.ID, mapToResponse(before), resp, actor)
	return resp, nil
}

// decideTx runs one attempt of a decision. The driver row lock is taken
// first; the request is re-read under it so status, balance and overlap
// are all checked against committed state.
func (s *service) decideTx(ctx context.Context, driverID, id, actor, target string) (decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("leave decision begin tx failed", zap.Error(err))
		return decision{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	account, err := s.ledger.Lock(ctx, tx, driverID)
	if err != nil {
		return decision{}, err
	}

	current, err := qtx.FindByID(ctx, id)
	if err != nil {
		return decision{}, mapRepositoryError(err)
	}
	effect, err := transitionEffect(current.Status, target)
	if err != nil {
		return decision{}, err
	}

	if target == StatusApproved {
		self := current.ID.String()
		if err := NewOverlapChecker(qtx).Check(ctx, driverID, current.StartDate, current.EndDate, &self); err != nil {
			return decision{}, mapRepositoryError(err)
		}
	}

	dec := decision{before: *current, effect: effect}
	if delta := effect.delta(current.RequestedDays); delta != 0 {
		if _, err := account.AdjustUsed(ctx, delta); err != nil {
			return decision{}, err
		}
		dec.driver = account.Driver()
	}

	next := *current
	decidedAt := s.now()
	next.Status = target
	next.DecidedBy = &actor
	next.DecidedAt = &decidedAt
	if err := qtx.TransitionStatus(ctx, &next, current.Status); err != nil {
		return decision{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("leave decision commit failed", zap.String("leave_id", id), zap.Error(err))
		return decision{}, err
	}
	dec.after = next
	return dec, nil
}

func (s *service) Delete(ctx context.Context, id, actor string) (err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(opDelete, outcome(err), started) }()

	s.logger.Debug("delete leave requested", zap.String("leave_id", id), zap.String("actor", actor))

	l, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, l.DriverID.String())
	if err != nil {
		return err
	}
	defer unlock()

	var dec decision
	err = s.withRetry(ctx, opDelete, func() error {
		d, err := s.deleteTx(ctx, l.DriverID.String(), id)
		if err != nil {
			return err
		}
		dec = d
		return nil
	})
	if err != nil {
		s.logger.Warn("delete leave failed", zap.String("leave_id", id), zap.Error(err))
		return err
	}

	if dec.effect != effectNone {
		s.ledger.RefreshBalance(ctx, dec.driver)
	}

	deleted := dec.before
	resp := mapToResponse(deleted)
	s.logger.Info("delete leave success",
		zap.String("leave_id", id),
		zap.String("status", deleted.Status),
		zap.Bool("ledger_reversed", dec.effect == effectCredit),
	)

	s.emit(ctx, events.LeaveDeleted, resp, actor)
	s.record(ctx, opDelete, resp.ID, resp, nil, actor)
	return nil
}

func (s *service) deleteTx(ctx context.Context, driverID, id string) (decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete leave begin tx failed", zap.Error(err))
		return decision{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	account, err := s.ledger.Lock(ctx, tx, driverID)
	if err != nil {
		return decision{}, err
	}

	current, err := qtx.FindByID(ctx, id)
	if err != nil {
		return decision{}, mapRepositoryError(err)
	}
	effect, err := transitionEffect(current.Status, statusDeleted)
	if err != nil {
		return decision{}, err
	}

	dec := decision{before: *current, effect: effect}
	if delta := effect.delta(current.RequestedDays); delta != 0 {
		if _, err := account.AdjustUsed(ctx, delta); err != nil {
			return decision{}, err
		}
		dec.driver = account.Driver()
	}

	if err := qtx.Delete(ctx, current); err != nil {
		return decision{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return decision{}, err
	}
	return dec, nil
}

func (s *service) load(ctx context.Context, id string) (*LeaveRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, leaveerrors.ErrLeaveNotFound
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return l, nil
}

func (s *service) emit(ctx context.Context, eventType string, resp LeaveResponse, actor string) {
	s.notifier.Notify(ctx, events.LeaveLifecycleEvent{
		EventType:     eventType,
		RequestID:     contextutil.GetRequestID(ctx),
		LeaveID:       resp.ID,
		DriverCode:    resp.DriverCode,
		StartDate:     resp.StartDate,
		EndDate:       resp.EndDate,
		RequestedDays: resp.RequestedDays,
		Status:        resp.Status,
		Actor:         actor,
		OccurredAt:    s.now(),
	})
}

func (s *service) record(ctx context.Context, action, entityID string, before, after any, actor string) {
	s.recorder.Record(ctx, audit.Entry{
		Entity:     auditEntity,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		Actor:      actor,
		RequestID:  contextutil.GetRequestID(ctx),
		OccurredAt: s.now(),
	})
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:            l.ID.String(),
		DriverCode:    l.DriverCode,
		StartDate:     l.StartDate.Format(dateLayout),
		EndDate:       l.EndDate.Format(dateLayout),
		RequestedDays: l.RequestedDays,
		Reason:        l.Reason,
		Status:        l.Status,
		SubmittedAt:   l.SubmittedAt.Format(time.RFC3339),
		DecidedBy:     l.DecidedBy,
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
