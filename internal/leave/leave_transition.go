package leave

import (
	"context"
	"time"

	leaveerrors "go-fleet/internal/leave/errors"
	"go-fleet/internal/shared/database"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ledgerEffect is what a transition does to the driver's used days.
type ledgerEffect int

const (
	effectNone ledgerEffect = iota
	effectDebit
	effectCredit
)

const statusDeleted = "DELETED"

// transitions lists every legal move. Nothing returns to PENDING.
var transitions = map[string]map[string]ledgerEffect{
	StatusPending: {
		StatusApproved: effectDebit,
		StatusRejected: effectNone,
		statusDeleted:  effectNone,
	},
	StatusApproved: {
		StatusRejected: effectCredit,
		statusDeleted:  effectCredit,
	},
	StatusRejected: {
		statusDeleted: effectNone,
	},
}

func transitionEffect(from, to string) (ledgerEffect, error) {
	if effect, ok := transitions[from][to]; ok {
		return effect, nil
	}
	return effectNone, leaveerrors.ErrInvalidStatusTransition.WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}

func (e ledgerEffect) delta(days int) int {
	switch e {
	case effectDebit:
		return days
	case effectCredit:
		return -days
	default:
		return 0
	}
}

func (s *service) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.RetryBaseDelay
	exp.Multiplier = 2
	exp.MaxInterval = time.Second
	exp.MaxElapsedTime = 0

	attempts := s.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the attempt budget is spent. Spent budgets surface as ErrBusy.
func (s *service) withRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if database.IsRetryable(err) {
			s.metrics.IncRetry(operation)
			s.logger.Warn("leave operation conflict, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, s.newBackOff(ctx))

	if err != nil && database.IsRetryable(err) {
		s.logger.Error("leave operation retries exhausted",
			zap.String("operation", operation),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return leaveerrors.ErrBusy
	}
	return err
}
