package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-fleet/internal/events"
	"go-fleet/internal/notification"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, event events.LeaveLifecycleEvent) error
}

var _ EventDispatcher = (*notification.Dispatcher)(nil)

var errPoisonMessage = errors.New("poison message")

type options struct {
	maxRetries      uint64
	initialInterval time.Duration
}

type Option func(*options)

// WithDispatchRetries sets how often a failed dispatch is retried before the
// message is skipped, and the first wait between attempts.
func WithDispatchRetries(maxRetries uint64, initialInterval time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.initialInterval = initialInterval
	}
}

// ConsumeLeaveLifecycle dispatches every message and then commits it. A
// failed dispatch is retried in place; once retries run out the message is
// logged and committed, since a later commit would cover its offset anyway.
func ConsumeLeaveLifecycle(
	ctx context.Context,
	reader MessageReader,
	dispatcher EventDispatcher,
	logger *zap.Logger,
	opts ...Option,
) {
	o := options{maxRetries: 4, initialInterval: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started", zap.Uint64("dispatch_retries", o.maxRetries))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		if err := handleWithRetry(ctx, msg, dispatcher, o, log); err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			if IsPoison(err) {
				log.Warn("skipping undeliverable leave event",
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			} else {
				log.Error("dispatch leave notification failed, skipping",
					zap.Int64("offset", msg.Offset),
					zap.String("key", string(msg.Key)),
					zap.Error(err),
				)
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave lifecycle message failed", zap.Error(err))
			continue
		}
	}
}

func handleWithRetry(ctx context.Context, msg kafkago.Message, dispatcher EventDispatcher, o options, log *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.initialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, o.maxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := HandleMessage(ctx, msg, dispatcher)
		if err == nil {
			return nil
		}
		if IsPoison(err) {
			return backoff.Permanent(err)
		}
		log.Warn("dispatch leave notification attempt failed",
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}, policy)
}

// HandleMessage decodes and dispatches one message. Messages that can never
// succeed are wrapped with errPoisonMessage so the caller commits past them.
func HandleMessage(ctx context.Context, msg kafkago.Message, dispatcher EventDispatcher) error {
	var event events.LeaveLifecycleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("%w: decode: %v", errPoisonMessage, err)
	}

	if err := dispatcher.Dispatch(ctx, event); err != nil {
		if errors.Is(err, notification.ErrUnknownEventType) {
			return fmt.Errorf("%w: %v", errPoisonMessage, err)
		}
		return err
	}
	return nil
}

func IsPoison(err error) bool {
	return errors.Is(err, errPoisonMessage)
}
