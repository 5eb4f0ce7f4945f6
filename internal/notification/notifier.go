package notification

import (
	"context"
	"encoding/json"

	"go-fleet/internal/events"
	"go-fleet/internal/messaging/kafka"
	"go-fleet/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const aggregateLeaveRequest = "leave_request"

// Notifier accepts committed leave lifecycle events. Delivery is best effort:
// implementations log failures instead of returning them.
type Notifier interface {
	Notify(ctx context.Context, event events.LeaveLifecycleEvent)
}

type noopNotifier struct{}

func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) Notify(context.Context, events.LeaveLifecycleEvent) {}

type outboxNotifier struct {
	repo   kafka.OutboxRepository
	logger *zap.Logger
}

// NewOutboxNotifier stores events in the outbox table; the worker process
// publishes them to Kafka.
func NewOutboxNotifier(repo kafka.OutboxRepository, logger ...*zap.Logger) Notifier {
	base := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		base = logger[0]
	}
	return &outboxNotifier{repo: repo, logger: base.Named("notification.outbox")}
}

func (n *outboxNotifier) Notify(ctx context.Context, event events.LeaveLifecycleEvent) {
	if event.RequestID == "" {
		event.RequestID = contextutil.GetRequestID(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("encode leave event failed",
			zap.String("event_type", event.EventType),
			zap.String("leave_id", event.LeaveID),
			zap.Error(err),
		)
		return
	}

	outbox := kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: aggregateLeaveRequest,
		AggregateID:   event.DriverCode,
		EventType:     event.EventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}

	if err := n.repo.Create(ctx, outbox); err != nil {
		n.logger.Warn("enqueue leave event failed",
			zap.String("event_type", event.EventType),
			zap.String("leave_id", event.LeaveID),
			zap.String("driver_code", event.DriverCode),
			zap.Error(err),
		)
		return
	}

	n.logger.Debug("leave event enqueued",
		zap.String("outbox_id", outbox.ID),
		zap.String("event_type", event.EventType),
		zap.String("leave_id", event.LeaveID),
	)
}
