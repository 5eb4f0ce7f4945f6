package notification

import (
	"context"
	"errors"
	"fmt"

	"go-fleet/internal/events"

	"go.uber.org/zap"
)

var ErrUnknownEventType = errors.New("unknown leave event type")

// Message is what a driver receives about one of their leave requests.
type Message struct {
	DriverCode string
	EventType  string
	LeaveID    string
	Subject    string
	Body       string
}

type Channel interface {
	Send(ctx context.Context, msg Message) error
}

type logChannel struct {
	logger *zap.Logger
}

// NewLogChannel writes messages to the structured log. It stands in for a
// real delivery channel (push, SMS, email).
func NewLogChannel(logger *zap.Logger) Channel {
	if logger == nil {
		logger = zap.L()
	}
	return &logChannel{logger: logger.Named("notification.channel.log")}
}

func (c *logChannel) Send(_ context.Context, msg Message) error {
	c.logger.Info("driver notification",
		zap.String("driver_code", msg.DriverCode),
		zap.String("event_type", msg.EventType),
		zap.String("leave_id", msg.LeaveID),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

type Dispatcher struct {
	channel Channel
	logger  *zap.Logger
}

func NewDispatcher(channel Channel, logger ...*zap.Logger) *Dispatcher {
	base := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		base = logger[0]
	}
	return &Dispatcher{channel: channel, logger: base.Named("notification.dispatcher")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event events.LeaveLifecycleEvent) error {
	msg, err := BuildMessage(event)
	if err != nil {
		return err
	}

	if err := d.channel.Send(ctx, msg); err != nil {
		d.logger.Warn("send driver notification failed",
			zap.String("driver_code", event.DriverCode),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func BuildMessage(event events.LeaveLifecycleEvent) (Message, error) {
	period := fmt.Sprintf("%s to %s (%d days)", event.StartDate, event.EndDate, event.RequestedDays)

	msg := Message{
		DriverCode: event.DriverCode,
		EventType:  event.EventType,
		LeaveID:    event.LeaveID,
	}

	switch event.EventType {
	case events.LeaveSubmitted:
		msg.Subject = "Leave request received"
		msg.Body = "Your leave request for " + period + " is waiting for review."
	case events.LeaveApproved:
		msg.Subject = "Leave request approved"
		msg.Body = "Your leave request for " + period + " was approved."
	case events.LeaveRejected:
		msg.Subject = "Leave request rejected"
		msg.Body = "Your leave request for " + period + " was rejected."
	case events.LeaveDeleted:
		msg.Subject = "Leave request removed"
		msg.Body = "Your leave request for " + period + " was removed."
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownEventType, event.EventType)
	}

	return msg, nil
}
