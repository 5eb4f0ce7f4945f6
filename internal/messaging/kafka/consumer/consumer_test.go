package consumer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-fleet/internal/events"
	"go-fleet/internal/messaging/kafka/consumer"
	"go-fleet/internal/notification"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	got       []events.LeaveLifecycleEvent
	err       error
	failFirst int
	calls     int
}

func (d *fakeDispatcher) Dispatch(_ context.Context, e events.LeaveLifecycleEvent) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	if d.calls <= d.failFirst {
		return errors.New("gateway timeout")
	}
	d.got = append(d.got, e)
	return nil
}

type fakeReader struct {
	msgs      []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		d := &fakeDispatcher{}
		msg := kafkago.Message{Value: []byte(`{"event_type":"leave.approved","leave_id":"l1","driver_code":"DRV-001"}`)}

		err := consumer.HandleMessage(ctx, msg, d)

		assert.NoError(t, err)
		assert.Len(t, d.got, 1)
		assert.Equal(t, "DRV-001", d.got[0].DriverCode)
	})

	t.Run("negative malformed payload is poison", func(t *testing.T) {
		err := consumer.HandleMessage(ctx, kafkago.Message{Value: []byte(`{`)}, &fakeDispatcher{})

		assert.True(t, consumer.IsPoison(err))
	})

	t.Run("negative unknown event type is poison", func(t *testing.T) {
		d := &fakeDispatcher{err: notification.ErrUnknownEventType}

		err := consumer.HandleMessage(ctx, kafkago.Message{Value: []byte(`{}`)}, d)

		assert.True(t, consumer.IsPoison(err))
	})

	t.Run("negative transient dispatch error is not poison", func(t *testing.T) {
		d := &fakeDispatcher{err: errors.New("gateway timeout")}

		err := consumer.HandleMessage(ctx, kafkago.Message{Value: []byte(`{}`)}, d)

		assert.Error(t, err)
		assert.False(t, consumer.IsPoison(err))
	})
}

func TestConsumeLeaveLifecycle_CommitsDeliveredAndPoison(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Offset: 1, Value: []byte(`{"event_type":"leave.submitted","driver_code":"DRV-001"}`)},
			{Offset: 2, Value: []byte(`not-json`)},
		},
	}
	d := &fakeDispatcher{}

	consumer.ConsumeLeaveLifecycle(ctx, reader, d, zapNop())

	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.Len(t, d.got, 1)
}

func TestConsumeLeaveLifecycle_RetriesTransientDispatchFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Offset: 7, Value: []byte(`{"event_type":"leave.approved","driver_code":"DRV-001"}`)},
		},
	}
	d := &fakeDispatcher{failFirst: 2}

	consumer.ConsumeLeaveLifecycle(ctx, reader, d, zapNop(), consumer.WithDispatchRetries(3, time.Millisecond))

	assert.Equal(t, 3, d.calls)
	assert.Len(t, d.got, 1)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumeLeaveLifecycle_SkipsAfterRetriesRunOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Offset: 3, Value: []byte(`{"event_type":"leave.approved","driver_code":"DRV-001"}`)},
			{Offset: 4, Value: []byte(`{"event_type":"leave.rejected","driver_code":"DRV-001"}`)},
		},
	}
	d := &fakeDispatcher{err: errors.New("gateway timeout")}

	consumer.ConsumeLeaveLifecycle(ctx, reader, d, zapNop(), consumer.WithDispatchRetries(2, time.Millisecond))

	assert.Equal(t, 6, d.calls)
	assert.Empty(t, d.got)
	assert.Equal(t, []int64{3, 4}, reader.committed)
}

func zapNop() *zap.Logger { return zap.NewNop() }
