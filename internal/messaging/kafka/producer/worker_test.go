package producer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-fleet/internal/messaging/kafka"
	kafkaMock "go-fleet/internal/messaging/kafka/mock"
	"go-fleet/internal/messaging/kafka/producer"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fakeWriter struct {
	written []kafkago.Message
	failFor map[string]error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if err := w.failFor[string(m.Key)]; err != nil {
			return err
		}
		w.written = append(w.written, m)
	}
	return nil
}

func TestProcessPendingEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("success publishes keyed by aggregate and marks sent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := kafkaMock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{}

		repo.EXPECT().ClaimDue(gomock.Any(), 50, 30*time.Second).Return([]kafka.OutboxEvent{
			{ID: "e1", AggregateID: "DRV-001", EventType: "leave.submitted", Topic: "fleet.leave.lifecycle.v1", Payload: []byte(`{}`)},
		}, nil)
		repo.EXPECT().MarkSent(gomock.Any(), "e1").Return(nil)

		sent, err := producer.ProcessPendingEvents(ctx, repo, writer, zap.NewNop())

		assert.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Len(t, writer.written, 1)
		assert.Equal(t, "DRV-001", string(writer.written[0].Key))
		assert.Equal(t, "event_type", writer.written[0].Headers[0].Key)
	})

	t.Run("negative publish failure marks event failed and continues", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := kafkaMock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{failFor: map[string]error{"DRV-001": errors.New("broker unavailable")}}

		repo.EXPECT().ClaimDue(gomock.Any(), 50, 30*time.Second).Return([]kafka.OutboxEvent{
			{ID: "e1", AggregateID: "DRV-001", Topic: "t", Payload: []byte(`{}`)},
			{ID: "e2", AggregateID: "DRV-002", Topic: "t", Payload: []byte(`{}`)},
		}, nil)
		repo.EXPECT().MarkFailed(gomock.Any(), "e1", "broker unavailable").Return(nil)
		repo.EXPECT().MarkSent(gomock.Any(), "e2").Return(nil)

		sent, err := producer.ProcessPendingEvents(ctx, repo, writer, zap.NewNop())

		assert.NoError(t, err)
		assert.Equal(t, 1, sent)
	})

	t.Run("negative list error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := kafkaMock.NewMockOutboxRepository(ctrl)
		repo.EXPECT().ClaimDue(gomock.Any(), 50, 30*time.Second).Return(nil, errors.New("db error"))

		sent, err := producer.ProcessPendingEvents(ctx, repo, &fakeWriter{}, zap.NewNop())

		assert.Error(t, err)
		assert.Zero(t, sent)
	})
}
