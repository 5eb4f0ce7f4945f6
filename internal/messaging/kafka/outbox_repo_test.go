package kafka_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go-fleet/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func validEvent() kafka.OutboxEvent {
	return kafka.OutboxEvent{
		ID:            "0b6f0c8e-7c5c-4c4b-9d1f-5f2d8d7e0a11",
		RequestID:     "rid-1",
		AggregateType: "leave_request",
		AggregateID:   "D1",
		EventType:     "leave.approved",
		Topic:         "fleet.leave.lifecycle.v1",
		Payload:       []byte(`{"event_type":"leave.approved"}`),
		Status:        kafka.OutboxStatusPending,
	}
}

var outboxColumns = []string{
	"id", "request_id", "aggregate_type", "aggregate_id", "event_type", "topic", "payload", "status", "retry_count", "created_at",
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		e := validEvent()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(e.ID, e.RequestID, e.AggregateType, e.AggregateID, e.EventType, e.Topic, e.Payload, e.Status).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = kafka.NewOutboxRepository(db).Create(ctx, e)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty status defaults to pending", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		e := validEvent()
		e.Status = ""
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(e.ID, e.RequestID, e.AggregateType, e.AggregateID, e.EventType, e.Topic, e.Payload, kafka.OutboxStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, kafka.NewOutboxRepository(db).Create(ctx, e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("runs on the caller transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		e := validEvent()
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		assert.NoError(t, err)
		assert.NoError(t, kafka.NewOutboxRepository(db).WithTx(tx).Create(ctx, e))
		assert.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative invalid event never reaches the db", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		e := validEvent()
		e.Payload = nil

		err = kafka.NewOutboxRepository(db).Create(ctx, e)

		assert.EqualError(t, err, "outbox payload is required")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_ClaimDue(t *testing.T) {
	ctx := context.Background()

	t.Run("returns claimed events oldest first", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		older := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
		newer := older.Add(time.Minute)
		rows := sqlmock.NewRows(outboxColumns).
			AddRow("e2", "rid-2", "leave_request", "D1", "leave.approved", "fleet.leave.lifecycle.v1", []byte(`{}`), "failed", 1, newer).
			AddRow("e1", "rid-1", "leave_request", "D1", "leave.submitted", "fleet.leave.lifecycle.v1", []byte(`{}`), "pending", 0, older)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(kafka.OutboxStatusPending, kafka.OutboxStatusFailed, 50, int64(30000)).
			WillReturnRows(rows)

		events, err := kafka.NewOutboxRepository(db).ClaimDue(ctx, 50, 30*time.Second)

		assert.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, "e1", events[0].ID)
		assert.Equal(t, "e2", events[1].ID)
		assert.Equal(t, 1, events[1].RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE outbox_events")).WillReturnError(errors.New("db down"))

		_, err = kafka.NewOutboxRepository(db).ClaimDue(ctx, 50, time.Second)

		assert.EqualError(t, err, "db down")
	})
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("status = CASE WHEN retry_count + 1 >= $4 THEN $3 ELSE $2 END")).
		WithArgs("e1", kafka.OutboxStatusFailed, kafka.OutboxStatusDead, kafka.MaxDeliveryAttempts, "broker unavailable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = kafka.NewOutboxRepository(db).MarkFailed(context.Background(), "e1", "broker unavailable")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs("e1", kafka.OutboxStatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, kafka.NewOutboxRepository(db).MarkSent(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOutboxEvent(t *testing.T) {
	e := validEvent()
	assert.NoError(t, kafka.ValidateOutboxEvent(e))

	e.Status = kafka.OutboxStatusSent
	assert.EqualError(t, kafka.ValidateOutboxEvent(e), `new outbox events must be pending, got "sent"`)

	e = validEvent()
	e.Topic = ""
	assert.EqualError(t, kafka.ValidateOutboxEvent(e), "outbox topic is required")

	e = validEvent()
	e.AggregateID = ""
	assert.EqualError(t, kafka.ValidateOutboxEvent(e), "outbox aggregate id is required")
}
