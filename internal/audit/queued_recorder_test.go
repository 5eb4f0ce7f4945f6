package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-fleet/internal/audit"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []audit.Entry
}

func (w *fakeWriter) Write(_ context.Context, entry audit.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("sink unavailable")
	}
	w.written = append(w.written, entry)
	return nil
}

func TestQueuedRecorder(t *testing.T) {
	t.Run("writes queued entries and flushes on close", func(t *testing.T) {
		w := &fakeWriter{}
		r := audit.NewQueuedRecorder(w, 10, 3, zap.NewNop())
		r.Start(context.Background())

		r.Record(context.Background(), audit.Entry{Entity: "leave_request", EntityID: "1", Action: "approve"})
		r.Record(context.Background(), audit.Entry{Entity: "leave_request", EntityID: "2", Action: "reject"})
		r.Close()

		assert.Len(t, w.written, 2)
		assert.False(t, w.written[0].OccurredAt.IsZero())
	})

	t.Run("retries transient write failures", func(t *testing.T) {
		w := &fakeWriter{failures: 2}
		r := audit.NewQueuedRecorder(w, 10, 3, zap.NewNop())
		r.Start(context.Background())

		r.Record(context.Background(), audit.Entry{Entity: "leave_request", EntityID: "1", Action: "delete"})
		r.Close()

		assert.Len(t, w.written, 1)
		assert.Equal(t, 3, w.calls)
	})

	t.Run("drops when queue is full", func(t *testing.T) {
		w := &fakeWriter{}
		r := audit.NewQueuedRecorder(w, 1, 0, zap.NewNop())

		// not started: the second entry cannot be queued
		r.Record(context.Background(), audit.Entry{EntityID: "1"})
		r.Record(context.Background(), audit.Entry{EntityID: "2"})

		r.Start(context.Background())
		r.Close()

		assert.Len(t, w.written, 1)
		assert.Equal(t, "1", w.written[0].EntityID)
	})
}

func TestZapWriter(t *testing.T) {
	w := audit.NewZapWriter(zap.NewNop())
	assert.NoError(t, w.Write(context.Background(), audit.Entry{Entity: "server", Action: "SERVER_SHUTDOWN"}))
}
