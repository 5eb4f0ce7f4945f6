package audit

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// QueuedRecorder buffers entries on a channel and writes them from a single
// goroutine, retrying failed writes with exponential backoff. When the
// buffer is full the entry is dropped with a warning.
type QueuedRecorder struct {
	writer     Writer
	queue      chan Entry
	maxRetries uint64
	baseDelay  time.Duration
	logger     *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

func NewQueuedRecorder(writer Writer, queueSize, maxRetries int, logger ...*zap.Logger) *QueuedRecorder {
	l := zap.L().Named("audit.recorder")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.recorder")
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &QueuedRecorder{
		writer:     writer,
		queue:      make(chan Entry, queueSize),
		maxRetries: uint64(maxRetries),
		baseDelay:  100 * time.Millisecond,
		logger:     l,
		done:       make(chan struct{}),
	}
}

func (r *QueuedRecorder) Record(_ context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			zap.String("entity", entry.Entity),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
		)
	}
}

// Start launches the writer goroutine. It drains the queue and returns
// once ctx is cancelled or Close is called.
func (r *QueuedRecorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case entry := <-r.queue:
				r.write(ctx, entry)
			case <-ctx.Done():
				r.drain(context.Background())
				return
			case <-r.done:
				r.drain(context.Background())
				return
			}
		}
	}()
}

// Close stops the writer after flushing what is already queued.
func (r *QueuedRecorder) Close() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

func (r *QueuedRecorder) drain(ctx context.Context) {
	for {
		select {
		case entry := <-r.queue:
			r.write(ctx, entry)
		default:
			return
		}
	}
}

func (r *QueuedRecorder) write(ctx context.Context, entry Entry) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)

	err := backoff.Retry(func() error {
		return r.writer.Write(ctx, entry)
	}, policy)
	if err != nil {
		r.logger.Error("audit write failed after retries",
			zap.String("entity", entry.Entity),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
