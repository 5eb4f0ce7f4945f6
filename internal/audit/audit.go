// Package audit is the append-only audit sink. Callers hand entries to a
// Recorder and move on; queuing and retrying are the sink's job.
package audit

import (
	"context"
	"time"
)

type Entry struct {
	Entity     string
	EntityID   string
	Action     string
	Before     any
	After      any
	Actor      string
	RequestID  string
	Message    string
	OccurredAt time.Time
}

// Recorder accepts entries without blocking and never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Writer persists a single entry. Implementations may fail; the queued
// recorder retries them.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Entry) {}
