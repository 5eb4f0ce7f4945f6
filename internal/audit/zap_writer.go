package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ZapWriter writes audit entries as structured log lines on the "audit"
// logger, which log shipping forwards to the audit store.
type ZapWriter struct {
	logger *zap.Logger
}

func NewZapWriter(logger *zap.Logger) *ZapWriter {
	if logger == nil {
		logger = zap.L()
	}
	return &ZapWriter{logger: logger.Named("audit")}
}

func (w *ZapWriter) Write(_ context.Context, entry Entry) error {
	occurredAt := entry.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	w.logger.Info("audit event",
		zap.String("timestamp", occurredAt.Format(time.RFC3339)),
		zap.String("entity", entry.Entity),
		zap.String("entity_id", entry.EntityID),
		zap.String("action", entry.Action),
		zap.String("actor", entry.Actor),
		zap.String("request_id", entry.RequestID),
		zap.String("message", entry.Message),
		zap.Any("before", entry.Before),
		zap.Any("after", entry.After),
	)
	return nil
}
