package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender records messages in the log instead of delivering them. It is
// used when no message broker is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, recipient, subject, body string) error {
	s.log.Info("notification (not delivered, no broker configured)",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
