package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Available() bool { return true }

func (s *LogSink) Show(_ context.Context, n Notification) error {
	s.logger.Info(n.Title,
		zap.String("user_id", n.UserID.String()),
		zap.String("task_id", n.TaskID.String()),
		zap.String("body", n.Body),
		zap.String("icon", n.Icon),
	)
	return nil
}
