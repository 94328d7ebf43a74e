package logger

import (
	"context"

	"github.com/robfig/cron/v3"
)

type cronLogger struct{}

var _ cron.Logger = cronLogger{}

// CronLogger routes scheduler events through the global logger.
// Scheduler chatter goes to debug; job errors stay at error level.
func CronLogger() cron.Logger {
	return cronLogger{}
}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	DebugSkip(context.Background(), 1, "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	ErrorWithErrSkip(context.Background(), 1, "cron: "+msg, err, keysAndValues...)
}
