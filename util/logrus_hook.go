package util

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// SentryHook forwards error level log entries to sentry.
type SentryHook struct {
	Hub *sentry.Hub
}

var (
	levels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
)

func (h *SentryHook) Levels() []logrus.Level {
	return levels
}

func (h *SentryHook) Fire(entry *logrus.Entry) error {
	hub := h.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(entry.Level))
		for key, value := range entry.Data {
			if err, isError := value.(error); isError {
				scope.SetExtra(key, err.Error())
				continue
			}
			scope.SetExtra(key, value)
		}
		hub.CaptureMessage(entry.Message)
	})
	return nil
}

func sentryLevel(level logrus.Level) sentry.Level {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelError
	}
}
