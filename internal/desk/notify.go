package desk

import (
	"context"
	"log/slog"

	"newsdesk/internal/apiclient"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a non-blocking, user-visible message about the outcome of
// a desk operation.
type Notification struct {
	Level   Level
	Op      string
	ItemID  string
	Message string
	Err     error
}

// Notifier delivers notifications to whatever surface the desk runs in.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier writes notifications as structured log events.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("op", n.Op),
		slog.String("message", n.Message),
	}
	if n.ItemID != "" {
		attrs = append(attrs, slog.String("item_id", n.ItemID))
	}
	if n.Err != nil {
		attrs = append(attrs,
			slog.String("error_kind", apiclient.Kind(n.Err)),
			slog.String("error", n.Err.Error()))
	}

	switch n.Level {
	case LevelError:
		logger.ErrorContext(ctx, "desk notification", attrs...)
	case LevelWarning:
		logger.WarnContext(ctx, "desk notification", attrs...)
	default:
		logger.InfoContext(ctx, "desk notification", attrs...)
	}
}
