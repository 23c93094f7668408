package utils

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// Logger returns the shared structured logger, initializing it on first use.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		level := slog.LevelInfo
		if os.Getenv("LOG_LEVEL") == "debug" {
			level = slog.LevelDebug
		}
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
	})
	return logger
}

func LogInfo(ctx context.Context, msg string, attrs ...any) {
	Logger().InfoContext(ctx, msg, attrs...)
}

func LogWarn(ctx context.Context, msg string, attrs ...any) {
	Logger().WarnContext(ctx, msg, attrs...)
}

func LogError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))
	Logger().ErrorContext(ctx, msg, attrs...)
}

func LogDebug(ctx context.Context, msg string, attrs ...any) {
	Logger().DebugContext(ctx, msg, attrs...)
}
