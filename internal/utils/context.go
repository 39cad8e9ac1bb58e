package utils

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/vikasavnish/heirloom/internal/logging"
)

// Key type for context values
type contextKey string

const (
	userIDKey contextKey = "userID"
	loggerKey contextKey = "logger"
)

// GetUserIDFromContext extracts the acting user ID from the context
func GetUserIDFromContext(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(userIDKey).(uint)
	if !ok {
		return 0, errors.New("user ID not found in context")
	}
	return userID, nil
}

// SetUserIDToContext adds the acting user ID to the context
func SetUserIDToContext(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithLogger attaches an operation-scoped logger to the context.
func WithLogger(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// Logger returns the context logger, or the shared logger when none is set.
func Logger(ctx context.Context) logrus.FieldLogger {
	if log, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return log
	}
	return logging.Get()
}
