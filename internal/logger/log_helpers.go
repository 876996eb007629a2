// Package logger provides logging utilities with structured logging support
package logger

import "context"

// Info logs an info message using the default logger.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// InfoCtx logs through the logger carried by ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnCtx logs through the logger carried by ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

// DebugCtx logs through the logger carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

// ErrorCtx logs through the logger carried by ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
}
