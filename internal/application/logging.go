package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/lifecycle"
	"github.com/example/lab-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps the error taxonomy to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, lifecycle.ErrTerminalState):
		return "terminal_state"
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, gateway.ErrUnauthenticated):
		return "unauthenticated"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if gateway.IsConflict(err) {
		return "conflict"
	}
	var tErr *gateway.TransportError
	if errors.As(err, &tErr) {
		return "transport"
	}

	return "unexpected"
}
