package binding

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/demopy-gb-jj/demopy/domain/errors"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next Handler) Handler

// PanicRecoveryMiddleware returns a middleware that converts a panic in an
// export into an *errors.PanicError instead of crashing the caller.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = &errors.PanicError{Value: r, Export: ExportName(ctx), Stack: debug.Stack()}
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs each invocation with its
// duration. A nil logger uses slog.Default().
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, args []byte) ([]byte, error) {
			name := ExportName(ctx)
			start := time.Now()

			resp, err := next(ctx, args)

			elapsed := time.Since(start)
			if err != nil {
				logger.WarnContext(ctx, "export failed",
					slog.String("export", name),
					slog.Duration("duration", elapsed),
					slog.Any("error", err))
				return resp, err
			}
			logger.DebugContext(ctx, "export completed",
				slog.String("export", name),
				slog.Duration("duration", elapsed),
				slog.Int("response_bytes", len(resp)))
			return resp, nil
		}
	}
}
