//go:build !wasip1

package log

import (
	"context"
	"log/slog"
)

// Handle writes the record as text. Host builds have no host function to
// forward to, so records stay local.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.fallback.Handle(ctx, record)
}
