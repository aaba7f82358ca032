// Package log provides structured logging (slog) adapted for the guest's WASM environment.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/internal/wasmcontext"
)

// WasmLogHandler implements slog.Handler to route logs through a host function.
// Outside a wasm guest it writes text records to the configured writer.
type WasmLogHandler struct {
	fallback slog.Handler
	attrs    []slog.Attr
	groups   []string
	opts     handlerConfig
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	writer    io.Writer
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithWriter sets where non-wasm builds write records. Defaults to os.Stderr.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		c.writer = w
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{
		opts: cfg,
		fallback: slog.NewTextHandler(cfg.writer, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.addSource,
		}),
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a new WasmLogHandler that includes the given attributes.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newHandler := h.clone()
	for _, attr := range attrs {
		newHandler.attrs = append(newHandler.attrs, qualify(h.groups, attr))
	}
	newHandler.fallback = h.fallback.WithAttrs(attrs)
	return newHandler
}

// WithGroup returns a new WasmLogHandler with the given group name.
// Attributes added afterwards are reported as "group.key".
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := h.clone()
	newHandler.groups = append(newHandler.groups, name)
	newHandler.fallback = h.fallback.WithGroup(name)
	return newHandler
}

func (h *WasmLogHandler) clone() *WasmLogHandler {
	newHandler := *h
	newHandler.attrs = append([]slog.Attr(nil), h.attrs...)
	newHandler.groups = append([]string(nil), h.groups...)
	return &newHandler
}

// toWire converts a record, with the handler's accumulated attributes, to
// the message sent to the host.
func (h *WasmLogHandler) toWire(ctx context.Context, record slog.Record) entities.LogMessageWire {
	msg := entities.LogMessageWire{
		Context:   wasmcontext.ContextToWire(ctx),
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}

	for _, attr := range h.attrs {
		msg.Attrs = appendAttrWire(msg.Attrs, "", attr)
	}

	// Convert slog.Attr to LogAttrWire
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = appendAttrWire(msg.Attrs, "", qualify(h.groups, attr))
		return true // Continue iterating
	})

	return msg
}

// qualify prefixes attr's key with the open groups.
func qualify(groups []string, attr slog.Attr) slog.Attr {
	for i := len(groups) - 1; i >= 0; i-- {
		attr.Key = groups[i] + "." + attr.Key
	}
	return attr
}
