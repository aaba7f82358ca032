package wazero

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/demopy-gb-jj/demopy/domain/entities"
)

const (
	// DefaultModuleName is the import module name guests link against.
	DefaultModuleName = "demopy_host"

	// DefaultMaxMessageSize bounds a single log message read from the guest.
	DefaultMaxMessageSize = 1 << 20 // 1MB
)

// AdapterConfig holds configuration for the host module.
type AdapterConfig struct {
	// Logger receives guest log records. Default is zap.NewNop().
	Logger *zap.Logger

	// CustomHandlers allows adding additional wazero-specific handlers.
	CustomHandlers []CustomHandler

	// MaxMessageSize limits the size of log messages read from guest memory.
	MaxMessageSize uint32

	// MinLevel drops guest records below this level.
	MinLevel zapcore.Level
}

// CustomHandler represents an additional function exported by the host module.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithMaxMessageSize sets the maximum log message size read from guest memory.
func WithMaxMessageSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxMessageSize = size
	}
}

// WithLogger sets the logger guest records are forwarded to.
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMinLevel sets the minimum level of forwarded guest records.
func WithMinLevel(level zapcore.Level) AdapterOption {
	return func(c *AdapterConfig) {
		c.MinLevel = level
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		Logger:         zap.NewNop(),
		MinLevel:       zapcore.DebugLevel,
	}
}

// RegisterHostModule instantiates the host module in runtime. It must be
// called before any guest importing the module is instantiated.
func RegisterHostModule(ctx context.Context, runtime wazero.Runtime, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(DefaultModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handleLogMessage(ctx, mod, stack, &cfg)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		WithParameterNames("message").
		Export("log_message")

	// Register any custom handlers
	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	// Instantiate the host module
	_, err := builder.Instantiate(ctx)
	return err
}

// handleLogMessage reads a LogMessageWire from guest memory, frees the
// buffer and forwards the record.
func handleLogMessage(ctx context.Context, mod api.Module, stack []uint64, cfg *AdapterConfig) {
	ptr, length := unpackPtrLen(stack[0])
	logger := cfg.Logger.With(zap.String("instance", GetInstanceName(ctx, mod)))

	if length > cfg.MaxMessageSize {
		logger.Warn("guest log message too large", zap.Uint32("size", length), zap.Uint32("limit", cfg.MaxMessageSize))
		Free(ctx, mod, ptr, length)
		return
	}

	data, err := ReadAndFree(ctx, mod, packPtrLen(ptr, length))
	if err != nil {
		logger.Warn("failed to read guest log message", zap.Error(err))
		return
	}

	var msg entities.LogMessageWire
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warn("malformed guest log message", zap.Error(err))
		return
	}

	level := ZapLevel(msg.Level)
	if level < cfg.MinLevel {
		return
	}

	ce := logger.Check(level, msg.Message)
	if ce == nil {
		return
	}
	if !msg.Timestamp.IsZero() {
		ce.Time = msg.Timestamp
	}

	fields := make([]zap.Field, 0, len(msg.Attrs)+1)
	if msg.Context.RequestID != "" {
		fields = append(fields, zap.String("request_id", msg.Context.RequestID))
	}
	for _, attr := range msg.Attrs {
		fields = append(fields, attrField(attr))
	}
	ce.Write(fields...)
}

// ZapLevel maps a slog level name, such as "WARN" or "INFO+2", to the
// nearest zap level at or below it.
func ZapLevel(name string) zapcore.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}

	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// attrField converts a wire attribute to a zap field, keeping JSON values
// structured.
func attrField(attr entities.LogAttrWire) zap.Field {
	if attr.Type == "json" && json.Valid([]byte(attr.Value)) {
		return zap.Reflect(attr.Key, json.RawMessage(attr.Value))
	}
	return zap.String(attr.Key, attr.Value)
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
// It never panics on a null pointer.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
