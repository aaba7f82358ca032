package wazero

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/internal/wasmtest"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	assert.Equal(t, uint32(DefaultMaxMessageSize), cfg.MaxMessageSize)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, zapcore.DebugLevel, cfg.MinLevel)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	logger := zap.NewExample()

	WithMaxMessageSize(2048)(&cfg)
	WithLogger(logger)(&cfg)
	WithMinLevel(zapcore.WarnLevel)(&cfg)
	WithCustomHandler(CustomHandler{Name: "test_handler"})(&cfg)

	assert.Equal(t, uint32(2048), cfg.MaxMessageSize)
	assert.Same(t, logger, cfg.Logger)
	assert.Equal(t, zapcore.WarnLevel, cfg.MinLevel)
	require.Len(t, cfg.CustomHandlers, 1)
	assert.Equal(t, "test_handler", cfg.CustomHandlers[0].Name)

	WithLogger(nil)(&cfg)
	assert.Same(t, logger, cfg.Logger, "nil logger is ignored")
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0, 5}, // never panics
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x12345678, 0x9ABCDEF0},
		{100, 50},
	}

	for _, tt := range tests {
		packed := packPtrLen(tt.ptr, tt.length)
		gotPtr, gotLen := unpackPtrLen(packed)

		assert.Equal(t, tt.ptr, gotPtr)
		assert.Equal(t, tt.length, gotLen)
	}
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"DEBUG+2", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"INFO+2", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"ERROR+4", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ZapLevel(tt.in))
		})
	}
}

func TestAttrField(t *testing.T) {
	f := attrField(entities.LogAttrWire{Key: "payload", Type: "json", Value: `{"a":1}`})
	assert.Equal(t, zapcore.ReflectType, f.Type)

	f = attrField(entities.LogAttrWire{Key: "n", Type: "int64", Value: "12"})
	assert.Equal(t, zapcore.StringType, f.Type)
	assert.Equal(t, "12", f.String)
}

func newRuntime(t *testing.T, opts ...AdapterOption) (wazero.Runtime, api.Module) {
	t.Helper()
	ctx := context.Background()

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	t.Cleanup(func() { _ = rt.Close(ctx) })
	require.NoError(t, RegisterHostModule(ctx, rt, opts...))

	bin, err := wasmtest.DemoGuest(wasmtest.GuestOptions{})
	require.NoError(t, err)
	mod, err := rt.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName("guest-1"))
	require.NoError(t, err)
	return rt, mod
}

func TestRegisterHostModule_ForwardsGuestLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, mod := newRuntime(t, WithLogger(zap.New(core)))

	_, err := mod.ExportedFunction("hello").Call(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("hello called").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "hello", fields["export"])
	assert.Equal(t, "guest-1", fields["instance"])
}

func TestRegisterHostModule_InstanceNameFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, mod := newRuntime(t, WithLogger(zap.New(core)))

	ctx := WithInstanceName(context.Background(), "pool-3")
	_, err := mod.ExportedFunction("hello").Call(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "pool-3", logs.All()[0].ContextMap()["instance"])
}

func TestRegisterHostModule_MinLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, mod := newRuntime(t, WithLogger(zap.New(core)), WithMinLevel(zapcore.WarnLevel))

	_, err := mod.ExportedFunction("hello").Call(context.Background())
	require.NoError(t, err)
	assert.Zero(t, logs.Len(), "INFO record is below the minimum level")
}

func TestRegisterHostModule_MessageTooLarge(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, mod := newRuntime(t, WithLogger(zap.New(core)), WithMaxMessageSize(8))

	_, err := mod.ExportedFunction("hello").Call(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "guest log message too large", logs.All()[0].Message)
}

func TestRegisterHostModule_CustomHandler(t *testing.T) {
	ctx := context.Background()
	called := false

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	err := RegisterHostModule(ctx, rt, WithCustomHandler(CustomHandler{
		Name: "ping",
		Handler: api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			called = true
		}),
	}))
	require.NoError(t, err)

	b := wasmtest.NewModuleBuilder()
	ping := b.ImportFunc(DefaultModuleName, "ping", nil, nil)
	b.AddFunc("run", nil, nil, nil, new(wasmtest.Asm).Call(ping).Bytes())

	mod, err := rt.Instantiate(ctx, b.Build())
	require.NoError(t, err)
	_, err = mod.ExportedFunction("run").Call(ctx)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestMemoryHelpers(t *testing.T) {
	_, mod := newRuntime(t)
	ctx := context.Background()

	packed, err := WriteToGuest(ctx, mod, []byte("payload"))
	require.NoError(t, err)
	ptr, length := unpackPtrLen(packed)
	assert.NotZero(t, ptr)
	assert.Equal(t, uint32(7), length)

	data, err := ReadAndFree(ctx, mod, packed)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	empty, err := WriteToGuest(ctx, mod, nil)
	require.NoError(t, err)
	assert.Zero(t, empty)

	_, err = ReadAndFree(ctx, mod, packPtrLen(0, 4))
	assert.Error(t, err)

	_, err = ReadAndFree(ctx, mod, packPtrLen(0xFFFFFF00, 0x1000))
	assert.Error(t, err)
}

func TestHandleLogMessage_Timestamp(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, mod := newRuntime(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := json.Marshal(map[string]any{"level": "ERROR", "message": "boom", "timestamp": ts, "context": map[string]any{"request_id": "r-1"}})
	require.NoError(t, err)

	packed, err := WriteToGuest(ctx, mod, msg)
	require.NoError(t, err)

	cfg := defaultAdapterConfig()
	cfg.Logger = zap.New(core)
	handleLogMessage(ctx, mod, []uint64{packed}, &cfg)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.True(t, ts.Equal(entry.Time))
	assert.Equal(t, "r-1", entry.ContextMap()["request_id"])
}
