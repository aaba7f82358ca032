package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/demopy-gb-jj/demopy/host"
	"github.com/demopy-gb-jj/demopy/internal/wasmtest"
)

// newExecutor builds an executor logging to an observer. It is closed
// when the test ends.
func newExecutor(t *testing.T, opts ...host.Option) (*host.Executor, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]host.Option{host.WithLogger(zap.New(core))}, opts...)

	exec, err := host.NewExecutor(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = exec.Close(context.Background())
	})
	return exec, logs
}

// demoGuest builds the synthetic guest module.
func demoGuest(t *testing.T, opts wasmtest.GuestOptions) []byte {
	t.Helper()

	wasm, err := wasmtest.DemoGuest(opts)
	require.NoError(t, err)
	return wasm
}

// loadDemo loads the synthetic guest into a fresh executor.
func loadDemo(t *testing.T, guest wasmtest.GuestOptions, opts ...host.Option) (*host.Instance, *observer.ObservedLogs) {
	t.Helper()

	exec, logs := newExecutor(t, opts...)
	inst, err := exec.LoadModule(context.Background(), demoGuest(t, guest))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = inst.Close(context.Background())
	})
	return inst, logs
}
