package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/demopy-gb-jj/demopy"
	"github.com/demopy-gb-jj/demopy/application/binding"
	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/host"
	hostwazero "github.com/demopy-gb-jj/demopy/infrastructure/wazero"
)

// backend is what the commands call: the in-process export table or a
// loaded guest.
type backend interface {
	Manifest(ctx context.Context) (entities.Manifest, error)
	Call(ctx context.Context, export string, args json.RawMessage) entities.CallResponse
	Close(ctx context.Context) error
}

// openBackend loads the host configuration, then either loads the guest
// module it names or falls back to the in-process export table.
func openBackend(ctx context.Context, opts *RootOptions) (backend, error) {
	cfg := entities.DefaultHostConfig()
	if opts.Config != "" {
		loaded, err := host.LoadConfig(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Module != "" {
		cfg.Module = opts.Module
	}

	logger, err := newLogger(cfg.LogLevel, opts.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}

	if cfg.Module == "" {
		reg, err := demopy.NewRegistry()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build export table", err)
		}
		return &registryBackend{reg: reg, logger: logger}, nil
	}

	wasm, err := os.ReadFile(cfg.Module)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read module", err)
	}

	exec, err := host.NewExecutor(ctx, host.WithConfig(cfg), host.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start host runtime", err)
	}

	inst, err := exec.LoadModule(ctx, wasm)
	if err != nil {
		_ = exec.Close(ctx)
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", cfg.Module), err)
	}

	return &instanceBackend{exec: exec, inst: inst, logger: logger}, nil
}

// newLogger builds the CLI logger. Output goes to stderr so stdout only
// carries results.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(hostwazero.ZapLevel(level))
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.DisableStacktrace = true
	return config.Build()
}

type registryBackend struct {
	reg    *binding.Registry
	logger *zap.Logger
}

func (b *registryBackend) Manifest(context.Context) (entities.Manifest, error) {
	return *b.reg.Manifest(), nil
}

func (b *registryBackend) Call(ctx context.Context, export string, args json.RawMessage) entities.CallResponse {
	b.logger.Debug("calling in-process export", zap.String("export", export))
	return b.reg.Dispatch(ctx, entities.CallRequest{Export: export, Args: args})
}

func (b *registryBackend) Close(context.Context) error {
	_ = b.logger.Sync()
	return nil
}

type instanceBackend struct {
	exec   *host.Executor
	inst   *host.Instance
	logger *zap.Logger
}

func (b *instanceBackend) Manifest(ctx context.Context) (entities.Manifest, error) {
	return b.inst.Manifest(ctx)
}

// Call reports host-side failures, such as schema violations or traps, in
// the response like guest errors.
func (b *instanceBackend) Call(ctx context.Context, export string, args json.RawMessage) entities.CallResponse {
	b.logger.Debug("calling guest export", zap.String("export", export), zap.String("instance", b.inst.Name()))
	resp, err := b.inst.Call(ctx, export, args)
	if err != nil {
		return entities.CallResponse{Error: errors.ToErrorDetail(err)}
	}
	return resp
}

func (b *instanceBackend) Close(ctx context.Context) error {
	_ = b.inst.Close(ctx)
	err := b.exec.Close(ctx)
	_ = b.logger.Sync()
	return err
}
