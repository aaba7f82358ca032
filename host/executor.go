package host

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/demopy-gb-jj/demopy/application/validation"
	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/ports"
	hostwazero "github.com/demopy-gb-jj/demopy/infrastructure/wazero"
)

// initializeExport is called once after instantiation when a guest
// built as a reactor exports it.
const initializeExport = "_initialize"

// defaultInstanceName prefixes instance names of guests without a name section.
const defaultInstanceName = "demopy"

// Executor owns a wazero runtime with WASI and the host module
// instantiated, and loads guest modules into it.
type Executor struct {
	runtime   wazero.Runtime
	logger    *zap.Logger
	config    entities.HostConfig
	validator ports.ArgsValidator
	seq       atomic.Uint64

	hostFuncs     []hostwazero.CustomHandler
	maxLogMessage uint32
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		config: entities.DefaultHostConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := ValidateConfig(e.config); err != nil {
		return nil, err
	}
	if e.validator == nil {
		e.validator = validation.NewSchemaValidator()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig())

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	if err := hostwazero.RegisterHostModule(ctx, rt, e.hostModuleOptions()...); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	e.runtime = rt
	e.logger.Debug("executor ready",
		zap.String("engine", e.config.Engine),
		zap.Uint32("memory_limit_pages", e.config.MemoryLimitPages),
		zap.Duration("call_timeout", e.config.CallTimeout),
	)
	return e, nil
}

// Config returns the configuration the executor was built with.
func (e *Executor) Config() entities.HostConfig {
	return e.config
}

// Close releases resources held by the executor, including every module
// it instantiated.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile validates and compiles a guest binary so it can be instantiated
// any number of times. Callers close the result once no instance needs it.
func (e *Executor) Compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	return compiled, nil
}

// Instantiate creates a new instance of compiled. The instance does not
// own compiled.
func (e *Executor) Instantiate(ctx context.Context, compiled wazero.CompiledModule) (*Instance, error) {
	base := compiled.Name()
	if base == "" {
		base = defaultInstanceName
	}
	name := fmt.Sprintf("%s-%d", base, e.seq.Add(1))

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions().
		WithSysWalltime().
		WithSysNanotime().
		WithStderr(os.Stderr)

	mod, err := e.runtime.InstantiateModule(hostwazero.WithInstanceName(ctx, name), compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction(initializeExport); init != nil {
		if _, err := init.Call(hostwazero.WithInstanceName(ctx, name)); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call %s: %w", initializeExport, err)
		}
	}

	e.logger.Debug("instance loaded", zap.String("instance", name))

	return &Instance{
		module:      mod,
		name:        name,
		logger:      e.logger.With(zap.String("instance", name)),
		validator:   e.validator,
		timeout:     e.config.CallTimeout,
		closeOnDone: e.config.CallTimeout > 0,
	}, nil
}

// LoadModule compiles and instantiates a guest binary. The returned
// instance owns the compiled module and releases it on Close.
func (e *Executor) LoadModule(ctx context.Context, wasm []byte) (*Instance, error) {
	compiled, err := e.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}

	inst, err := e.Instantiate(ctx, compiled)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	inst.compiled = compiled
	return inst, nil
}

func (e *Executor) hostModuleOptions() []hostwazero.AdapterOption {
	opts := []hostwazero.AdapterOption{
		hostwazero.WithLogger(e.logger.Named("guest")),
		hostwazero.WithMinLevel(hostwazero.ZapLevel(e.config.LogLevel)),
	}
	if e.maxLogMessage > 0 {
		opts = append(opts, hostwazero.WithMaxMessageSize(e.maxLogMessage))
	}
	for _, h := range e.hostFuncs {
		opts = append(opts, hostwazero.WithCustomHandler(h))
	}
	return opts
}

// runtimeConfig maps the host configuration onto a wazero runtime config.
func (e *Executor) runtimeConfig() wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	switch e.config.Engine {
	case entities.EngineInterpreter:
		rc = wazero.NewRuntimeConfigInterpreter()
	default:
		rc = wazero.NewRuntimeConfigCompiler()
	}

	if e.config.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(e.config.MemoryLimitPages)
	}
	if e.config.CallTimeout > 0 {
		// Lets a deadline interrupt a running guest. The interrupted
		// module is closed and its instance must be replaced.
		rc = rc.WithCloseOnContextDone(true)
	}
	return rc
}
