package host

import (
	"go.uber.org/zap"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/ports"
	hostwazero "github.com/demopy-gb-jj/demopy/infrastructure/wazero"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger sets the logger for host events and forwarded guest records.
// A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig replaces the executor configuration. Options applied after it
// override individual fields.
func WithConfig(cfg entities.HostConfig) Option {
	return func(e *Executor) {
		e.config = cfg
	}
}

// WithMemoryLimitPages caps guest linear memory at pages 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) {
		e.config.MemoryLimitPages = pages
	}
}

// WithEngine selects the wazero engine: entities.EngineCompiler or
// entities.EngineInterpreter.
func WithEngine(engine string) Option {
	return func(e *Executor) {
		e.config.Engine = engine
	}
}

// WithArgsValidator replaces the validator Invoke checks arguments with.
func WithArgsValidator(v ports.ArgsValidator) Option {
	return func(e *Executor) {
		e.validator = v
	}
}

// WithHostFunction exports an extra function from the demopy_host module.
func WithHostFunction(h hostwazero.CustomHandler) Option {
	return func(e *Executor) {
		e.hostFuncs = append(e.hostFuncs, h)
	}
}

// WithMaxLogMessageSize bounds a single guest log record. Larger records
// are dropped with a warning.
func WithMaxLogMessageSize(size uint32) Option {
	return func(e *Executor) {
		e.maxLogMessage = size
	}
}
