package entities

import "time"

// Engine names accepted by HostConfig.Engine.
const (
	EngineCompiler    = "compiler"
	EngineInterpreter = "interpreter"
)

// HostConfig configures a host runtime that loads a binding module.
type HostConfig struct {
	// Module is the path of the guest .wasm file.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`

	// Engine selects the wazero engine: "compiler" or "interpreter".
	Engine string `json:"engine" yaml:"engine" validate:"oneof=compiler interpreter"`

	// LogLevel is the minimum level of guest log messages forwarded to the host logger.
	LogLevel string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`

	// CallTimeout bounds a single export call. Zero disables the bound.
	CallTimeout time.Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty" validate:"gte=0"`

	// MemoryLimitPages caps guest linear memory in 64KiB pages. Zero keeps the wazero default.
	MemoryLimitPages uint32 `json:"memory_limit_pages,omitempty" yaml:"memory_limit_pages,omitempty" validate:"lte=65536"`

	// PoolSize is the number of instances a Pool keeps.
	PoolSize int `json:"pool_size" yaml:"pool_size" validate:"min=1,max=64"`
}

// DefaultHostConfig returns the configuration used when none is supplied.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Engine:   EngineCompiler,
		LogLevel: "info",
		PoolSize: 1,
	}
}
