package ports

import "github.com/demopy-gb-jj/demopy/domain/entities"

// ConfigParser parses raw configuration bytes into a HostConfig.
type ConfigParser interface {
	// Parse unmarshals data over the defaults already present in cfg.
	Parse(data []byte, cfg *entities.HostConfig) error
}

// ArgsValidator checks a JSON argument object against an export's schema
// before it crosses the binding boundary.
type ArgsValidator interface {
	Validate(export entities.ExportDescriptor, args []byte) error
}
