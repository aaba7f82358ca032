package host

import (
	stdErrors "errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/infrastructure/parser"
)

// LoadConfig reads a YAML host configuration from path on top of
// entities.DefaultHostConfig and validates the result.
func LoadConfig(path string) (entities.HostConfig, error) {
	cfg := entities.DefaultHostConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &errors.ConfigError{Err: err}
	}

	if err := ParseConfig(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML data over cfg and validates the result.
func ParseConfig(data []byte, cfg *entities.HostConfig) error {
	if err := parser.NewYamlConfigParser().Parse(data, cfg); err != nil {
		return &errors.ConfigError{Err: fmt.Errorf("parse: %w", err)}
	}
	return ValidateConfig(*cfg)
}

// ValidateConfig checks cfg against its validate tags. The first failing
// field is reported by its YAML name.
func ValidateConfig(cfg entities.HostConfig) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("value %v failed %q constraint", fe.Value(), fe.ActualTag()),
		}
	}
	return &errors.ConfigError{Err: err}
}
