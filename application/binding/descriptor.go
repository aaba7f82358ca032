package binding

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/demopy-gb-jj/demopy/application/schema"
	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
)

// describe reflects the descriptor of an export from its argument and
// result types.
func describe[Args any, Ret any](name, description string) (entities.ExportDescriptor, error) {
	argsType := derefType(reflect.TypeOf((*Args)(nil)).Elem())
	if argsType.Kind() != reflect.Struct {
		return entities.ExportDescriptor{}, fmt.Errorf("export %q: arguments must be a struct, got %s", name, argsType)
	}

	returns, err := kindOf(reflect.TypeOf((*Ret)(nil)).Elem())
	if err != nil {
		return entities.ExportDescriptor{}, fmt.Errorf("export %q result: %w", name, err)
	}

	params := make([]entities.Param, 0, argsType.NumField())
	descriptions := make(map[string]string)
	for i := 0; i < argsType.NumField(); i++ {
		field := argsType.Field(i)
		if !field.IsExported() {
			continue
		}

		paramName, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if paramName == "-" {
			continue
		}
		if paramName == "" {
			paramName = field.Name
		}

		kind, err := kindOf(field.Type)
		if err != nil {
			return entities.ExportDescriptor{}, fmt.Errorf("export %q argument %q: %w", name, paramName, err)
		}

		desc := field.Tag.Get("desc")
		descriptions[paramName] = desc
		params = append(params, entities.Param{Name: paramName, Kind: kind, Description: desc})
	}

	argsSchema, err := schema.GenerateArgsSchema(reflect.New(argsType).Interface(), descriptions)
	if err != nil {
		return entities.ExportDescriptor{}, &errors.SchemaError{Type: argsType.String(), Err: err}
	}

	return entities.ExportDescriptor{
		Name:        name,
		Description: description,
		Params:      params,
		Returns:     returns,
		ArgsSchema:  argsSchema,
	}, nil
}

// kindOf maps a Go type to the value kind a host sees.
func kindOf(t reflect.Type) (entities.ValueKind, error) {
	t = derefType(t)
	switch t.Kind() {
	case reflect.String:
		return entities.KindText, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return entities.KindInteger, nil
	case reflect.Float32, reflect.Float64:
		return entities.KindFloat, nil
	case reflect.Slice:
		if elem, err := kindOf(t.Elem()); err == nil && elem == entities.KindInteger {
			return entities.KindIntegerList, nil
		}
	}
	return "", fmt.Errorf("unsupported type %s", t)
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
