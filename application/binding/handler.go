package binding

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/demopy-gb-jj/demopy/domain/errors"
)

// Handler accepts a JSON argument object and returns a JSON value.
// This is the common interface the guest exports and the CLI can use.
type Handler func(ctx context.Context, args []byte) ([]byte, error)

// Func is a typed export. It receives the decoded argument struct and
// returns a value that is JSON encoded for the caller.
type Func[Args any, Ret any] func(ctx context.Context, args Args) (Ret, error)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// argsValidator returns the shared validator. Field errors report the JSON
// name of the argument rather than the Go field name.
func argsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// NewFuncHandler wraps a typed Func into a Handler.
// It strictly decodes the argument object, validates it, calls fn and
// encodes the result. Decoding and validation failures are reported as
// *errors.ArgumentError.
func NewFuncHandler[Args any, Ret any](name string, fn Func[Args, Ret]) Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var args Args
		if err := decodeArgs(payload, &args); err != nil {
			return nil, &errors.ArgumentError{Export: name, Field: fieldOf(err), Err: err}
		}

		if err := validateArgs(&args); err != nil {
			return nil, argumentErrorFromValidation(name, err)
		}

		ret, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(ret)
		if err != nil {
			return nil, &errors.WireFormatError{Operation: "encode", Type: name + " result", Err: err}
		}

		return data, nil
	}
}

// decodeArgs decodes a single JSON object into v, rejecting unknown
// fields and trailing data. An empty or null payload decodes as {}.
func decodeArgs(payload []byte, v any) error {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after argument object")
	}
	return nil
}

// validateArgs runs struct validation when the argument type is a struct.
func validateArgs(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return argsValidator().Struct(rv.Interface())
}

// fieldOf extracts the offending argument name from a decoding error.
func fieldOf(err error) string {
	var typeErr *json.UnmarshalTypeError
	if stdErrors.As(err, &typeErr) {
		return typeErr.Field
	}

	// encoding/json reports unknown fields only in the message.
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		return strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`)
	}
	return ""
}

// argumentErrorFromValidation converts the first validator field error.
func argumentErrorFromValidation(name string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &errors.ArgumentError{Export: name, Err: err}
	}

	fe := fieldErrs[0]
	var reason error
	switch fe.Tag() {
	case "required":
		reason = fmt.Errorf("missing required argument")
	default:
		reason = fmt.Errorf("failed %q constraint", fe.Tag())
	}
	return &errors.ArgumentError{Export: name, Field: fe.Field(), Err: reason}
}
