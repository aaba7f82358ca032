package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Float64 is a double-precision number that survives the JSON call
// envelope. Finite values encode as JSON numbers; NaN and the infinities,
// which JSON cannot represent, encode as the strings "NaN", "+Inf" and "-Inf".
type Float64 float64

// Special value spellings on the wire.
const (
	wireNaN    = "NaN"
	wirePosInf = "+Inf"
	wireNegInf = "-Inf"
)

// MarshalJSON implements json.Marshaler.
func (f Float64) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return json.Marshal(wireNaN)
	case math.IsInf(v, 1):
		return json.Marshal(wirePosInf)
	case math.IsInf(v, -1):
		return json.Marshal(wireNegInf)
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float64) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case wireNaN:
			*f = Float64(math.NaN())
		case wirePosInf, "Inf":
			*f = Float64(math.Inf(1))
		case wireNegInf:
			*f = Float64(math.Inf(-1))
		default:
			return fmt.Errorf("invalid float literal %q", s)
		}
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid float %s: %w", data, err)
	}
	*f = Float64(v)
	return nil
}

// JSONSchema describes the accepted wire forms.
func (Float64) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Enum: []any{wireNaN, wirePosInf, "Inf", wireNegInf}},
		},
	}
}
