package entities

import "encoding/json"

// ValueKind names the primitive domain of a parameter or return value as
// seen by a host caller.
type ValueKind string

const (
	// KindText is a UTF-8 string.
	KindText ValueKind = "text"
	// KindInteger is a signed 64-bit integer.
	KindInteger ValueKind = "integer"
	// KindFloat is an IEEE-754 double.
	KindFloat ValueKind = "float"
	// KindIntegerList is a sequence of signed 64-bit integers.
	KindIntegerList ValueKind = "integer_list"
)

// Param describes one named argument of an export.
type Param struct {
	Name        string    `json:"name"`
	Kind        ValueKind `json:"kind"`
	Description string    `json:"description,omitempty"`
}

// Signature is the core wasm signature of a direct export, written as wasm
// value type names ("i32", "i64", "f64").
type Signature struct {
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// ExportDescriptor describes a single entry of the export table.
type ExportDescriptor struct {
	// ArgsSchema is the JSON schema of the argument object accepted by the
	// JSON call envelope.
	ArgsSchema json.RawMessage `json:"args_schema,omitempty"`

	// Signature is the direct wasm export signature, if the guest exposes one.
	Signature *Signature `json:"signature,omitempty"`

	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Params      []Param   `json:"params"`
	Returns     ValueKind `json:"returns"`
}

// ParamNames returns the parameter names in declaration order.
func (d ExportDescriptor) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}
