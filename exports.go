package demopy

import (
	"context"

	"github.com/demopy-gb-jj/demopy/application/binding"
	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// Export names. These are part of the public contract and never change.
const (
	ExportHello         = "hello"
	ExportAdd           = "add"
	ExportMultiply      = "multiply"
	ExportSumList       = "sum_list"
	ExportReverseString = "reverse_string"
	ExportPower         = "power"
)

// Wasm value types used in direct export signatures.
const (
	wasmI32 = "i32"
	wasmI64 = "i64"
	wasmF64 = "f64"
)

// HelloArgs is the empty argument object of hello.
type HelloArgs struct{}

// AddArgs are the arguments of add.
type AddArgs struct {
	A *int64 `json:"a" validate:"required" desc:"First addend"`
	B *int64 `json:"b" validate:"required" desc:"Second addend"`
}

// MultiplyArgs are the arguments of multiply.
type MultiplyArgs struct {
	A *entities.Float64 `json:"a" validate:"required" desc:"First factor"`
	B *entities.Float64 `json:"b" validate:"required" desc:"Second factor"`
}

// SumListArgs are the arguments of sum_list. An empty list is valid; a
// missing or null list is not.
type SumListArgs struct {
	Numbers []int64 `json:"numbers" validate:"required" desc:"Integers to sum"`
}

// ReverseStringArgs are the arguments of reverse_string.
type ReverseStringArgs struct {
	S *string `json:"s" validate:"required" desc:"Text to reverse"`
}

// PowerArgs are the arguments of power.
type PowerArgs struct {
	Base     *entities.Float64 `json:"base" validate:"required" desc:"Base"`
	Exponent *entities.Float64 `json:"exponent" validate:"required" desc:"Exponent"`
}

// NewRegistry returns the export table of the module. Extra options, such
// as logging middleware, are applied after the built-in ones.
func NewRegistry(opts ...binding.RegistryOption) (*binding.Registry, error) {
	base := []binding.RegistryOption{
		binding.WithModuleInfo(ModuleName, Version, Edition),
		binding.WithMiddleware(binding.PanicRecoveryMiddleware()),
		binding.WithFunc(ExportHello, "Return the module greeting", helloExport,
			binding.WithSignature(nil, []string{wasmI64})),
		binding.WithFunc(ExportAdd, "Add two integers", addExport,
			binding.WithSignature([]string{wasmI64, wasmI64}, []string{wasmI64})),
		binding.WithFunc(ExportMultiply, "Multiply two floats", multiplyExport,
			binding.WithSignature([]string{wasmF64, wasmF64}, []string{wasmF64})),
		binding.WithFunc(ExportSumList, "Sum a list of integers", sumListExport,
			binding.WithSignature([]string{wasmI32, wasmI32}, []string{wasmI64})),
		binding.WithFunc(ExportReverseString, "Reverse text by character", reverseStringExport,
			binding.WithSignature([]string{wasmI32, wasmI32}, []string{wasmI64})),
		binding.WithFunc(ExportPower, "Raise a float to a power", powerExport,
			binding.WithSignature([]string{wasmF64, wasmF64}, []string{wasmF64})),
	}

	return binding.NewRegistry(append(base, opts...)...)
}

func helloExport(_ context.Context, _ HelloArgs) (string, error) {
	return Hello(), nil
}

func addExport(_ context.Context, args AddArgs) (int64, error) {
	return Add(*args.A, *args.B), nil
}

func multiplyExport(_ context.Context, args MultiplyArgs) (entities.Float64, error) {
	return entities.Float64(Multiply(float64(*args.A), float64(*args.B))), nil
}

func sumListExport(_ context.Context, args SumListArgs) (int64, error) {
	return SumList(args.Numbers), nil
}

func reverseStringExport(_ context.Context, args ReverseStringArgs) (string, error) {
	return ReverseString(*args.S), nil
}

func powerExport(_ context.Context, args PowerArgs) (entities.Float64, error) {
	return entities.Float64(Power(float64(*args.Base), float64(*args.Exponent))), nil
}
