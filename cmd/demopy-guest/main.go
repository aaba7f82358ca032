//go:build wasip1

// Command demopy-guest is the demopy binding module compiled to
// WebAssembly. It exports the direct typed functions and, through the
// binding package, the _manifest and _invoke call envelope.
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o demopy.wasm ./cmd/demopy-guest
//
// Run with the host CLI:
//
//	demopy call add '{"a":2,"b":3}' --module demopy.wasm
package main

import (
	"log/slog"

	"github.com/demopy-gb-jj/demopy"
	"github.com/demopy-gb-jj/demopy/application/binding"
	"github.com/demopy-gb-jj/demopy/internal/abi"
	_ "github.com/demopy-gb-jj/demopy/log" // Initialize WASM logging
)

// A reactor module runs package initializers from _initialize but never
// main, so the export table is installed here.
func init() {
	reg, err := demopy.NewRegistry(
		binding.WithMiddleware(binding.LoggingMiddleware(slog.Default())),
	)
	if err != nil {
		slog.Error("demopy-guest: failed to build export table", "error", err)
		return
	}
	binding.Register(reg)
}

func main() {}

//go:wasmexport hello
func hello() uint64 {
	slog.Debug("hello called", "export", demopy.ExportHello)
	return abi.PtrFromString(demopy.Hello())
}

//go:wasmexport add
func add(a, b int64) int64 {
	return demopy.Add(a, b)
}

//go:wasmexport multiply
func multiply(a, b float64) float64 {
	return demopy.Multiply(a, b)
}

//go:wasmexport sum_list
func sumList(ptr, count uint32) int64 {
	numbers, err := abi.Int64sFromPtr(ptr, count)
	if err != nil {
		slog.Error("sum_list: bad input buffer", "error", err, "count", count)
		panic(err)
	}
	return demopy.SumList(numbers)
}

//go:wasmexport reverse_string
func reverseString(ptr, length uint32) uint64 {
	return abi.PtrFromString(demopy.ReverseString(abi.StringFromPtr(ptr, length)))
}

//go:wasmexport power
func power(base, exponent float64) float64 {
	return demopy.Power(base, exponent)
}
