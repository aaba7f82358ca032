// Package demopy is a minimal binding module: five pure functions exposed
// under stable export names to a host runtime.
//
// The functions can be called directly from Go, through the in-process
// export table returned by NewRegistry, or from a host that loads the
// wasip1 guest built from cmd/demopy-guest (see package host).
//
// # Export table
//
//	hello()                      -> text
//	add(a, b integer)            -> integer
//	multiply(a, b float)         -> float
//	sum_list(numbers []integer)  -> integer
//	reverse_string(s text)       -> text
//	power(base, exponent float)  -> float
//
// # Integer overflow
//
// Integers are signed 64-bit. Add and SumList wrap on overflow using two's
// complement arithmetic, the defined behavior of Go's int64; they never
// fail and never saturate.
//
// # Building the guest
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o demopy.wasm ./cmd/demopy-guest
package demopy
