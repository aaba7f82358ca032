package demopy

import (
	"math"
	"unicode/utf8"
)

const (
	// ModuleName identifies the module in greetings and manifests.
	ModuleName = "demopy_gb_jj"

	// Edition marks which implementation answered.
	Edition = "Go edition"

	// Version is the module version.
	Version = "0.4.0"
)

// greeting is computed once; Hello must not allocate per call.
var greeting = "Hello from " + ModuleName + " (" + Edition + ")!"

// Hello returns the fixed greeting.
func Hello() string {
	return greeting
}

// Add returns a + b, wrapping on overflow.
func Add(a, b int64) int64 {
	return a + b
}

// Multiply returns a * b. NaN and infinities propagate per IEEE-754.
func Multiply(a, b float64) float64 {
	return a * b
}

// SumList returns the left-to-right sum of numbers, wrapping on overflow.
// The sum of an empty or nil slice is zero.
func SumList(numbers []int64) int64 {
	var sum int64
	for _, n := range numbers {
		sum += n
	}
	return sum
}

// ReverseString reverses s by code point, so multi-byte characters stay
// intact. Bytes that are not part of valid UTF-8 are moved as single units
// rather than replaced with U+FFFD.
func ReverseString(s string) string {
	if len(s) < 2 {
		return s
	}

	out := make([]byte, len(s))
	end := len(out)
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		end -= size
		copy(out[end:], s[i:i+size])
		i += size
	}
	return string(out)
}

// Power returns base raised to exponent.
func Power(base, exponent float64) float64 {
	return math.Pow(base, exponent)
}
