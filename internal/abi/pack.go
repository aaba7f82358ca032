// Package abi implements the packed pointer/length convention used across
// the wasm boundary, and, in guest builds, the linear-memory manager behind
// the allocate/deallocate exports.
package abi

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PtrHighBits is the shift of the pointer half of a packed value.
const PtrHighBits = 32

// Int64Size is the encoded width of one sum_list element.
const Int64Size = 8

// MaxInt64Count is the largest integer list whose encoding fits a 32-bit length.
const MaxInt64Count = math.MaxUint32 / Int64Size

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: Packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// EncodeInt64s lays out numbers as consecutive little-endian int64 values,
// the memory format read by the sum_list export.
func EncodeInt64s(numbers []int64) []byte {
	buf := make([]byte, len(numbers)*Int64Size)
	for i, n := range numbers {
		binary.LittleEndian.PutUint64(buf[i*Int64Size:], uint64(n)) //nolint:gosec // G115: two's complement reinterpretation
	}
	return buf
}

// Int64sLen returns the encoded byte length of count integers.
func Int64sLen(count uint32) (uint32, error) {
	if count > MaxInt64Count {
		return 0, fmt.Errorf("abi: integer list of %d elements exceeds %d", count, MaxInt64Count)
	}
	return count * Int64Size, nil
}

// DecodeInt64s is the inverse of EncodeInt64s. Trailing bytes that do not
// form a whole element are an error.
func DecodeInt64s(data []byte) ([]int64, error) {
	if len(data)%Int64Size != 0 {
		return nil, fmt.Errorf("abi: integer list of %d bytes is not a multiple of %d", len(data), Int64Size)
	}
	numbers := make([]int64, len(data)/Int64Size)
	for i := range numbers {
		numbers[i] = int64(binary.LittleEndian.Uint64(data[i*Int64Size:])) //nolint:gosec // G115: two's complement reinterpretation
	}
	return numbers, nil
}
