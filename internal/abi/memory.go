//go:build wasip1

package abi

import (
	"sync"
	"unsafe"

	"github.com/demopy-gb-jj/demopy/domain/errors"
)

// MaxTotalAllocations is the maximum total memory that can be allocated by the guest.
// This prevents unbounded memory growth in WASM linear memory.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// memoryManager keeps a reference to every buffer handed to the host so the
// Go GC cannot collect it until the host calls deallocate.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uint32][]byte // ptr -> slice reference
	totalAllocated int
}{
	ptrs: make(map[uint32][]byte),
}

// allocate reserves memory in the WASM linear memory and returns a pointer.
// Panics with *errors.MemoryError if the allocation would exceed MaxTotalAllocations.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+int(size) > MaxTotalAllocations {
		panic(&errors.MemoryError{
			Requested: int(size),
			Current:   memoryManager.totalAllocated,
			Limit:     MaxTotalAllocations,
		})
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))

	memoryManager.ptrs[ptr] = buf
	memoryManager.totalAllocated += int(size)

	return ptr
}

// deallocate releases a tracked buffer. Accounting uses the stored slice
// length, not size, so mismatched sizes cannot corrupt the counter.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	stored, exists := memoryManager.ptrs[ptr]
	if !exists {
		return
	}

	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(stored)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// FreeAllTracked drops every tracked buffer. Called during panic recovery.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	for ptr := range memoryManager.ptrs {
		delete(memoryManager.ptrs, ptr)
	}
	memoryManager.totalAllocated = 0
}

// TotalAllocated reports the bytes currently pinned for the host.
func TotalAllocated() int {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return memoryManager.totalAllocated
}

// PtrFromBytes copies data into tracked guest memory and returns the packed
// pointer and length. The host owns the buffer and frees it with deallocate.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data)) //nolint:gosec // G115: bounded by MaxTotalAllocations
	ptr := allocate(size)
	copyToMemory(ptr, data)
	return PackPtrLen(ptr, size)
}

// PtrFromString is PtrFromBytes for strings.
func PtrFromString(s string) uint64 {
	return PtrFromBytes([]byte(s))
}

// BytesFromPtr returns a copy of the guest memory range described by packed.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	return readFromMemory(ptr, length)
}

// StringFromPtr reads ptr/len as a string.
func StringFromPtr(ptr, length uint32) string {
	return string(BytesFromPtr(PackPtrLen(ptr, length)))
}

// Int64sFromPtr reads count little-endian int64 values starting at ptr.
func Int64sFromPtr(ptr, count uint32) ([]int64, error) {
	if count == 0 {
		return nil, nil
	}
	size, err := Int64sLen(count)
	if err != nil {
		return nil, err
	}
	return DecodeInt64s(readFromMemory(ptr, size))
}

// DeallocatePacked frees a packed buffer previously returned by allocate.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}

// copyToMemory copies data to WASM linear memory at the given pointer.
func copyToMemory(ptr uint32, data []byte) {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	dest := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), len(data))
	copy(dest, data)
}

// readFromMemory returns a copy of length bytes at ptr.
func readFromMemory(ptr uint32, length uint32) []byte {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	data := make([]byte, length)
	copy(data, src)
	return data
}
