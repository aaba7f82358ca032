package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Guest exports used for buffer exchange.
const (
	AllocateExport   = "allocate"
	DeallocateExport = "deallocate"
)

// WriteToGuest allocates len(data) bytes in the guest and copies data there.
// Returns the packed ptr+len, or 0 for empty data. The guest owns nothing
// until the packed value is passed to one of its exports; callers free it
// with Free when the call is over.
func WriteToGuest(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}

	// Call the guest's allocate function
	allocateFn := mod.ExportedFunction(AllocateExport)
	if allocateFn == nil {
		return 0, fmt.Errorf("guest module missing %q export", AllocateExport)
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to call guest allocate: %w", err)
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 {
		return 0, fmt.Errorf("guest allocate returned null for %d bytes", len(data))
	}

	// Write data to guest memory
	if !mod.Memory().Write(ptr, data) {
		Free(ctx, mod, ptr, uint32(len(data))) //nolint:gosec // G115: bounded by guest allocation
		return 0, fmt.Errorf("failed to write %d bytes to guest memory at %#x", len(data), ptr)
	}

	return packPtrLen(ptr, uint32(len(data))), nil //nolint:gosec // G115: bounded by guest allocation
}

// ReadAndFree copies the buffer described by packed out of guest memory and
// releases it with the guest's deallocate export.
func ReadAndFree(ctx context.Context, mod api.Module, packed uint64) ([]byte, error) {
	ptr, length := unpackPtrLen(packed)
	if length == 0 {
		// Empty results may still carry an allocation.
		Free(ctx, mod, ptr, 0)
		return nil, nil
	}
	if ptr == 0 {
		return nil, fmt.Errorf("null pointer with length %d", length)
	}

	view, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("range %#x+%d is outside guest memory", ptr, length)
	}

	// The view aliases guest memory; copy before the buffer is released.
	data := make([]byte, len(view))
	copy(data, view)

	Free(ctx, mod, ptr, length)
	return data, nil
}

// Free releases a guest buffer. Guests without a deallocate export are
// left alone, as are null pointers.
func Free(ctx context.Context, mod api.Module, ptr, length uint32) {
	if ptr == 0 {
		return
	}
	deallocateFn := mod.ExportedFunction(DeallocateExport)
	if deallocateFn == nil {
		return
	}
	// Best effort: a failing deallocate only leaks guest memory.
	_, _ = deallocateFn.Call(ctx, uint64(ptr), uint64(length))
}
