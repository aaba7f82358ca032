//go:build wasip1

package binding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug" // For stack traces in panic recovery

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/internal/abi"
	_ "github.com/demopy-gb-jj/demopy/log" // Initialize WASM logging handler
)

// Define the functions that will be exported to the WASM host.
// These functions perform panic recovery and ABI translation.

//go:wasmexport _manifest
func _manifest() uint64 {
	return handleExportedCall(func() ([]byte, error) {
		if registered == nil {
			return nil, fmt.Errorf("no registry registered")
		}
		return json.Marshal(registered.Manifest())
	})
}

//go:wasmexport _invoke
func _invoke(reqPtr uint32, reqLen uint32) uint64 {
	return handleExportedCall(func() ([]byte, error) {
		if registered == nil {
			return nil, fmt.Errorf("no registry registered")
		}

		// Read the call envelope from WASM memory
		payload := abi.BytesFromPtr(abi.PackPtrLen(reqPtr, reqLen))
		return registered.DispatchBytes(context.Background(), payload), nil
	})
}

// handleExportedCall is a wrapper for WASM exported functions.
// It provides panic recovery and packs the result into guest memory.
// On any error or panic a CallResponse carrying an ErrorDetail is returned.
func handleExportedCall(f func() ([]byte, error)) (packedResult uint64) {
	// Use a named return parameter to ensure it's set before `panic` is propagated.
	defer func() {
		if r := recover(); r != nil {
			// Free all tracked allocations on panic to prevent leaks.
			abi.FreeAllTracked()

			panicErr := &errors.PanicError{Value: r, Stack: debug.Stack()}
			slog.Error("binding: panic recovered", "error", panicErr.Error())
			packedResult = packErrorResponse(panicErr.ToErrorDetail())
		}
	}()

	data, err := f()
	if err != nil {
		slog.Error("binding: exported call failed", "error", err.Error())
		return packErrorResponse(errors.ToErrorDetail(err))
	}

	return abi.PtrFromBytes(data)
}

// packErrorResponse writes a CallResponse carrying detail into guest memory.
func packErrorResponse(detail *entities.ErrorDetail) uint64 {
	return abi.PtrFromBytes(encodeResponse(entities.CallResponse{Error: detail}))
}
