//go:build wasip1

package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/demopy-gb-jj/demopy/internal/abi"
)

// Define the host function signature for logging messages.
// The host side is registered by infrastructure/wazero.
//
//go:wasmimport demopy_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// Handle serializes a slog.Record and sends it to the host via a host function.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	requestBytes, err := json.Marshal(h.toWire(ctx, record))
	if err != nil {
		// Fallback to println if marshaling fails.
		fmt.Printf("log: failed to marshal log message for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	// The host reads the buffer during the call and frees it with deallocate.
	host_log_message(abi.PtrFromBytes(requestBytes))
	return nil
}

// init configures the default slog handler to use our WasmLogHandler.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
