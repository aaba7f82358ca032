package host

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/demopy-gb-jj/demopy/domain/errors"
	hostwazero "github.com/demopy-gb-jj/demopy/infrastructure/wazero"
)

// ErrInstanceClosed is returned by calls on a closed or interrupted instance.
var ErrInstanceClosed = stdErrors.New("instance is closed")

// do runs fn against the module under the instance lock. The call
// timeout and instance name are applied to ctx. Failures that are not
// already typed are wrapped in *errors.CallError for export.
func (i *Instance) do(ctx context.Context, export string, fn func(ctx context.Context, mod api.Module) error) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return &errors.CallError{Export: export, Err: ErrInstanceClosed}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	ctx = hostwazero.WithInstanceName(ctx, i.name)

	err := fn(ctx, i.module)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if i.closeOnDone {
			// wazero closed the module when ctx ended.
			i.closed = true
		}
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}

	var detailed errors.DetailedError
	if stdErrors.As(err, &detailed) {
		return err
	}

	i.logger.Debug("export call failed", zap.String("export", export), zap.Error(err))
	return &errors.CallError{Export: export, Err: err}
}

// callExport calls a guest export and returns its results.
func callExport(ctx context.Context, mod api.Module, export string, params ...uint64) ([]uint64, error) {
	fn := mod.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("guest does not export %q", export)
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, err
	}
	if want := len(fn.Definition().ResultTypes()); len(results) != want {
		return nil, fmt.Errorf("export %q returned %d results, want %d", export, len(results), want)
	}
	return results, nil
}

// callSingle calls an export with one result.
func callSingle(ctx context.Context, mod api.Module, export string, params ...uint64) (uint64, error) {
	results, err := callExport(ctx, mod, export, params...)
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("export %q has %d results, want 1", export, len(results))
	}
	return results[0], nil
}

// callWithBuffer copies input into the guest, calls export with the
// buffer's pointer and length, frees the buffer and returns the single
// result. Empty input is passed as a null pointer with zero length.
func callWithBuffer(ctx context.Context, mod api.Module, export string, input []byte, length uint32) (uint64, error) {
	packed, err := hostwazero.WriteToGuest(ctx, mod, input)
	if err != nil {
		return 0, err
	}
	ptr := uint32(packed >> 32) //nolint:gosec // G115: packed format stores 32-bit values

	defer hostwazero.Free(ctx, mod, ptr, uint32(len(input))) //nolint:gosec // G115: bounded by guest allocation

	return callSingle(ctx, mod, export, uint64(ptr), uint64(length))
}

// readPacked copies out and frees a packed buffer returned by the guest.
func readPacked(ctx context.Context, mod api.Module, export string, packed uint64) ([]byte, error) {
	data, err := hostwazero.ReadAndFree(ctx, mod, packed)
	if err != nil {
		return nil, &errors.WireFormatError{Operation: "read", Type: export + " result", Err: err}
	}
	return data, nil
}
