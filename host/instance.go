package host

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/demopy-gb-jj/demopy"
	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/domain/ports"
	"github.com/demopy-gb-jj/demopy/internal/abi"
	"github.com/demopy-gb-jj/demopy/internal/wasmcontext"
)

// Envelope exports of a binding guest.
const (
	manifestExport = "_manifest"
	invokeExport   = "_invoke"
)

// Instance is an instantiated guest module. Calls on one instance are
// serialized; use a Pool for concurrent callers.
type Instance struct {
	mu          sync.Mutex
	module      api.Module
	compiled    wazero.CompiledModule
	name        string
	logger      *zap.Logger
	validator   ports.ArgsValidator
	manifest    *entities.Manifest
	timeout     time.Duration
	closeOnDone bool
	closed      bool
}

// Name returns the module instance name.
func (i *Instance) Name() string {
	return i.name
}

// Closed reports whether the instance can no longer be called, either
// because Close was called or because a timed out call interrupted it.
func (i *Instance) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Close releases the module instance and, when owned, its compiled module.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	// A module interrupted by a deadline is already closed by wazero;
	// closing it again is a no-op.
	i.closed = true
	err := i.module.Close(ctx)
	if i.compiled != nil {
		if cerr := i.compiled.Close(ctx); err == nil {
			err = cerr
		}
		i.compiled = nil
	}
	return err
}

// Hello calls the hello export.
func (i *Instance) Hello(ctx context.Context) (string, error) {
	var out string
	err := i.do(ctx, demopy.ExportHello, func(ctx context.Context, mod api.Module) error {
		packed, err := callSingle(ctx, mod, demopy.ExportHello)
		if err != nil {
			return err
		}
		data, err := readPacked(ctx, mod, demopy.ExportHello, packed)
		if err != nil {
			return err
		}
		out = string(data)
		return nil
	})
	return out, err
}

// Add calls the add export. Overflow wraps.
func (i *Instance) Add(ctx context.Context, a, b int64) (int64, error) {
	var out int64
	err := i.do(ctx, demopy.ExportAdd, func(ctx context.Context, mod api.Module) error {
		r, err := callSingle(ctx, mod, demopy.ExportAdd, api.EncodeI64(a), api.EncodeI64(b))
		out = int64(r) //nolint:gosec // G115: i64 result reinterpreted as signed
		return err
	})
	return out, err
}

// Multiply calls the multiply export.
func (i *Instance) Multiply(ctx context.Context, a, b float64) (float64, error) {
	return i.callF64Pair(ctx, demopy.ExportMultiply, a, b)
}

// Power calls the power export.
func (i *Instance) Power(ctx context.Context, base, exponent float64) (float64, error) {
	return i.callF64Pair(ctx, demopy.ExportPower, base, exponent)
}

func (i *Instance) callF64Pair(ctx context.Context, export string, a, b float64) (float64, error) {
	var out float64
	err := i.do(ctx, export, func(ctx context.Context, mod api.Module) error {
		r, err := callSingle(ctx, mod, export, api.EncodeF64(a), api.EncodeF64(b))
		out = api.DecodeF64(r)
		return err
	})
	return out, err
}

// SumList calls the sum_list export with numbers encoded as little-endian
// int64 values in guest memory.
func (i *Instance) SumList(ctx context.Context, numbers []int64) (int64, error) {
	if len(numbers) > abi.MaxInt64Count {
		return 0, &errors.ArgumentError{Export: demopy.ExportSumList, Field: "numbers", Err: fmt.Errorf("%d numbers do not fit in guest memory", len(numbers))}
	}

	var out int64
	err := i.do(ctx, demopy.ExportSumList, func(ctx context.Context, mod api.Module) error {
		count := uint32(len(numbers)) //nolint:gosec // G115: bounded above
		r, err := callWithBuffer(ctx, mod, demopy.ExportSumList, abi.EncodeInt64s(numbers), count)
		out = int64(r) //nolint:gosec // G115: i64 result reinterpreted as signed
		return err
	})
	return out, err
}

// ReverseString calls the reverse_string export. The bytes of s are passed
// as-is, so invalid UTF-8 survives the call.
func (i *Instance) ReverseString(ctx context.Context, s string) (string, error) {
	if uint64(len(s)) > math.MaxUint32 {
		return "", &errors.ArgumentError{Export: demopy.ExportReverseString, Field: "s", Err: fmt.Errorf("%d bytes do not fit in guest memory", len(s))}
	}

	var out string
	err := i.do(ctx, demopy.ExportReverseString, func(ctx context.Context, mod api.Module) error {
		length := uint32(len(s)) //nolint:gosec // G115: bounded above
		packed, err := callWithBuffer(ctx, mod, demopy.ExportReverseString, []byte(s), length)
		if err != nil {
			return err
		}
		data, err := readPacked(ctx, mod, demopy.ExportReverseString, packed)
		if err != nil {
			return err
		}
		out = string(data)
		return nil
	})
	return out, err
}

// manifestEnvelope decodes either a Manifest or the error response a
// guest returns when it cannot build one.
type manifestEnvelope struct {
	entities.Manifest
	Error *entities.ErrorDetail `json:"error,omitempty"`
}

// Manifest returns the guest's export table. The first successful result
// is cached for the life of the instance.
func (i *Instance) Manifest(ctx context.Context) (entities.Manifest, error) {
	i.mu.Lock()
	cached := i.manifest
	i.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	var env manifestEnvelope
	err := i.do(ctx, manifestExport, func(ctx context.Context, mod api.Module) error {
		packed, err := callSingle(ctx, mod, manifestExport)
		if err != nil {
			return err
		}
		data, err := readPacked(ctx, mod, manifestExport, packed)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return &errors.WireFormatError{Operation: "decode", Type: "manifest", Err: err}
		}
		return nil
	})
	if err != nil {
		return entities.Manifest{}, err
	}
	if env.Error != nil {
		return entities.Manifest{}, env.Error
	}

	i.mu.Lock()
	i.manifest = &env.Manifest
	i.mu.Unlock()
	return env.Manifest, nil
}

// Invoke calls export through the JSON call envelope. Arguments are
// validated against the export's schema before the guest is entered.
// An error reported by the guest is returned as *entities.ErrorDetail.
//
// The request id is taken from ctx (see wasmcontext.WithRequestID) or
// generated.
func (i *Instance) Invoke(ctx context.Context, export string, args json.RawMessage) (json.RawMessage, error) {
	resp, err := i.Call(ctx, export, args)
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		return nil, resp.Error
	}
	return resp.Value, nil
}

// Call is Invoke returning the whole CallResponse.
func (i *Instance) Call(ctx context.Context, export string, args json.RawMessage) (entities.CallResponse, error) {
	manifest, err := i.Manifest(ctx)
	if err != nil {
		return entities.CallResponse{}, err
	}

	desc, ok := manifest.Export(export)
	if !ok {
		return entities.CallResponse{}, &errors.ExportNotFoundError{Name: export}
	}

	if err := i.validator.Validate(desc, args); err != nil {
		return entities.CallResponse{}, err
	}

	requestID, ok := wasmcontext.RequestIDFrom(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = wasmcontext.WithRequestID(ctx, requestID)
	}

	var resp entities.CallResponse
	err = i.do(ctx, export, func(ctx context.Context, mod api.Module) error {
		req, err := json.Marshal(entities.CallRequest{
			Export:  export,
			Args:    args,
			Context: wasmcontext.ContextToWire(ctx),
		})
		if err != nil {
			return &errors.WireFormatError{Operation: "encode", Type: "call request", Err: err}
		}

		packed, err := callWithBuffer(ctx, mod, invokeExport, req, uint32(len(req))) //nolint:gosec // G115: request size is bounded by guest allocation
		if err != nil {
			return err
		}
		data, err := readPacked(ctx, mod, invokeExport, packed)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return &errors.WireFormatError{Operation: "decode", Type: "call response", Err: err}
		}
		return nil
	})
	if err != nil {
		return entities.CallResponse{}, err
	}

	if resp.RequestID == "" {
		resp.RequestID = requestID
	}
	i.logger.Debug("invoke completed",
		zap.String("export", export),
		zap.String("request_id", resp.RequestID),
		zap.Bool("failed", resp.Failed()),
	)
	return resp, nil
}
