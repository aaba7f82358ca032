package binding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/internal/wasmcontext"
)

// Dispatch serves one call envelope. The context carried by req is layered
// on top of ctx. Errors never escape: they are reported in the response.
func (r *Registry) Dispatch(ctx context.Context, req entities.CallRequest) entities.CallResponse {
	start := time.Now()

	callCtx, cancel := wasmcontext.WireToContext(ctx, req.Context)
	defer cancel()

	resp := entities.CallResponse{RequestID: req.Context.RequestID}

	if err := callCtx.Err(); err != nil {
		resp.Error = errors.ToErrorDetail(&errors.CallError{Export: req.Export, Err: err})
		resp.Error.Type = "canceled"
		return resp
	}

	value, err := r.Invoke(callCtx, req.Export, req.Args)
	resp.DurationNs = time.Since(start).Nanoseconds()
	if err != nil {
		resp.Error = errors.ToErrorDetail(err)
		return resp
	}

	resp.Value = value
	return resp
}

// DispatchBytes decodes a JSON CallRequest, dispatches it and returns the
// JSON CallResponse.
func (r *Registry) DispatchBytes(ctx context.Context, payload []byte) []byte {
	var req entities.CallRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return encodeResponse(entities.CallResponse{
			Error: errors.ToErrorDetail(&errors.WireFormatError{Operation: "decode", Type: "call request", Err: err}),
		})
	}

	return encodeResponse(r.Dispatch(ctx, req))
}

// encodeResponse marshals resp, falling back to a bare internal error.
func encodeResponse(resp entities.CallResponse) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		fallback := entities.CallResponse{
			RequestID: resp.RequestID,
			Error: &entities.ErrorDetail{
				Message: fmt.Sprintf("failed to encode response: %v", err),
				Type:    "internal",
			},
		}
		data, _ = json.Marshal(fallback)
	}
	return data
}
