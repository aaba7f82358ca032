// Package wazero registers the demopy_host module with a wazero runtime and
// moves byte buffers across the guest's linear memory.
//
// The host module currently exports a single function, log_message, which
// receives a packed pointer/length to a JSON encoded LogMessageWire and
// forwards the record to a zap logger:
//
//	runtime := wazero.NewRuntime(ctx)
//	err := wazero.RegisterHostModule(ctx, runtime,
//	    wazero.WithLogger(logger),
//	    wazero.WithMinLevel(zapcore.InfoLevel),
//	)
//
// Buffers handed over by the guest are owned by the host once read and are
// released through the guest's deallocate export.
//
// # Custom Handlers
//
// Additional functions can be exported from the same module with
// WithCustomHandler:
//
//	wazero.RegisterHostModule(ctx, runtime,
//	    wazero.WithCustomHandler(wazero.CustomHandler{
//	        Name:        "now_unix",
//	        Handler:     nowHandler,
//	        ParamTypes:  []api.ValueType{},
//	        ResultTypes: []api.ValueType{api.ValueTypeI64},
//	    }),
//	)
package wazero
