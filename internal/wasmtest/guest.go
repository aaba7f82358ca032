package wasmtest

import (
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/demopy-gb-jj/demopy"
	"github.com/demopy-gb-jj/demopy/domain/entities"
)

const (
	wasmPageSize = 65536
	dataBase     = 1024
	heapSize     = 2 * wasmPageSize
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// GuestOptions adjusts the behavior of DemoGuest.
type GuestOptions struct {
	// InvokeResponse is the CallResponse every _invoke returns.
	// Defaults to {"value":5}.
	InvokeResponse *entities.CallResponse

	// Trap lists exports whose body is replaced with unreachable.
	Trap []string

	// Omit lists exports left out of the module.
	Omit []string
}

// HelloLogMessage is the record DemoGuest's hello sends to log_message.
var HelloLogMessage = entities.LogMessageWire{
	Level:   "INFO",
	Message: "hello called",
	Attrs:   []entities.LogAttrWire{{Key: "export", Type: "string", Value: demopy.ExportHello}},
}

// DemoGuest builds a stand-in for the guest compiled from cmd/demopy-guest.
// It imports demopy_host.log_message and exports memory, allocate,
// deallocate, every direct export and the _manifest/_invoke envelope
// functions with the same signatures as the real guest.
//
// Differences from the real guest:
//   - reverse_string reverses bytes, so only ASCII input round-trips;
//   - power supports non-negative integer exponents only;
//   - _invoke ignores its request and returns opts.InvokeResponse.
//
// allocate is a bump allocator that resets once every live buffer has
// been released, so a host that frees what it receives never runs out.
func DemoGuest(opts GuestOptions) ([]byte, error) {
	reg, err := demopy.NewRegistry()
	if err != nil {
		return nil, err
	}
	manifest, err := json.Marshal(reg.Manifest())
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	invokeResp := opts.InvokeResponse
	if invokeResp == nil {
		invokeResp = &entities.CallResponse{Value: json.RawMessage(`5`)}
	}
	invoke, err := json.Marshal(invokeResp)
	if err != nil {
		return nil, fmt.Errorf("encode invoke response: %w", err)
	}

	logMsg, err := json.Marshal(HelloLogMessage)
	if err != nil {
		return nil, fmt.Errorf("encode log message: %w", err)
	}

	g := &guestBuilder{
		ModuleBuilder: NewModuleBuilder(),
		trap:          toSet(opts.Trap),
		omit:          toSet(opts.Omit),
		next:          dataBase,
	}

	greeting := g.place([]byte(demopy.Hello()))
	logRef := g.place(logMsg)
	manifestRef := g.place(manifest)
	invokeRef := g.place(invoke)

	heapBase := align(g.next, 16)
	pages := (heapBase+heapSize)/wasmPageSize + 1
	g.SetMemory(pages, "memory")

	logMessage := g.ImportFunc("demopy_host", "log_message", []api.ValueType{i64}, nil)

	heap := g.AddGlobal(int32(heapBase)) //nolint:gosec // G115: heap base is below 64KiB pages
	live := g.AddGlobal(0)

	allocate := g.NextFuncIndex()
	g.define("allocate", []api.ValueType{i32}, []api.ValueType{i32}, nil, new(Asm).
		GlobalGet(heap).
		GlobalGet(heap).LocalGet(0).I32Add().
		I32Const(7).I32Add().I32Const(-8).I32And().
		GlobalSet(heap).
		GlobalGet(live).I32Const(1).I32Add().GlobalSet(live))

	g.define("deallocate", []api.ValueType{i32, i32}, nil, nil, new(Asm).
		LocalGet(0).I32Const(int32(heapBase)).I32GeU(). //nolint:gosec // G115: see above
		If().
		GlobalGet(live).I32Const(1).I32Sub().GlobalSet(live).
		GlobalGet(live).I32Eqz().
		If().
		I32Const(int32(heapBase)).GlobalSet(heap). //nolint:gosec // G115: see above
		End().
		End())

	g.define(demopy.ExportHello, nil, []api.ValueType{i64}, nil, new(Asm).
		I64Const(logRef).Call(logMessage).
		I64Const(greeting))

	g.define(demopy.ExportAdd, []api.ValueType{i64, i64}, []api.ValueType{i64}, nil, new(Asm).
		LocalGet(0).LocalGet(1).I64Add())

	g.define(demopy.ExportMultiply, []api.ValueType{f64, f64}, []api.ValueType{f64}, nil, new(Asm).
		LocalGet(0).LocalGet(1).F64Mul())

	// locals: 2 sum
	g.define(demopy.ExportSumList, []api.ValueType{i32, i32}, []api.ValueType{i64}, []api.ValueType{i64}, new(Asm).
		Block().Loop().
		LocalGet(1).I32Eqz().BrIf(1).
		LocalGet(2).LocalGet(0).I64Load().I64Add().LocalSet(2).
		LocalGet(0).I32Const(8).I32Add().LocalSet(0).
		LocalGet(1).I32Const(1).I32Sub().LocalSet(1).
		Br(0).
		End().End().
		LocalGet(2))

	// locals: 2 out, 3 i
	g.define(demopy.ExportReverseString, []api.ValueType{i32, i32}, []api.ValueType{i64}, []api.ValueType{i32, i32}, new(Asm).
		LocalGet(1).Call(allocate).LocalSet(2).
		Block().Loop().
		LocalGet(3).LocalGet(1).I32GeU().BrIf(1).
		LocalGet(2).LocalGet(1).I32Add().I32Const(1).I32Sub().LocalGet(3).I32Sub().
		LocalGet(0).LocalGet(3).I32Add().I32Load8U().
		I32Store8().
		LocalGet(3).I32Const(1).I32Add().LocalSet(3).
		Br(0).
		End().End().
		LocalGet(2).I64ExtendI32U().I64Const(32).I64Shl().
		LocalGet(1).I64ExtendI32U().I64Or())

	// locals: 2 result, 3 remaining
	g.define(demopy.ExportPower, []api.ValueType{f64, f64}, []api.ValueType{f64}, []api.ValueType{f64, i64}, new(Asm).
		F64Const(1).LocalSet(2).
		LocalGet(1).I64TruncF64S().LocalSet(3).
		Block().Loop().
		LocalGet(3).I64Eqz().BrIf(1).
		LocalGet(2).LocalGet(0).F64Mul().LocalSet(2).
		LocalGet(3).I64Const(1).I64Sub().LocalSet(3).
		Br(0).
		End().End().
		LocalGet(2))

	g.define("_manifest", nil, []api.ValueType{i64}, nil, new(Asm).
		I64Const(manifestRef))

	g.define("_invoke", []api.ValueType{i32, i32}, []api.ValueType{i64}, nil, new(Asm).
		I64Const(invokeRef))

	return g.Build(), nil
}

// guestBuilder lays out data segments and applies GuestOptions.
type guestBuilder struct {
	*ModuleBuilder
	trap map[string]bool
	omit map[string]bool
	next uint32
}

// place stores data in a segment and returns its packed ptr/len.
func (g *guestBuilder) place(data []byte) int64 {
	offset := align(g.next, 8)
	g.AddData(offset, data)
	g.next = offset + uint32(len(data)) //nolint:gosec // G115: test data is small
	return int64(uint64(offset)<<32 | uint64(len(data)))
}

// define adds an exported function unless it is omitted; trapped exports
// keep their signature but execute unreachable.
func (g *guestBuilder) define(name string, params, results, locals []api.ValueType, body *Asm) {
	if g.omit[name] {
		return
	}
	if g.trap[name] {
		g.AddFunc(name, params, results, nil, new(Asm).Unreachable().Bytes())
		return
	}
	g.AddFunc(name, params, results, locals, body.Bytes())
}

func align(v, to uint32) uint32 {
	return (v + to - 1) / to * to
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
