// Package wasmtest builds small WebAssembly modules in memory so host code
// can be tested against a guest without compiling one with the Go toolchain.
package wasmtest

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// ModuleBuilder builds a WASM binary from imported functions, defined
// functions, mutable i32 globals, one memory and active data segments.
// All imports must be added before the first defined function so function
// indices stay stable.
type ModuleBuilder struct {
	types        []funcType
	imports      []funcImport
	funcs        []funcDef
	globals      []int32
	data         []dataSegment
	memoryExport string
	memoryPages  uint32
}

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type funcImport struct {
	module  string
	name    string
	typeIdx uint32
}

type funcDef struct {
	exportName string
	typeIdx    uint32
	locals     []api.ValueType
	body       []byte
}

type dataSegment struct {
	offset uint32
	bytes  []byte
}

// NewModuleBuilder creates an empty builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// ImportFunc imports module.name and returns its function index.
func (b *ModuleBuilder) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: imports must precede defined functions")
	}
	b.imports = append(b.imports, funcImport{module: module, name: name, typeIdx: b.typeIndex(params, results)})
	return uint32(len(b.imports) - 1) //nolint:gosec // G115: test modules are small
}

// AddFunc defines a function and returns its index. An empty exportName
// keeps the function internal. body must not include the final end opcode.
func (b *ModuleBuilder) AddFunc(exportName string, params, results, locals []api.ValueType, body []byte) uint32 {
	b.funcs = append(b.funcs, funcDef{
		exportName: exportName,
		typeIdx:    b.typeIndex(params, results),
		locals:     locals,
		body:       body,
	})
	return uint32(len(b.imports) + len(b.funcs) - 1) //nolint:gosec // G115: test modules are small
}

// NextFuncIndex returns the index the next AddFunc call will assign.
func (b *ModuleBuilder) NextFuncIndex() uint32 {
	return uint32(len(b.imports) + len(b.funcs)) //nolint:gosec // G115: test modules are small
}

// AddGlobal defines a mutable i32 global and returns its index.
func (b *ModuleBuilder) AddGlobal(init int32) uint32 {
	b.globals = append(b.globals, init)
	return uint32(len(b.globals) - 1) //nolint:gosec // G115: test modules are small
}

// SetMemory defines the module memory with a fixed minimum size, exported
// under exportName when it is not empty.
func (b *ModuleBuilder) SetMemory(pages uint32, exportName string) {
	b.memoryPages = pages
	b.memoryExport = exportName
}

// AddData places bytes at offset when the module is instantiated.
func (b *ModuleBuilder) AddData(offset uint32, bytes []byte) {
	b.data = append(b.data, dataSegment{offset: offset, bytes: bytes})
}

// Build generates the WASM module bytes.
func (b *ModuleBuilder) Build() []byte {
	// Magic and version
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		wasm = append(wasm, section(0x01, b.buildTypeSection())...)
	}
	if len(b.imports) > 0 {
		wasm = append(wasm, section(0x02, b.buildImportSection())...)
	}
	if len(b.funcs) > 0 {
		wasm = append(wasm, section(0x03, b.buildFuncSection())...)
	}
	if b.memoryPages > 0 {
		memory := append([]byte{0x01, 0x00}, EncodeULEB128(b.memoryPages)...)
		wasm = append(wasm, section(0x05, memory)...)
	}
	if len(b.globals) > 0 {
		wasm = append(wasm, section(0x06, b.buildGlobalSection())...)
	}
	wasm = append(wasm, section(0x07, b.buildExportSection())...)
	if len(b.funcs) > 0 {
		wasm = append(wasm, section(0x0a, b.buildCodeSection())...)
	}
	if len(b.data) > 0 {
		wasm = append(wasm, section(0x0b, b.buildDataSection())...)
	}

	return wasm
}

// typeIndex returns the index of the signature, adding it when new.
func (b *ModuleBuilder) typeIndex(params, results []api.ValueType) uint32 {
	key := signatureKey(params, results)
	for i, t := range b.types {
		if signatureKey(t.params, t.results) == key {
			return uint32(i) //nolint:gosec // G115: test modules are small
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1) //nolint:gosec // G115: test modules are small
}

func signatureKey(params, results []api.ValueType) string {
	var sb strings.Builder
	for _, p := range params {
		sb.WriteString(api.ValueTypeName(p))
	}
	sb.WriteString("->")
	for _, r := range results {
		sb.WriteString(api.ValueTypeName(r))
	}
	return sb.String()
}

func (b *ModuleBuilder) buildTypeSection() []byte {
	out := EncodeULEB128(uint32(len(b.types))) //nolint:gosec // G115: test modules are small
	for _, t := range b.types {
		out = append(out, 0x60)
		out = append(out, encodeValTypes(t.params)...)
		out = append(out, encodeValTypes(t.results)...)
	}
	return out
}

func (b *ModuleBuilder) buildImportSection() []byte {
	out := EncodeULEB128(uint32(len(b.imports))) //nolint:gosec // G115: test modules are small
	for _, imp := range b.imports {
		out = append(out, encodeName(imp.module)...)
		out = append(out, encodeName(imp.name)...)
		out = append(out, 0x00)
		out = append(out, EncodeULEB128(imp.typeIdx)...)
	}
	return out
}

func (b *ModuleBuilder) buildFuncSection() []byte {
	out := EncodeULEB128(uint32(len(b.funcs))) //nolint:gosec // G115: test modules are small
	for _, f := range b.funcs {
		out = append(out, EncodeULEB128(f.typeIdx)...)
	}
	return out
}

func (b *ModuleBuilder) buildGlobalSection() []byte {
	out := EncodeULEB128(uint32(len(b.globals))) //nolint:gosec // G115: test modules are small
	for _, init := range b.globals {
		out = append(out, ValTypeToWasm(api.ValueTypeI32), 0x01, opI32Const)
		out = append(out, EncodeSLEB128(init)...)
		out = append(out, opEnd)
	}
	return out
}

func (b *ModuleBuilder) buildExportSection() []byte {
	var entries []byte
	count := 0

	if b.memoryPages > 0 && b.memoryExport != "" {
		entries = append(entries, encodeName(b.memoryExport)...)
		entries = append(entries, 0x02, 0x00)
		count++
	}

	for i, f := range b.funcs {
		if f.exportName == "" {
			continue
		}
		entries = append(entries, encodeName(f.exportName)...)
		entries = append(entries, 0x00)
		entries = append(entries, EncodeULEB128(uint32(len(b.imports)+i))...) //nolint:gosec // G115: test modules are small
		count++
	}

	return append(EncodeULEB128(uint32(count)), entries...) //nolint:gosec // G115: test modules are small
}

func (b *ModuleBuilder) buildCodeSection() []byte {
	out := EncodeULEB128(uint32(len(b.funcs))) //nolint:gosec // G115: test modules are small
	for _, f := range b.funcs {
		// One local group per declared local keeps the encoding simple.
		body := EncodeULEB128(uint32(len(f.locals))) //nolint:gosec // G115: test modules are small
		for _, l := range f.locals {
			body = append(body, 0x01, ValTypeToWasm(l))
		}
		body = append(body, f.body...)
		body = append(body, opEnd)

		out = append(out, EncodeULEB128(uint32(len(body)))...) //nolint:gosec // G115: test modules are small
		out = append(out, body...)
	}
	return out
}

func (b *ModuleBuilder) buildDataSection() []byte {
	out := EncodeULEB128(uint32(len(b.data))) //nolint:gosec // G115: test modules are small
	for _, seg := range b.data {
		// Active segment for memory 0 with an i32.const offset.
		out = append(out, 0x00, opI32Const)
		out = append(out, EncodeSLEB128(int32(seg.offset))...) //nolint:gosec // G115: offsets fit in memory
		out = append(out, opEnd)
		out = append(out, EncodeULEB128(uint32(len(seg.bytes)))...) //nolint:gosec // G115: test modules are small
		out = append(out, seg.bytes...)
	}
	return out
}

func encodeValTypes(types []api.ValueType) []byte {
	out := EncodeULEB128(uint32(len(types))) //nolint:gosec // G115: signatures are short
	for _, t := range types {
		out = append(out, ValTypeToWasm(t))
	}
	return out
}

// String summarizes the module layout for test failure messages.
func (b *ModuleBuilder) String() string {
	return fmt.Sprintf("module{imports: %d, funcs: %d, globals: %d, data: %d, pages: %d}",
		len(b.imports), len(b.funcs), len(b.globals), len(b.data), b.memoryPages)
}
