package wasmtest

// Asm accumulates the instructions of a function body. The final end
// opcode is added by the module builder.
type Asm struct {
	code []byte
}

// Instruction opcodes used by the synthetic guests.
const (
	opUnreachable  = 0x00
	opBlock        = 0x02
	opLoop         = 0x03
	opIf           = 0x04
	opEnd          = 0x0b
	opBr           = 0x0c
	opBrIf         = 0x0d
	opCall         = 0x10
	opDrop         = 0x1a
	opLocalGet     = 0x20
	opLocalSet     = 0x21
	opLocalTee     = 0x22
	opGlobalGet    = 0x23
	opGlobalSet    = 0x24
	opI64Load      = 0x29
	opI32Load8U    = 0x2d
	opI32Store8    = 0x3a
	opI32Const     = 0x41
	opI64Const     = 0x42
	opF64Const     = 0x44
	opI32Eqz       = 0x45
	opI32GeU       = 0x4f
	opI64Eqz       = 0x50
	opI32Add       = 0x6a
	opI32Sub       = 0x6b
	opI32And       = 0x71
	opI64Add       = 0x7c
	opI64Sub       = 0x7d
	opI64Or        = 0x84
	opI64Shl       = 0x86
	opF64Mul       = 0xa2
	opI64ExtendU32 = 0xad
	opI64TruncF64S = 0xb0
	blockTypeEmpty = 0x40
)

// Bytes returns the encoded instructions.
func (a *Asm) Bytes() []byte {
	return a.code
}

func (a *Asm) op(b ...byte) *Asm {
	a.code = append(a.code, b...)
	return a
}

func (a *Asm) Unreachable() *Asm { return a.op(opUnreachable) }
func (a *Asm) Drop() *Asm        { return a.op(opDrop) }
func (a *Asm) End() *Asm         { return a.op(opEnd) }

// Block, Loop and If open a structured block with no result.
func (a *Asm) Block() *Asm { return a.op(opBlock, blockTypeEmpty) }
func (a *Asm) Loop() *Asm  { return a.op(opLoop, blockTypeEmpty) }
func (a *Asm) If() *Asm    { return a.op(opIf, blockTypeEmpty) }

func (a *Asm) Br(depth uint32) *Asm   { return a.op(opBr).op(EncodeULEB128(depth)...) }
func (a *Asm) BrIf(depth uint32) *Asm { return a.op(opBrIf).op(EncodeULEB128(depth)...) }
func (a *Asm) Call(fn uint32) *Asm    { return a.op(opCall).op(EncodeULEB128(fn)...) }

func (a *Asm) LocalGet(i uint32) *Asm  { return a.op(opLocalGet).op(EncodeULEB128(i)...) }
func (a *Asm) LocalSet(i uint32) *Asm  { return a.op(opLocalSet).op(EncodeULEB128(i)...) }
func (a *Asm) LocalTee(i uint32) *Asm  { return a.op(opLocalTee).op(EncodeULEB128(i)...) }
func (a *Asm) GlobalGet(i uint32) *Asm { return a.op(opGlobalGet).op(EncodeULEB128(i)...) }
func (a *Asm) GlobalSet(i uint32) *Asm { return a.op(opGlobalSet).op(EncodeULEB128(i)...) }

func (a *Asm) I32Const(v int32) *Asm   { return a.op(opI32Const).op(EncodeSLEB128(v)...) }
func (a *Asm) I64Const(v int64) *Asm   { return a.op(opI64Const).op(EncodeSLEB128(v)...) }
func (a *Asm) F64Const(v float64) *Asm { return a.op(opF64Const).op(encodeF64(v)...) }

// Memory access with natural alignment and zero offset.
func (a *Asm) I64Load() *Asm   { return a.op(opI64Load, 3, 0) }
func (a *Asm) I32Load8U() *Asm { return a.op(opI32Load8U, 0, 0) }
func (a *Asm) I32Store8() *Asm { return a.op(opI32Store8, 0, 0) }

func (a *Asm) I32Eqz() *Asm        { return a.op(opI32Eqz) }
func (a *Asm) I32GeU() *Asm        { return a.op(opI32GeU) }
func (a *Asm) I32Add() *Asm        { return a.op(opI32Add) }
func (a *Asm) I32Sub() *Asm        { return a.op(opI32Sub) }
func (a *Asm) I32And() *Asm        { return a.op(opI32And) }
func (a *Asm) I64Eqz() *Asm        { return a.op(opI64Eqz) }
func (a *Asm) I64Add() *Asm        { return a.op(opI64Add) }
func (a *Asm) I64Sub() *Asm        { return a.op(opI64Sub) }
func (a *Asm) I64Or() *Asm         { return a.op(opI64Or) }
func (a *Asm) I64Shl() *Asm        { return a.op(opI64Shl) }
func (a *Asm) F64Mul() *Asm        { return a.op(opF64Mul) }
func (a *Asm) I64ExtendI32U() *Asm { return a.op(opI64ExtendU32) }
func (a *Asm) I64TruncF64S() *Asm  { return a.op(opI64TruncF64S) }
