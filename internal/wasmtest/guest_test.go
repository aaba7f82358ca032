package wasmtest

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	hostwazero "github.com/demopy-gb-jj/demopy/infrastructure/wazero"
	"github.com/demopy-gb-jj/demopy/internal/abi"
)

func instantiate(t *testing.T, opts GuestOptions) api.Module {
	t.Helper()
	ctx := context.Background()

	bin, err := DemoGuest(opts)
	require.NoError(t, err)

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	t.Cleanup(func() { _ = rt.Close(ctx) })

	require.NoError(t, hostwazero.RegisterHostModule(ctx, rt))

	mod, err := rt.Instantiate(ctx, bin)
	require.NoError(t, err)
	return mod
}

func call(t *testing.T, mod api.Module, name string, params ...uint64) []uint64 {
	t.Helper()
	fn := mod.ExportedFunction(name)
	require.NotNil(t, fn, "missing export %s", name)
	results, err := fn.Call(context.Background(), params...)
	require.NoError(t, err)
	return results
}

func TestDemoGuest_Exports(t *testing.T) {
	mod := instantiate(t, GuestOptions{})

	for _, name := range []string{"allocate", "deallocate", "hello", "add", "multiply", "sum_list", "reverse_string", "power", "_manifest", "_invoke"} {
		assert.NotNil(t, mod.ExportedFunction(name), name)
	}
	assert.NotNil(t, mod.ExportedMemory("memory"))

	add := mod.ExportedFunction("add").Definition()
	assert.Equal(t, []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, add.ParamTypes())
	assert.Equal(t, []api.ValueType{api.ValueTypeI64}, add.ResultTypes())
}

func TestDemoGuest_Arithmetic(t *testing.T) {
	mod := instantiate(t, GuestOptions{})

	sum := call(t, mod, "add", api.EncodeI64(2), api.EncodeI64(3))
	assert.Equal(t, int64(5), int64(sum[0]))

	neg := call(t, mod, "add", api.EncodeI64(-1), api.EncodeI64(1))
	assert.Equal(t, int64(0), int64(neg[0]))

	product := call(t, mod, "multiply", api.EncodeF64(2), api.EncodeF64(3))
	assert.Equal(t, 6.0, api.DecodeF64(product[0]))

	nan := call(t, mod, "multiply", api.EncodeF64(math.NaN()), api.EncodeF64(3))
	assert.True(t, math.IsNaN(api.DecodeF64(nan[0])))

	pow := call(t, mod, "power", api.EncodeF64(2), api.EncodeF64(10))
	assert.Equal(t, 1024.0, api.DecodeF64(pow[0]))
}

func TestDemoGuest_Memory(t *testing.T) {
	mod := instantiate(t, GuestOptions{})
	ctx := context.Background()

	data := abi.EncodeInt64s([]int64{1, 2, 3, 4, 5})
	packed, err := hostwazero.WriteToGuest(ctx, mod, data)
	require.NoError(t, err)
	ptr, _ := abi.UnpackPtrLen(packed)

	sum := call(t, mod, "sum_list", uint64(ptr), 5)
	assert.Equal(t, int64(15), int64(sum[0]))
	hostwazero.Free(ctx, mod, ptr, uint32(len(data)))

	in, err := hostwazero.WriteToGuest(ctx, mod, []byte("hello"))
	require.NoError(t, err)
	inPtr, inLen := abi.UnpackPtrLen(in)

	out := call(t, mod, "reverse_string", uint64(inPtr), uint64(inLen))
	reversed, err := hostwazero.ReadAndFree(ctx, mod, out[0])
	require.NoError(t, err)
	assert.Equal(t, "olleh", string(reversed))
	hostwazero.Free(ctx, mod, inPtr, inLen)

	// With every buffer released the allocator starts over.
	again, err := hostwazero.WriteToGuest(ctx, mod, []byte("x"))
	require.NoError(t, err)
	againPtr, _ := abi.UnpackPtrLen(again)
	assert.Equal(t, ptr, againPtr)
}

func TestDemoGuest_HelloAndManifest(t *testing.T) {
	mod := instantiate(t, GuestOptions{})
	ctx := context.Background()

	hello := call(t, mod, "hello")
	greeting, err := hostwazero.ReadAndFree(ctx, mod, hello[0])
	require.NoError(t, err)
	assert.Equal(t, "Hello from demopy_gb_jj (Go edition)!", string(greeting))

	manifest := call(t, mod, "_manifest")
	raw, err := hostwazero.ReadAndFree(ctx, mod, manifest[0])
	require.NoError(t, err)

	var decoded struct {
		Name    string            `json:"name"`
		Exports []json.RawMessage `json:"exports"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "demopy_gb_jj", decoded.Name)
	assert.Len(t, decoded.Exports, 6)
}

func TestDemoGuest_Options(t *testing.T) {
	mod := instantiate(t, GuestOptions{Trap: []string{"add"}, Omit: []string{"power"}})

	_, err := mod.ExportedFunction("add").Call(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Nil(t, mod.ExportedFunction("power"))
}

func TestEncodeLEB128(t *testing.T) {
	assert.Equal(t, []byte{0x00}, EncodeULEB128(0))
	assert.Equal(t, []byte{0xe5, 0x8e, 0x26}, EncodeULEB128(624485))
	assert.Equal(t, []byte{0x7f}, EncodeSLEB128(int32(-1)))
	assert.Equal(t, []byte{0xc0, 0xbb, 0x78}, EncodeSLEB128(int64(-123456)))
	assert.Equal(t, []byte{0x80, 0x01}, EncodeSLEB128(int32(128)))
}
