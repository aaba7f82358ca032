package entities

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "integral", in: 6, want: `6`},
		{name: "fraction", in: -1.5, want: `-1.5`},
		{name: "large", in: 1e300, want: `1e+300`},
		{name: "nan", in: math.NaN(), want: `"NaN"`},
		{name: "positive infinity", in: math.Inf(1), want: `"+Inf"`},
		{name: "negative infinity", in: math.Inf(-1), want: `"-Inf"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Float64(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestFloat64_UnmarshalJSON(t *testing.T) {
	var f Float64
	require.NoError(t, json.Unmarshal([]byte(`3.25`), &f))
	assert.Equal(t, 3.25, float64(f))

	require.NoError(t, json.Unmarshal([]byte(`"NaN"`), &f))
	assert.True(t, math.IsNaN(float64(f)))

	require.NoError(t, json.Unmarshal([]byte(`"Inf"`), &f))
	assert.True(t, math.IsInf(float64(f), 1))

	require.NoError(t, json.Unmarshal([]byte(`"-Inf"`), &f))
	assert.True(t, math.IsInf(float64(f), -1))

	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
}

func TestFloat64_InsideStruct(t *testing.T) {
	type pair struct {
		A *Float64 `json:"a"`
	}
	var p pair
	require.NoError(t, json.Unmarshal([]byte(`{"a":"+Inf"}`), &p))
	require.NotNil(t, p.A)
	assert.True(t, math.IsInf(float64(*p.A), 1))
}

func TestErrorDetail_Error(t *testing.T) {
	d := NewErrorDetail("argument", "missing field a").WithCode("add")
	assert.Equal(t, "argument: missing field a [add]", d.Error())

	d.Wrapped = NewErrorDetail("internal", "boom")
	assert.Equal(t, "argument: missing field a [add]: boom", d.Error())

	var nilDetail *ErrorDetail
	assert.Equal(t, "", nilDetail.Error())
}

func TestManifest_Export(t *testing.T) {
	m := &Manifest{
		Name: "demo",
		Exports: []ExportDescriptor{
			{Name: "add", Params: []Param{{Name: "a", Kind: KindInteger}, {Name: "b", Kind: KindInteger}}, Returns: KindInteger},
			{Name: "hello", Returns: KindText},
		},
	}

	add, ok := m.Export("add")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, add.ParamNames())

	_, ok = m.Export("subtract")
	assert.False(t, ok)
	assert.Equal(t, []string{"add", "hello"}, m.ExportNames())
}
