package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name   string             `json:"name"`
	Items  []item             `json:"items"`
	Limit  *int               `json:"limit,omitempty"`
	Params map[string]float64 `json:"params,omitempty"`
}

type item struct {
	ID     string             `json:"id"`
	Params map[string]float64 `json:"params"`
}

func TestParseYAMLAndJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "yaml", in: "name: x\nitems:\n  - id: a\n    params:\n      period: 14\nlimit: 3\n"},
		{name: "json", in: `{"name":"x","items":[{"id":"a","params":{"period":14}}],"limit":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse([]byte(tt.in))
			require.NoError(t, err)

			var out doc
			require.NoError(t, Decode(tree, &out))
			assert.Equal(t, "x", out.Name)
			require.Len(t, out.Items, 1)
			assert.Equal(t, 14.0, out.Items[0].Params["period"])
			require.NotNil(t, out.Limit)
			assert.Equal(t, 3, *out.Limit)
		})
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	tree, err := Parse([]byte("name: x\ncolour: red\n"))
	require.NoError(t, err)

	var out doc
	assert.Error(t, Decode(tree, &out))
}

func TestSet(t *testing.T) {
	src := doc{
		Name:   "x",
		Items:  []item{{ID: "a", Params: map[string]float64{"period": 14}}},
		Params: map[string]float64{"slow": 26},
	}
	tree, err := ToTree(src)
	require.NoError(t, err)

	require.NoError(t, Set(tree, "items.0.params.period", 21))
	require.NoError(t, Set(tree, "params.fast", 5.5))

	var out doc
	require.NoError(t, Decode(tree, &out))
	assert.Equal(t, 21.0, out.Items[0].Params["period"])
	assert.Equal(t, 5.5, out.Params["fast"])
	assert.Equal(t, 26.0, out.Params["slow"])
	assert.Equal(t, 14.0, src.Items[0].Params["period"], "source struct is untouched")
}

func TestSetErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "empty", path: ""},
		{name: "missing key", path: "nothing.here"},
		{name: "index out of range", path: "items.3.id"},
		{name: "index not a number", path: "items.first.id"},
		{name: "through a scalar", path: "name.length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ToTree(doc{Name: "x", Items: []item{{ID: "a"}}})
			require.NoError(t, err)
			assert.ErrorIs(t, Set(tree, tt.path, 1), ErrPath)
		})
	}
}
