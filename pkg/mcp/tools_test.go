package mcp

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func Test_stringsSchema(t *testing.T) {
	tests := []struct {
		name   string
		params []stringParam
		want   *jsonschema.Schema
	}{
		{
			name: "xml_and_connection",
			params: []stringParam{
				{Name: "xml", Description: "doc", Required: true},
				{Name: "connection"},
			},
			want: &jsonschema.Schema{
				Title:    "parse",
				Required: []string{"xml"},
				Type:     "object",
				Properties: orderedmap.New[string, *jsonschema.Schema](orderedmap.WithInitialData(
					orderedmap.Pair[string, *jsonschema.Schema]{Key: "xml", Value: &jsonschema.Schema{Type: "string", Description: "doc"}},
					orderedmap.Pair[string, *jsonschema.Schema]{Key: "connection", Value: &jsonschema.Schema{Type: "string"}},
				)),
			},
		},
		{
			name: "empty",
			want: &jsonschema.Schema{
				Title:      "parse",
				Required:   []string{},
				Type:       "object",
				Properties: orderedmap.New[string, *jsonschema.Schema](),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringsSchema("parse", "", tt.params...)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReflectSchema(t *testing.T) {
	sch := ReflectSchema[CreateVolumeParams]()

	assert.Equal(t, "object", sch.Type)
	assert.Empty(t, sch.Version)
	require.NotNil(t, sch.Properties)

	var keys []string
	for pair := sch.Properties.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"pool", "name", "sizeMiB", "format"}, keys, "embedded fields are inlined")
	assert.Contains(t, sch.Required, "pool")
	assert.NotContains(t, sch.Required, "format")
}

func Test_decodeArgs(t *testing.T) {
	got, err := decodeArgs[ConvertParams](map[string]interface{}{"value": 2048, "from": "KiB"})
	require.NoError(t, err)
	assert.Equal(t, ConvertParams{Value: 2048, From: "KiB"}, got)

	_, err = decodeArgs[ConvertParams](map[string]interface{}{"value": "lots"})
	require.Error(t, err)

	empty, err := decodeArgs[noArgs](nil)
	require.NoError(t, err)
	assert.Equal(t, noArgs{}, empty)
}
