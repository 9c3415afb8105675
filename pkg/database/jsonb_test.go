package database

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONB_ValueBindsAsText(t *testing.T) {
	v, err := NewJSONB([]string{"grillage", "béton"}).Value()
	require.NoError(t, err)

	s, ok := v.(string)
	require.True(t, ok, "jsonb parameters must bind as text, not []byte")
	assert.JSONEq(t, `["grillage","béton"]`, s)
}

func TestJSONB_Scan(t *testing.T) {
	t.Run("decodes a document", func(t *testing.T) {
		var p JSONB[[]string]
		require.NoError(t, p.Scan([]byte(`["a","b"]`)))
		assert.Equal(t, []string{"a", "b"}, p.GetValue())
	})

	t.Run("nil source yields the zero value", func(t *testing.T) {
		var p JSONB[[]string]
		require.NoError(t, p.Scan(nil))
		assert.Nil(t, p.GetValue())
	})
}

func TestJSONParam(t *testing.T) {
	t.Run("passes a document through as text", func(t *testing.T) {
		assert.Equal(t, `{"chambres":3}`, JSONParam(json.RawMessage(`{"chambres":3}`)))
	})

	t.Run("empty document binds as an empty object", func(t *testing.T) {
		assert.Equal(t, "{}", JSONParam(nil))
		assert.Equal(t, "{}", JSONParam(json.RawMessage{}))
	})
}
