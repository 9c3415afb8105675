package eav

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/models"
)

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	aliases, err := catalog.NewAliasTable("")
	require.NoError(t, err)
	return catalog.NewIndex([]models.Attribute{
		{ID: "attr-chambres", Name: "Chambres", DataType: models.AttributeDataTypeInteger},
		{ID: "attr-surface", Name: "Surface m2", DataType: models.AttributeDataTypeInteger},
		{ID: "attr-piscine", Name: "Piscine", DataType: models.AttributeDataTypeBoolean},
		{ID: "attr-prix-m2", Name: "Prix au m2", DataType: models.AttributeDataTypeDecimal},
		{ID: "attr-cloture", Name: "Clôture", DataType: models.AttributeDataTypeString},
	}, aliases)
}

func factByAttribute(result Result, attributeID string) (ResolvedFact, bool) {
	for _, fact := range result.Facts {
		if fact.Attribute.ID == attributeID {
			return fact, true
		}
	}
	return ResolvedFact{}, false
}

func TestResolvePayload_TypeCoercion(t *testing.T) {
	idx := testIndex(t)

	t.Run("integer from digit run in free text", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"chambres": "3 chambres"})
		require.Len(t, result.Facts, 1)
		require.NotNil(t, result.Facts[0].Value.ValueInteger)
		assert.Equal(t, int64(3), *result.Facts[0].Value.ValueInteger)
	})

	t.Run("integer from json number", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"surface m2": float64(120)})
		require.Len(t, result.Facts, 1)
		require.NotNil(t, result.Facts[0].Value.ValueInteger)
		assert.Equal(t, int64(120), *result.Facts[0].Value.ValueInteger)
	})

	t.Run("integer without digits drops", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"chambres": "abc"})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonCoercion])
	})

	t.Run("boolean truthy spellings", func(t *testing.T) {
		for _, raw := range []any{true, "oui", "Yes", "true", "1", float64(1)} {
			result := ResolvePayload(idx, map[string]any{"piscine": raw})
			require.Len(t, result.Facts, 1, "value %v", raw)
			require.NotNil(t, result.Facts[0].Value.ValueBoolean)
			assert.True(t, *result.Facts[0].Value.ValueBoolean, "value %v", raw)
		}
	})

	t.Run("boolean falsy spellings", func(t *testing.T) {
		for _, raw := range []any{false, "non", "no", "0", "false", float64(0)} {
			result := ResolvePayload(idx, map[string]any{"piscine": raw})
			require.Len(t, result.Facts, 1, "value %v", raw)
			require.NotNil(t, result.Facts[0].Value.ValueBoolean)
			assert.False(t, *result.Facts[0].Value.ValueBoolean, "value %v", raw)
		}
	})

	t.Run("decimal with comma separator", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"prix au m2": "1850,50"})
		require.Len(t, result.Facts, 1)
		require.NotNil(t, result.Facts[0].Value.ValueDecimal)
		assert.InDelta(t, 1850.50, *result.Facts[0].Value.ValueDecimal, 0.001)
	})

	t.Run("unparseable decimal drops", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"prix au m2": "cher"})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonCoercion])
	})

	t.Run("string values stringify", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"clôture": "grillage"})
		require.Len(t, result.Facts, 1)
		require.NotNil(t, result.Facts[0].Value.ValueString)
		assert.Equal(t, "grillage", *result.Facts[0].Value.ValueString)
	})

	t.Run("long strings truncate to column width", func(t *testing.T) {
		long := strings.Repeat("é", 300)
		result := ResolvePayload(idx, map[string]any{"clôture": long})
		require.Len(t, result.Facts, 1)
		require.NotNil(t, result.Facts[0].Value.ValueString)
		assert.Equal(t, 255, len([]rune(*result.Facts[0].Value.ValueString)))
	})
}

func TestResolvePayload_KeyFiltering(t *testing.T) {
	idx := testIndex(t)

	t.Run("system keys never become facts", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{
			"Price":    350000,
			"ville":    "Dakar",
			"chambres": 3,
		})
		require.Len(t, result.Facts, 1)
		assert.Equal(t, "attr-chambres", result.Facts[0].Attribute.ID)
		assert.Equal(t, 2, result.Dropped[DropReasonSystemKey])
	})

	t.Run("reserved underscore keys drop", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"_internal": "x"})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonReserved])
	})

	t.Run("nil values drop", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"chambres": nil})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonEmpty])
	})

	t.Run("blank keys drop", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"   ": "x"})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonEmpty])
	})

	t.Run("unresolvable keys drop silently", func(t *testing.T) {
		result := ResolvePayload(idx, map[string]any{"hélipad": "oui"})
		assert.Empty(t, result.Facts)
		assert.Equal(t, 1, result.Dropped[DropReasonUnresolved])
	})
}

func TestResolvePayload_Deduplication(t *testing.T) {
	idx := testIndex(t)

	// "chambre" aliases to the same attribute as "chambres"; keys are
	// processed in ascending order, so "chambre" wins.
	result := ResolvePayload(idx, map[string]any{
		"chambre":  2,
		"chambres": 4,
	})

	require.Len(t, result.Facts, 1)
	assert.Equal(t, 1, result.Dropped[DropReasonDuplicate])
	fact, ok := factByAttribute(result, "attr-chambres")
	require.True(t, ok)
	require.NotNil(t, fact.Value.ValueInteger)
	assert.Equal(t, int64(2), *fact.Value.ValueInteger)
}

func TestResolvePayload_MixedPayload(t *testing.T) {
	idx := testIndex(t)

	result := ResolvePayload(idx, map[string]any{
		"Surface (M2)": "120 m2",
		"piscine":      "oui",
		"chambres":     float64(4),
		"prix":         250000,
		"jacuzzi":      true,
	})

	require.Len(t, result.Facts, 3)

	surface, ok := factByAttribute(result, "attr-surface")
	require.True(t, ok)
	assert.Equal(t, int64(120), *surface.Value.ValueInteger)

	piscine, ok := factByAttribute(result, "attr-piscine")
	require.True(t, ok)
	assert.True(t, *piscine.Value.ValueBoolean)

	chambres, ok := factByAttribute(result, "attr-chambres")
	require.True(t, ok)
	assert.Equal(t, int64(4), *chambres.Value.ValueInteger)

	assert.Equal(t, 1, result.Dropped[DropReasonSystemKey])
	assert.Equal(t, 1, result.Dropped[DropReasonUnresolved])
}
