package filter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"
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
		{ID: "attr-piscine", Name: "Piscine", DataType: models.AttributeDataTypeBoolean},
		{ID: "attr-prix-m2", Name: "Prix au m2", DataType: models.AttributeDataTypeDecimal},
		{ID: "attr-cloture", Name: "Clôture", DataType: models.AttributeDataTypeString},
	}, aliases)
}

func conditionFor(df DynamicFilter, attributeID string) (Condition, bool) {
	for _, cond := range df.Conditions {
		if cond.AttributeID == attributeID {
			return cond, true
		}
	}
	return Condition{}, false
}

func TestCompile_SlotSelection(t *testing.T) {
	idx := testIndex(t)

	df := Compile(idx, json.RawMessage(`{
		"chambres": 3,
		"piscine": true,
		"prix au m2": 1850.5,
		"clôture": "  Grillage "
	}`))

	require.Len(t, df.Conditions, 4)

	chambres, ok := conditionFor(df, "attr-chambres")
	require.True(t, ok)
	assert.Equal(t, "value_integer", chambres.Column)
	assert.Equal(t, int64(3), chambres.Value)

	piscine, ok := conditionFor(df, "attr-piscine")
	require.True(t, ok)
	assert.Equal(t, "value_boolean", piscine.Column)
	assert.Equal(t, true, piscine.Value)

	prix, ok := conditionFor(df, "attr-prix-m2")
	require.True(t, ok)
	assert.Equal(t, "value_decimal", prix.Column)
	assert.Equal(t, 1850.5, prix.Value)

	cloture, ok := conditionFor(df, "attr-cloture")
	require.True(t, ok)
	assert.Equal(t, "value_string", cloture.Column)
	assert.Equal(t, "grillage", cloture.Value)
}

func TestCompile_WholeFloatUsesIntegerSlot(t *testing.T) {
	idx := testIndex(t)

	// JSON numbers decode as float64; a whole value still compares against
	// the integer slot.
	df := Compile(idx, json.RawMessage(`{"chambres": 4}`))
	require.Len(t, df.Conditions, 1)
	assert.Equal(t, "value_integer", df.Conditions[0].Column)
	assert.Equal(t, int64(4), df.Conditions[0].Value)
}

func TestCompile_SkipsBadEntries(t *testing.T) {
	idx := testIndex(t)

	t.Run("unresolvable keys are skipped", func(t *testing.T) {
		df := Compile(idx, json.RawMessage(`{"jacuzzi": true, "chambres": 3}`))
		require.Len(t, df.Conditions, 1)
		assert.Equal(t, "attr-chambres", df.Conditions[0].AttributeID)
	})

	t.Run("unsupported value types are skipped", func(t *testing.T) {
		df := Compile(idx, json.RawMessage(`{"chambres": [1, 2], "piscine": {"a": 1}}`))
		assert.True(t, df.Empty())
	})

	t.Run("malformed json yields an empty filter", func(t *testing.T) {
		df := Compile(idx, json.RawMessage(`{"chambres": `))
		assert.True(t, df.Empty())
	})

	t.Run("empty input yields an empty filter", func(t *testing.T) {
		assert.True(t, Compile(idx, nil).Empty())
		assert.True(t, Compile(idx, json.RawMessage(``)).Empty())
	})
}

func TestApply_BuildsExistsPredicates(t *testing.T) {
	idx := testIndex(t)
	df := Compile(idx, json.RawMessage(`{"chambres": 3, "piscine": true}`))
	require.Len(t, df.Conditions, 2)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("p.id")
	sb.From("properties p")
	df.Apply(sb, "p.id")

	sql, args := sb.Build()
	assert.Equal(t, 2, strings.Count(sql, "EXISTS"))
	assert.Contains(t, sql, "av.property_id = p.id")
	assert.Contains(t, args, "attr-chambres")
	assert.Contains(t, args, "attr-piscine")
}

func TestApply_StringComparisonIsCaseInsensitive(t *testing.T) {
	idx := testIndex(t)
	df := Compile(idx, json.RawMessage(`{"clôture": "Grillage"}`))
	require.Len(t, df.Conditions, 1)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("p.id")
	sb.From("properties p")
	df.Apply(sb, "p.id")

	sql, args := sb.Build()
	assert.Contains(t, sql, "LOWER(av.value_string)")
	assert.Contains(t, args, "grillage")
}
