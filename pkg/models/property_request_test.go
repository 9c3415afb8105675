package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyRequest_CriteriaMap(t *testing.T) {
	t.Run("decodes the criteria blob", func(t *testing.T) {
		r := PropertyRequest{Criteria: json.RawMessage(`{"chambres": 3, "piscine": true}`)}
		criteria := r.CriteriaMap()
		assert.Len(t, criteria, 2)
		assert.Equal(t, float64(3), criteria["chambres"])
		assert.Equal(t, true, criteria["piscine"])
	})

	t.Run("empty blob decodes to empty map", func(t *testing.T) {
		r := PropertyRequest{}
		assert.Empty(t, r.CriteriaMap())
	})

	t.Run("malformed blob decodes to empty map", func(t *testing.T) {
		r := PropertyRequest{Criteria: json.RawMessage(`{"chambres": `)}
		assert.Empty(t, r.CriteriaMap())
	})
}

func TestDerivedFact_StringValue(t *testing.T) {
	str := "grillage"
	integer := int64(3)
	boolean := true
	decimal := 1850.5

	tests := []struct {
		name     string
		fact     DerivedFact
		expected string
	}{
		{"string slot", DerivedFact{AttributeValue: AttributeValue{ValueString: &str}}, "grillage"},
		{"integer slot", DerivedFact{AttributeValue: AttributeValue{ValueInteger: &integer}}, "3"},
		{"boolean slot", DerivedFact{AttributeValue: AttributeValue{ValueBoolean: &boolean}}, "true"},
		{"decimal slot", DerivedFact{AttributeValue: AttributeValue{ValueDecimal: &decimal}}, "1850.5"},
		{"empty fact", DerivedFact{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fact.StringValue())
		})
	}
}

func TestDerivedFact_NumericValue(t *testing.T) {
	integer := int64(3)
	decimal := 1850.5
	str := "3"

	t.Run("integer slot", func(t *testing.T) {
		fact := DerivedFact{AttributeValue: AttributeValue{ValueInteger: &integer}}
		v, ok := fact.NumericValue()
		assert.True(t, ok)
		assert.Equal(t, float64(3), v)
	})

	t.Run("decimal slot", func(t *testing.T) {
		fact := DerivedFact{AttributeValue: AttributeValue{ValueDecimal: &decimal}}
		v, ok := fact.NumericValue()
		assert.True(t, ok)
		assert.Equal(t, 1850.5, v)
	})

	t.Run("string slot is not numeric", func(t *testing.T) {
		fact := DerivedFact{AttributeValue: AttributeValue{ValueString: &str}}
		_, ok := fact.NumericValue()
		assert.False(t, ok)
	})
}

func TestAttributeValue_HasValue(t *testing.T) {
	str := "x"
	v := AttributeValue{}
	assert.False(t, v.HasValue())
	v.ValueString = &str
	assert.True(t, v.HasValue())
}
