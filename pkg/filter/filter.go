// Package filter compiles raw attribute filter maps into EXISTS predicates
// over the attribute_values table. Each requested attribute becomes one
// subquery; predicates are combined with AND so a property must satisfy
// every filter.
package filter

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/briar/pkg/catalog"
)

// Condition is one compiled attribute predicate.
type Condition struct {
	AttributeID string
	Column      string
	Value       any
}

// DynamicFilter holds the compiled conditions for one search request.
type DynamicFilter struct {
	Conditions []Condition
}

// Compile resolves each raw filter key against the catalog and picks the
// typed value slot the comparison should run on. Keys that do not resolve
// and values of unsupported types are skipped; a nil or empty input yields
// an empty filter. Malformed JSON input also yields an empty filter, so a
// bad filter block degrades to an unfiltered search rather than an error.
func Compile(idx *catalog.Index, raw json.RawMessage) DynamicFilter {
	var filters map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &filters); err != nil {
			return DynamicFilter{}
		}
	}
	return CompileMap(idx, filters)
}

// CompileMap is Compile for an already-decoded filter map.
func CompileMap(idx *catalog.Index, filters map[string]any) DynamicFilter {
	var df DynamicFilter
	for key, value := range filters {
		attr, ok := idx.Resolve(catalog.NormalizeKey(key))
		if !ok {
			continue
		}
		column, typed, ok := slotFor(value)
		if !ok {
			continue
		}
		df.Conditions = append(df.Conditions, Condition{
			AttributeID: attr.ID,
			Column:      column,
			Value:       typed,
		})
	}
	return df
}

// slotFor maps a filter value onto the typed column it compares against.
// Booleans hit value_boolean, whole numbers value_integer, fractional
// numbers value_decimal, strings value_string lowercased. Anything else is
// unsupported.
func slotFor(value any) (string, any, bool) {
	switch v := value.(type) {
	case bool:
		return "value_boolean", v, true
	case float64:
		if v == math.Trunc(v) {
			return "value_integer", int64(v), true
		}
		return "value_decimal", v, true
	case int:
		return "value_integer", int64(v), true
	case int64:
		return "value_integer", v, true
	case string:
		return "value_string", strings.ToLower(strings.TrimSpace(v)), true
	}
	return "", nil, false
}

// Apply appends one EXISTS predicate per condition to the select builder.
// propertyColumn is the outer query's property id expression, e.g. "p.id".
func (df DynamicFilter) Apply(sb *sqlbuilder.SelectBuilder, propertyColumn string) {
	for _, cond := range df.Conditions {
		sub := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sub.Select("1")
		sub.From("attribute_values av")
		comparison := sub.Equal("av."+cond.Column, cond.Value)
		if cond.Column == "value_string" {
			comparison = "LOWER(av.value_string) = " + sub.Var(cond.Value)
		}
		sub.Where(
			"av.property_id = "+propertyColumn,
			sub.Equal("av.attribute_id", cond.AttributeID),
			comparison,
		)
		sb.Where(sb.Exists(sub))
	}
}

// Empty reports whether no conditions survived compilation.
func (df DynamicFilter) Empty() bool {
	return len(df.Conditions) == 0
}
