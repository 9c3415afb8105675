// Package eav converts raw free-form attribute payloads into typed facts
// against the curated catalog, and replaces the stored fact set wholesale.
package eav

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/models"
)

// Drop reasons reported by ResolvePayload.
const (
	DropReasonEmpty      = "empty"
	DropReasonSystemKey  = "system_key"
	DropReasonReserved   = "reserved"
	DropReasonUnresolved = "unresolved"
	DropReasonDuplicate  = "duplicate"
	DropReasonCoercion   = "coercion"
)

// systemKeys are payload keys already represented by dedicated property
// columns; they never become facts. Keys are in normalized form.
var systemKeys = map[string]struct{}{
	"price":            {},
	"prix":             {},
	"title":            {},
	"titre":            {},
	"status":           {},
	"statut":           {},
	"description":      {},
	"address":          {},
	"adresse":          {},
	"city":             {},
	"ville":            {},
	"latitude":         {},
	"longitude":        {},
	"coordinates":      {},
	"postal code":      {},
	"code postal":      {},
	"visit date":       {},
	"date de visite":   {},
	"visit time":       {},
	"heure de visite":  {},
	"property type":    {},
	"property type id": {},
	"type de bien":     {},
	"min price":        {},
	"max price":        {},
}

// truthyTokens are the string spellings coerced to boolean true.
var truthyTokens = map[string]struct{}{
	"true": {},
	"1":    {},
	"oui":  {},
	"yes":  {},
}

var digitRun = regexp.MustCompile(`\d+`)

// maxStringLength caps stringified fact values, matching the value_string
// column width.
const maxStringLength = 255

// IsSystemKey reports whether a normalized key is excluded from EAV
// processing because a dedicated column already holds it.
func IsSystemKey(normalizedKey string) bool {
	_, ok := systemKeys[normalizedKey]
	return ok
}

// ResolvedFact pairs a typed fact with the catalog attribute it resolved to.
type ResolvedFact struct {
	Attribute *models.Attribute
	Value     models.AttributeValue
}

// Result is the outcome of resolving one payload.
type Result struct {
	Facts   []ResolvedFact
	Dropped map[string]int
}

// ResolvePayload converts a raw payload into typed facts. Unresolvable keys
// and uncoercible values are dropped silently; at most one fact survives per
// attribute (first occurrence in ascending key order wins). Keys are
// processed in sorted order so resolution of a given payload is
// deterministic.
func ResolvePayload(idx *catalog.Index, payload map[string]any) Result {
	result := Result{Dropped: map[string]int{}}
	seen := map[string]struct{}{}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := payload[key]
		normalized := catalog.NormalizeKey(key)

		if normalized == "" || value == nil {
			result.Dropped[DropReasonEmpty]++
			continue
		}
		if strings.HasPrefix(normalized, "_") {
			result.Dropped[DropReasonReserved]++
			continue
		}
		if IsSystemKey(normalized) {
			result.Dropped[DropReasonSystemKey]++
			continue
		}

		attr, ok := idx.Resolve(normalized)
		if !ok {
			result.Dropped[DropReasonUnresolved]++
			continue
		}

		if _, dup := seen[attr.ID]; dup {
			result.Dropped[DropReasonDuplicate]++
			continue
		}

		fact := models.AttributeValue{AttributeID: attr.ID}
		switch attr.DataType {
		case models.AttributeDataTypeBoolean:
			fact.ValueBoolean = coerceBoolean(value)
		case models.AttributeDataTypeInteger:
			fact.ValueInteger = coerceInteger(value)
		case models.AttributeDataTypeDecimal:
			fact.ValueDecimal = coerceDecimal(value)
		default:
			fact.ValueString = coerceString(value)
		}

		if !fact.HasValue() {
			result.Dropped[DropReasonCoercion]++
			continue
		}

		seen[attr.ID] = struct{}{}
		result.Facts = append(result.Facts, ResolvedFact{Attribute: attr, Value: fact})
	}

	return result
}

// coerceBoolean accepts native booleans; strings are true iff they spell a
// truthy token, otherwise fall back to general truthiness. Numbers are true
// when non-zero.
func coerceBoolean(value any) *bool {
	switch v := value.(type) {
	case bool:
		return boolPtr(v)
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if _, ok := truthyTokens[s]; ok {
			return boolPtr(true)
		}
		switch s {
		case "", "0", "false", "no", "non":
			return boolPtr(false)
		}
		return boolPtr(true)
	case float64:
		return boolPtr(v != 0)
	case int:
		return boolPtr(v != 0)
	case int64:
		return boolPtr(v != 0)
	}
	return boolPtr(value != nil)
}

// coerceInteger accepts native integers (JSON numbers arrive as float64);
// strings yield the first contiguous digit run, so "3 chambres" parses to 3
// and "abc" drops.
func coerceInteger(value any) *int64 {
	switch v := value.(type) {
	case float64:
		return int64Ptr(int64(v))
	case int:
		return int64Ptr(int64(v))
	case int64:
		return int64Ptr(v)
	case bool:
		if v {
			return int64Ptr(1)
		}
		return int64Ptr(0)
	case string:
		digits := digitRun.FindString(v)
		if digits == "" {
			return nil
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil
		}
		return int64Ptr(n)
	}
	return nil
}

// coerceDecimal parses floating-point values, dropping on parse failure.
func coerceDecimal(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return float64Ptr(v)
	case int:
		return float64Ptr(float64(v))
	case int64:
		return float64Ptr(float64(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64)
		if err != nil {
			return nil
		}
		return float64Ptr(f)
	}
	return nil
}

// coerceString stringifies and truncates to the column width.
func coerceString(value any) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprint(v)
	}
	runes := []rune(s)
	if len(runes) > maxStringLength {
		s = string(runes[:maxStringLength])
	}
	return &s
}

func boolPtr(v bool) *bool          { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
