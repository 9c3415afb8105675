// Package matching scores published properties against standing search
// alerts and records the pairs that clear the acceptance threshold.
package matching

import (
	"strconv"
	"strings"

	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/models"
)

// Scorer evaluates one alert against one property.
//
// Hard criteria are binary: a city or price bound that fails disqualifies
// the alert outright. When specified and passed, each counts as one matched
// criterion (the price range is a single criterion regardless of bounds).
// Every dynamic criterion with a non-empty value earns partial credit; the
// score is matched over total across hard and dynamic criteria alike. An
// alert with no criteria at all scores 1.0.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the satisfaction score for an alert. The boolean is false
// when a hard criterion disqualifies the alert.
func (s *Scorer) Score(idx *catalog.Index, request *models.PropertyRequest, prop *models.Property, facts []models.DerivedFact) (float64, bool) {
	total := 0
	matched := 0

	if request.City != nil && strings.TrimSpace(*request.City) != "" {
		if !s.cityMatches(request, prop) {
			return 0, false
		}
		total++
		matched++
	}
	if request.MinPrice != nil || request.MaxPrice != nil {
		if !s.priceMatches(request, prop) {
			return 0, false
		}
		total++
		matched++
	}

	byAttribute := make(map[string]*models.DerivedFact, len(facts))
	for i := range facts {
		byAttribute[facts[i].AttributeID] = &facts[i]
	}

	for key, want := range request.CriteriaMap() {
		if emptyCriterion(want) {
			continue
		}
		total++
		attr, ok := idx.Resolve(catalog.NormalizeKey(key))
		if !ok {
			continue
		}
		fact, ok := byAttribute[attr.ID]
		if !ok {
			continue
		}
		if criterionMatches(fact, want) {
			matched++
		}
	}

	if total == 0 {
		return 1.0, true
	}
	return float64(matched) / float64(total), true
}

// emptyCriterion reports whether a criterion value carries no requirement.
// Such entries do not count toward the total.
func emptyCriterion(want any) bool {
	if want == nil {
		return true
	}
	if s, ok := want.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// cityMatches applies the city hard criterion: case-insensitive substring
// containment, so an alert for "Paris" accepts "Paris 15e".
func (s *Scorer) cityMatches(request *models.PropertyRequest, prop *models.Property) bool {
	if request.City == nil || strings.TrimSpace(*request.City) == "" {
		return true
	}
	if prop.City == nil {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(*request.City))
	have := strings.ToLower(strings.TrimSpace(*prop.City))
	return strings.Contains(have, want)
}

// priceMatches applies the price window hard criterion. A bounded alert
// rejects properties without a price.
func (s *Scorer) priceMatches(request *models.PropertyRequest, prop *models.Property) bool {
	if request.MinPrice == nil && request.MaxPrice == nil {
		return true
	}
	if prop.Price == nil {
		return false
	}
	if request.MinPrice != nil && *prop.Price < *request.MinPrice {
		return false
	}
	if request.MaxPrice != nil && *prop.Price > *request.MaxPrice {
		return false
	}
	return true
}

// criterionMatches compares one dynamic criterion value against the
// property's fact for the same attribute. Numbers compare numerically,
// everything else case-insensitively on the rendered value.
func criterionMatches(fact *models.DerivedFact, want any) bool {
	switch w := want.(type) {
	case bool:
		return fact.ValueBoolean != nil && *fact.ValueBoolean == w
	case float64:
		if have, ok := fact.NumericValue(); ok {
			return have == w
		}
		return false
	case string:
		trimmed := strings.TrimSpace(w)
		if have, ok := fact.NumericValue(); ok {
			if num, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return have == num
			}
			return false
		}
		return strings.EqualFold(trimmed, strings.TrimSpace(fact.StringValue()))
	}
	return false
}
