package catalog

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/briar/pkg/models"
)

// Index is an immutable lookup structure over one tenant's attribute
// catalog. Canonical names (and their aliases) are indexed for exact
// resolution; the attribute list is kept sorted by canonical name so the
// fuzzy containment fallback is deterministic under catalog growth.
type Index struct {
	attributes  []models.Attribute
	byCanonical map[string]*models.Attribute
	aliases     *AliasTable
}

// NewIndex builds an index from the catalog attributes of one tenant.
func NewIndex(attributes []models.Attribute, aliases *AliasTable) *Index {
	idx := &Index{
		attributes:  make([]models.Attribute, len(attributes)),
		byCanonical: make(map[string]*models.Attribute, len(attributes)),
		aliases:     aliases,
	}
	copy(idx.attributes, attributes)

	sort.Slice(idx.attributes, func(i, j int) bool {
		return NormalizeKey(idx.attributes[i].Name) < NormalizeKey(idx.attributes[j].Name)
	})

	for i := range idx.attributes {
		attr := &idx.attributes[i]
		canonical := aliases.Canonical(NormalizeKey(attr.Name))
		if _, exists := idx.byCanonical[canonical]; !exists {
			idx.byCanonical[canonical] = attr
		}
	}

	return idx
}

// Resolve maps a raw payload key to its catalog attribute. Exact canonical
// match first (after normalization and alias substitution), then the
// substring-containment fallback. The fallback prefers the candidate with
// the longest containment overlap; remaining ties go to the attribute with
// the lexicographically smallest canonical name, so resolution does not
// depend on catalog insertion order.
func (idx *Index) Resolve(rawKey string) (*models.Attribute, bool) {
	key := idx.aliases.Canonical(NormalizeKey(rawKey))
	if key == "" {
		return nil, false
	}

	if attr, ok := idx.byCanonical[key]; ok {
		return attr, true
	}

	var best *models.Attribute
	bestOverlap := 0
	for i := range idx.attributes {
		attr := &idx.attributes[i]
		name := NormalizeKey(attr.Name)
		if name == "" {
			continue
		}
		if !strings.Contains(key, name) && !strings.Contains(name, key) {
			continue
		}
		overlap := len(name)
		if len(key) < overlap {
			overlap = len(key)
		}
		if overlap > bestOverlap {
			best = attr
			bestOverlap = overlap
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// Get returns the attribute with the given canonical (or aliased) name.
func (idx *Index) Get(name string) (*models.Attribute, bool) {
	attr, ok := idx.byCanonical[idx.aliases.Canonical(NormalizeKey(name))]
	return attr, ok
}

// Attributes returns the indexed attributes in canonical-name order.
func (idx *Index) Attributes() []models.Attribute {
	return idx.attributes
}

// Len returns the number of indexed attributes.
func (idx *Index) Len() int {
	return len(idx.attributes)
}
