package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// defaultAliases maps known data-entry variants of attribute keys to the
// canonical catalog name. Maintained by hand as new variants show up in
// payloads: missing plurals, alternate punctuation, missing diacritics,
// regional spellings. Keys and values are both in normalized form.
var defaultAliases = map[string]string{
	"surface (m2)":    "surface m2",
	"surface en m2":   "surface m2",
	"superficie":      "surface m2",
	"chambre":         "chambres",
	"piece":           "pieces",
	"pièce":           "pieces",
	"pièces":          "pieces",
	"salle d'eau":     "salles d'eau",
	"salle deau":      "salles d'eau",
	"salle de bain":   "salles de bain",
	"salles de bains": "salles de bain",
	"sdb":             "salles de bain",
	"etage":           "étage",
	"etages":          "étage",
	"cloture":         "clôture",
	"clotures":        "clôture",
	"swimming pool":   "piscine",
	"pool":            "piscine",
	"garage couvert":  "garage",
	"wc":              "toilettes",
}

// AliasTable resolves alias spellings to canonical attribute names. It is
// built once at startup and read-only afterwards.
type AliasTable struct {
	aliases map[string]string
}

// NewAliasTable returns the built-in alias table, optionally extended with
// entries from a JSON file ({"alias": "canonical name", ...}). File entries
// win over built-ins. An empty path loads the built-ins only.
func NewAliasTable(path string) (*AliasTable, error) {
	aliases := make(map[string]string, len(defaultAliases))
	for alias, canonical := range defaultAliases {
		aliases[NormalizeKey(alias)] = NormalizeKey(canonical)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read alias file %s: %w", path, err)
		}
		var extra map[string]string
		if err := json.Unmarshal(raw, &extra); err != nil {
			return nil, fmt.Errorf("failed to parse alias file %s: %w", path, err)
		}
		for alias, canonical := range extra {
			aliases[NormalizeKey(alias)] = NormalizeKey(canonical)
		}
	}

	return &AliasTable{aliases: aliases}, nil
}

// Canonical returns the canonical name for a normalized key. Keys without an
// alias entry pass through unchanged.
func (t *AliasTable) Canonical(normalizedKey string) string {
	if t == nil {
		return normalizedKey
	}
	if canonical, ok := t.aliases[normalizedKey]; ok {
		return canonical
	}
	return normalizedKey
}

// Len returns the number of alias entries.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.aliases)
}
