package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func testAliases(t *testing.T) *AliasTable {
	t.Helper()
	aliases, err := NewAliasTable("")
	require.NoError(t, err)
	return aliases
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Chambres", "chambres"},
		{"trims whitespace", "  piscine  ", "piscine"},
		{"dots become spaces", "surface.m2", "surface m2"},
		{"collapses whitespace runs", "salles   de    bain", "salles de bain"},
		{"mixed noise", "  Surface.M2 ", "surface m2"},
		{"empty stays empty", "", ""},
		{"whitespace only", "   ", ""},
		{"keeps accents", "Étage", "étage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKey(tt.input))
		})
	}
}

func TestAliasTable_Canonical(t *testing.T) {
	aliases := testAliases(t)

	t.Run("maps known variants", func(t *testing.T) {
		assert.Equal(t, "surface m2", aliases.Canonical("surface (m2)"))
		assert.Equal(t, "surface m2", aliases.Canonical("superficie"))
		assert.Equal(t, "chambres", aliases.Canonical("chambre"))
		assert.Equal(t, "piscine", aliases.Canonical("pool"))
	})

	t.Run("unknown keys pass through", func(t *testing.T) {
		assert.Equal(t, "jardin", aliases.Canonical("jardin"))
	})

	t.Run("nil table passes through", func(t *testing.T) {
		var nilTable *AliasTable
		assert.Equal(t, "chambre", nilTable.Canonical("chambre"))
	})
}

func TestIndex_Resolve(t *testing.T) {
	aliases := testAliases(t)
	idx := NewIndex([]models.Attribute{
		{ID: "attr-surface", Name: "Surface m2", DataType: models.AttributeDataTypeInteger},
		{ID: "attr-chambres", Name: "Chambres", DataType: models.AttributeDataTypeInteger},
		{ID: "attr-piscine", Name: "Piscine", DataType: models.AttributeDataTypeBoolean},
		{ID: "attr-cloture", Name: "Type de clôture", DataType: models.AttributeDataTypeString},
	}, aliases)

	t.Run("exact canonical match", func(t *testing.T) {
		attr, ok := idx.Resolve("chambres")
		require.True(t, ok)
		assert.Equal(t, "attr-chambres", attr.ID)
	})

	t.Run("punctuation variants co-resolve", func(t *testing.T) {
		for _, key := range []string{"Surface (M2)", "surface m2", "surface.m2"} {
			attr, ok := idx.Resolve(key)
			require.True(t, ok, "key %q should resolve", key)
			assert.Equal(t, "attr-surface", attr.ID, "key %q", key)
		}
	})

	t.Run("alias match", func(t *testing.T) {
		attr, ok := idx.Resolve("superficie")
		require.True(t, ok)
		assert.Equal(t, "attr-surface", attr.ID)
	})

	t.Run("fuzzy containment match", func(t *testing.T) {
		attr, ok := idx.Resolve("nombre de chambres")
		require.True(t, ok)
		assert.Equal(t, "attr-chambres", attr.ID)
	})

	t.Run("fuzzy match on catalog name containing the key", func(t *testing.T) {
		attr, ok := idx.Resolve("clôture")
		require.True(t, ok)
		assert.Equal(t, "attr-cloture", attr.ID)
	})

	t.Run("unresolvable key", func(t *testing.T) {
		_, ok := idx.Resolve("hélipad")
		assert.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		_, ok := idx.Resolve("   ")
		assert.False(t, ok)
	})
}

func TestIndex_Resolve_FuzzyTieBreak(t *testing.T) {
	aliases := testAliases(t)

	t.Run("prefers longest overlap", func(t *testing.T) {
		idx := NewIndex([]models.Attribute{
			{ID: "attr-garage", Name: "Garage"},
			{ID: "attr-garage-double", Name: "Garage double"},
		}, aliases)

		attr, ok := idx.Resolve("garage double chauffé")
		require.True(t, ok)
		assert.Equal(t, "attr-garage-double", attr.ID)
	})

	t.Run("equal overlap resolves by canonical name order", func(t *testing.T) {
		// Both names are contained in the key with the same overlap length;
		// the lexicographically smaller canonical name must win regardless
		// of catalog insertion order.
		forward := NewIndex([]models.Attribute{
			{ID: "attr-bbbbb", Name: "bbbbb"},
			{ID: "attr-aaaaa", Name: "aaaaa"},
		}, aliases)
		reversed := NewIndex([]models.Attribute{
			{ID: "attr-aaaaa", Name: "aaaaa"},
			{ID: "attr-bbbbb", Name: "bbbbb"},
		}, aliases)

		attr, ok := forward.Resolve("aaaaa bbbbb")
		require.True(t, ok)
		assert.Equal(t, "attr-aaaaa", attr.ID)

		attr, ok = reversed.Resolve("aaaaa bbbbb")
		require.True(t, ok)
		assert.Equal(t, "attr-aaaaa", attr.ID)
	})
}

type stubSource struct {
	attributes []models.Attribute
	calls      int
	err        error
}

func (s *stubSource) ListByTenant(ctx context.Context, tenantID string) ([]models.Attribute, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.attributes, nil
}

func TestCache_GetIndex(t *testing.T) {
	aliases := testAliases(t)
	source := &stubSource{attributes: []models.Attribute{
		{ID: "attr-1", Name: "Chambres"},
	}}
	cache := NewCache(source, aliases, DefaultCacheConfig())

	idx, err := cache.GetIndex(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, source.calls)

	// Second read is served from cache.
	_, err = cache.GetIndex(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// Invalidation forces a reload.
	cache.Invalidate("tenant-1")
	_, err = cache.GetIndex(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCache_GetIndex_TenantsAreIsolated(t *testing.T) {
	aliases := testAliases(t)
	source := &stubSource{}
	cache := NewCache(source, aliases, DefaultCacheConfig())

	_, err := cache.GetIndex(context.Background(), "tenant-a")
	require.NoError(t, err)
	_, err = cache.GetIndex(context.Background(), "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}
