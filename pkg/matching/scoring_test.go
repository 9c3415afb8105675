package matching

import (
	"encoding/json"
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
		{ID: "attr-garage", Name: "Garage", DataType: models.AttributeDataTypeBoolean},
		{ID: "attr-cloture", Name: "Clôture", DataType: models.AttributeDataTypeString},
	}, aliases)
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func i64Ptr(i int64) *int64     { return &i }
func bPtr(b bool) *bool         { return &b }

func integerFact(attributeID string, value int64) models.DerivedFact {
	return models.DerivedFact{AttributeValue: models.AttributeValue{AttributeID: attributeID, ValueInteger: i64Ptr(value)}}
}

func booleanFact(attributeID string, value bool) models.DerivedFact {
	return models.DerivedFact{AttributeValue: models.AttributeValue{AttributeID: attributeID, ValueBoolean: bPtr(value)}}
}

func stringFact(attributeID string, value string) models.DerivedFact {
	return models.DerivedFact{AttributeValue: models.AttributeValue{AttributeID: attributeID, ValueString: strPtr(value)}}
}

func requestWithCriteria(t *testing.T, criteria map[string]any) *models.PropertyRequest {
	t.Helper()
	raw, err := json.Marshal(criteria)
	require.NoError(t, err)
	return &models.PropertyRequest{Criteria: raw}
}

func TestScorer_HardCriteria(t *testing.T) {
	idx := testIndex(t)
	scorer := NewScorer()

	t.Run("city substring match accepts", func(t *testing.T) {
		request := &models.PropertyRequest{City: strPtr("Paris")}
		prop := &models.Property{City: strPtr("Paris 15e")}
		score, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
		assert.Equal(t, 1.0, score)
	})

	t.Run("city match is case insensitive", func(t *testing.T) {
		request := &models.PropertyRequest{City: strPtr("DAKAR")}
		prop := &models.Property{City: strPtr("dakar")}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
	})

	t.Run("wrong city disqualifies", func(t *testing.T) {
		request := &models.PropertyRequest{City: strPtr("Lyon")}
		prop := &models.Property{City: strPtr("Paris")}
		score, ok := scorer.Score(idx, request, prop, nil)
		assert.False(t, ok)
		assert.Equal(t, 0.0, score)
	})

	t.Run("city-bound alert rejects property without city", func(t *testing.T) {
		request := &models.PropertyRequest{City: strPtr("Lyon")}
		prop := &models.Property{}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.False(t, ok)
	})

	t.Run("blank alert city passes", func(t *testing.T) {
		request := &models.PropertyRequest{City: strPtr("  ")}
		prop := &models.Property{}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
	})

	t.Run("price inside window passes", func(t *testing.T) {
		request := &models.PropertyRequest{MinPrice: f64Ptr(100000), MaxPrice: f64Ptr(300000)}
		prop := &models.Property{Price: f64Ptr(250000)}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
	})

	t.Run("price outside window disqualifies", func(t *testing.T) {
		request := &models.PropertyRequest{MinPrice: f64Ptr(100000), MaxPrice: f64Ptr(300000)}
		prop := &models.Property{Price: f64Ptr(350000)}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.False(t, ok)
	})

	t.Run("price-bound alert rejects property without price", func(t *testing.T) {
		request := &models.PropertyRequest{MaxPrice: f64Ptr(300000)}
		prop := &models.Property{}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.False(t, ok)
	})

	t.Run("unbounded alert accepts property without price", func(t *testing.T) {
		request := &models.PropertyRequest{}
		prop := &models.Property{}
		_, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
	})
}

func TestScorer_DynamicCriteria(t *testing.T) {
	idx := testIndex(t)
	scorer := NewScorer()
	prop := &models.Property{}

	t.Run("no criteria scores one", func(t *testing.T) {
		request := &models.PropertyRequest{}
		score, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
		assert.Equal(t, 1.0, score)
	})

	t.Run("all criteria matched scores one", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres": 3,
			"piscine":  true,
		})
		facts := []models.DerivedFact{
			integerFact("attr-chambres", 3),
			booleanFact("attr-piscine", true),
		}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.Equal(t, 1.0, score)
	})

	t.Run("four of five criteria clears the threshold", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres":   3,
			"surface m2": 120,
			"piscine":    true,
			"garage":     true,
			"clôture":    "grillage",
		})
		facts := []models.DerivedFact{
			integerFact("attr-chambres", 3),
			integerFact("attr-surface", 120),
			booleanFact("attr-piscine", true),
			booleanFact("attr-garage", false), // miss
			stringFact("attr-cloture", "grillage"),
		}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.InDelta(t, 0.8, score, 0.0001)
	})

	t.Run("three of five criteria stays below the threshold", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres":   3,
			"surface m2": 120,
			"piscine":    true,
			"garage":     true,
			"clôture":    "grillage",
		})
		facts := []models.DerivedFact{
			integerFact("attr-chambres", 3),
			integerFact("attr-surface", 90), // miss
			booleanFact("attr-piscine", true),
			booleanFact("attr-garage", false), // miss
			stringFact("attr-cloture", "grillage"),
		}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.InDelta(t, 0.6, score, 0.0001)
	})

	t.Run("missing fact counts against the score", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres": 3,
			"piscine":  true,
		})
		facts := []models.DerivedFact{integerFact("attr-chambres", 3)}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.InDelta(t, 0.5, score, 0.0001)
	})

	t.Run("uncataloged criterion keys count against the score", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres": 3,
			"jacuzzi":  true,
		})
		facts := []models.DerivedFact{integerFact("attr-chambres", 3)}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.InDelta(t, 0.5, score, 0.0001)
	})

	t.Run("only uncataloged criteria scores zero", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{"jacuzzi": true})
		score, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
		assert.Equal(t, 0.0, score)
	})

	t.Run("empty-valued criteria are excluded from the total", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres": 3,
			"piscine":  nil,
			"clôture":  "  ",
		})
		facts := []models.DerivedFact{integerFact("attr-chambres", 3)}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.Equal(t, 1.0, score)
	})
}

func TestScorer_HardCriteriaCountTowardScore(t *testing.T) {
	idx := testIndex(t)
	scorer := NewScorer()

	t.Run("passing city and price each add a matched criterion", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{
			"chambres": 3,
			"piscine":  true,
			"garage":   true,
		})
		request.City = strPtr("Paris")
		request.MinPrice = f64Ptr(100000)
		request.MaxPrice = f64Ptr(300000)
		prop := &models.Property{City: strPtr("Paris 15e"), Price: f64Ptr(250000)}
		facts := []models.DerivedFact{
			integerFact("attr-chambres", 3),
			booleanFact("attr-piscine", true),
			booleanFact("attr-garage", false), // miss
		}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.True(t, ok)
		assert.InDelta(t, 0.8, score, 0.0001)
	})

	t.Run("price range is one criterion regardless of bounds", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{"piscine": true})
		request.MinPrice = f64Ptr(100000)
		request.MaxPrice = f64Ptr(300000)
		prop := &models.Property{Price: f64Ptr(250000)}
		score, ok := scorer.Score(idx, request, prop, nil)
		assert.True(t, ok)
		assert.InDelta(t, 0.5, score, 0.0001)
	})

	t.Run("hard failure still disqualifies without partial credit", func(t *testing.T) {
		request := requestWithCriteria(t, map[string]any{"chambres": 3})
		request.City = strPtr("Lyon")
		prop := &models.Property{City: strPtr("Paris")}
		facts := []models.DerivedFact{integerFact("attr-chambres", 3)}
		score, ok := scorer.Score(idx, request, prop, facts)
		assert.False(t, ok)
		assert.Equal(t, 0.0, score)
	})
}

func TestCriterionMatches(t *testing.T) {
	t.Run("numeric string criterion compares numerically", func(t *testing.T) {
		fact := integerFact("attr-chambres", 3)
		assert.True(t, criterionMatches(&fact, "3"))
		assert.False(t, criterionMatches(&fact, "4"))
	})

	t.Run("non-numeric string against numeric fact fails", func(t *testing.T) {
		fact := integerFact("attr-chambres", 3)
		assert.False(t, criterionMatches(&fact, "trois"))
	})

	t.Run("string comparison is case insensitive", func(t *testing.T) {
		fact := stringFact("attr-cloture", "Grillage")
		assert.True(t, criterionMatches(&fact, " grillage "))
		assert.False(t, criterionMatches(&fact, "béton"))
	})

	t.Run("boolean criterion requires the boolean slot", func(t *testing.T) {
		fact := booleanFact("attr-piscine", true)
		assert.True(t, criterionMatches(&fact, true))
		assert.False(t, criterionMatches(&fact, false))

		other := stringFact("attr-cloture", "true")
		assert.False(t, criterionMatches(&other, true))
	})

	t.Run("float criterion matches integer fact", func(t *testing.T) {
		fact := integerFact("attr-surface", 120)
		assert.True(t, criterionMatches(&fact, float64(120)))
		assert.False(t, criterionMatches(&fact, float64(121)))
	})
}
