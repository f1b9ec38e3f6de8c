package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/linucb-fashion/pkg/models"
)

func TestExtractKnownAttributes(t *testing.T) {
	vec := Extract(Attributes{
		Category: "Tops",
		Color:    "Blue",
		Occasion: "Casual",
		Season:   "Summer",
		Style:    "Classic",
	})
	require.Len(t, vec, models.FeatureDimensions)
	assert.Equal(t, 1.0, vec[categoryStart+0])
	assert.Equal(t, 1.0, vec[colorStart+3])
	assert.Equal(t, 1.0, vec[occasionStart+0])
	assert.Equal(t, 1.0, vec[seasonStart+1])
	assert.Equal(t, 1.0, vec[styleStart+0])
	assert.True(t, Valid(vec))
}

func TestExtractSynonymFolding(t *testing.T) {
	vec := Extract(Attributes{Category: "tops", Color: "Gray", Occasion: "casual", Style: "classic"})
	assert.Equal(t, 1.0, vec[colorStart+2], "gray should fold to grey")

	vec2 := Extract(Attributes{Category: "tops", Color: "Navy", Occasion: "casual", Style: "classic"})
	assert.Equal(t, 1.0, vec2[colorStart+3], "navy should fold to blue")
}

func TestExtractMissingFieldsUseDefaults(t *testing.T) {
	vec := Extract(Attributes{})
	assert.Equal(t, 1.0, vec[categoryStart+indexOf(categoryVocab, defaultCategory)])
	assert.Equal(t, 1.0, vec[occasionStart+indexOf(occasionVocab, defaultOccasion)])
	assert.Equal(t, 1.0, vec[styleStart+indexOf(styleVocab, defaultStyle)])

	colorSum, seasonSum := 0.0, 0.0
	for i := colorStart; i < colorStart+len(colorVocab); i++ {
		colorSum += vec[i]
	}
	for i := seasonStart; i < seasonStart+len(seasonVocab); i++ {
		seasonSum += vec[i]
	}
	assert.Zero(t, colorSum, "unknown color leaves the slot all-zero")
	assert.Zero(t, seasonSum, "unknown season leaves the slot all-zero")
	assert.True(t, Valid(vec))
}

func TestExtractUnknownCategoryFallsBackToTops(t *testing.T) {
	vec := Extract(Attributes{Category: "spaceships", Occasion: "casual", Style: "classic"})
	assert.Equal(t, 1.0, vec[categoryStart+indexOf(categoryVocab, defaultCategory)])
}

func TestExtractDeterministicAndIdempotent(t *testing.T) {
	a := Attributes{Category: "Dresses", Color: "Pink", Occasion: "Party", Season: "Fall", Style: "Bohemian"}
	v1 := Extract(a)
	v2 := Extract(a)
	assert.Equal(t, v1, v2)
}

func TestValidRejectsWrongShape(t *testing.T) {
	assert.False(t, Valid(make([]float64, models.FeatureDimensions-1)))
	assert.False(t, Valid(make([]float64, models.FeatureDimensions)), "all-zero has sum 0, fails Σ>=1")

	bad := make([]float64, models.FeatureDimensions)
	bad[0] = 0.5
	assert.False(t, Valid(bad))
}

func TestSlotNameRoundTrip(t *testing.T) {
	assert.Equal(t, "category:tops", SlotName(categoryStart))
	assert.Equal(t, "color:blue", SlotName(colorStart+3))
	assert.Equal(t, "unknown", SlotName(-1))
	assert.Equal(t, "unknown", SlotName(models.FeatureDimensions))
}
