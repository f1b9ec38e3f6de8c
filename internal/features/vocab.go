package features

import "github.com/temcen/linucb-fashion/pkg/models"

// Slot layout, anchored to spec §4.1 and the feature-slot-assignment
// Open Question decision in DESIGN.md: category 0-4, color 5-12,
// occasion 13-16, season 17-20, style 21-25. Changing the order of any
// vocabulary below is a feature-store migration, not a refactor.
const (
	categoryStart = 0
	colorStart    = 5
	occasionStart = 13
	seasonStart   = 17
	styleStart    = 21
)

var categoryVocab = []string{"tops", "bottoms", "dresses", "shoes", "accessories"}
var colorVocab = []string{"black", "white", "grey", "blue", "red", "green", "brown", "pink"}
var occasionVocab = []string{"casual", "formal", "athletic", "party"}
var seasonVocab = []string{"spring", "summer", "fall", "winter"}
var styleVocab = []string{"classic", "modern", "bohemian", "minimalist", "streetwear"}

const (
	defaultCategory = "tops"
	defaultOccasion = "casual"
	defaultStyle    = "classic"
)

// synonyms folds common spellings/aliases onto the closed vocabularies
// above before lookup. Color is the only slot with a meaningfully large
// alias set in fashion catalogs, so it is the only table listed in spec
// §4.1's example ("gray"→"grey", "navy"→"blue").
var synonyms = map[string]string{
	"gray":     "grey",
	"navy":     "blue",
	"ivory":    "white",
	"charcoal": "grey",
	"tan":      "brown",
	"rose":     "pink",
	"olive":    "green",
	"maroon":   "red",
	"scarlet":  "red",
	"crimson":  "red",
	"cream":    "white",
}

// slotNames, in feature-vector index order, for insight/explanation
// reporting (C2's top-k θ components mapped back to slot names).
var slotNames = buildSlotNames()

func buildSlotNames() []string {
	names := make([]string, models.FeatureDimensions)
	fill := func(start int, vocab []string, prefix string) {
		for i, v := range vocab {
			names[start+i] = prefix + ":" + v
		}
	}
	fill(categoryStart, categoryVocab, "category")
	fill(colorStart, colorVocab, "color")
	fill(occasionStart, occasionVocab, "occasion")
	fill(seasonStart, seasonVocab, "season")
	fill(styleStart, styleVocab, "style")
	return names
}

// SlotName returns the human-readable name of feature index i, e.g.
// "color:blue", used when mapping θ components back to explanations.
func SlotName(i int) string {
	if i < 0 || i >= len(slotNames) {
		return "unknown"
	}
	return slotNames[i]
}
