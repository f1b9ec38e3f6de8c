// Package features implements C1, the deterministic map from a product's
// slotted attributes to a fixed-length binary feature vector.
package features

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/temcen/linucb-fashion/pkg/models"
)

var caser = cases.Lower(language.English)

func normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = caser.String(s)
	if folded, ok := synonyms[s]; ok {
		return folded
	}
	return s
}

func indexOf(vocab []string, v string) int {
	for i, c := range vocab {
		if c == v {
			return i
		}
	}
	return -1
}

// setSlot one-hot encodes value into vec[start:start+len(vocab)]. When
// value doesn't normalize to a vocabulary entry it falls back to def; an
// empty def leaves the slot all-zero (color and season per spec §4.1).
func setSlot(vec []float64, start int, vocab []string, value, def string) {
	v := normalize(value)
	idx := indexOf(vocab, v)
	if idx < 0 {
		if def == "" {
			return
		}
		idx = indexOf(vocab, def)
	}
	if idx >= 0 {
		vec[start+idx] = 1
	}
}

// Attributes is the slotted subset of a product record the extractor
// consumes; it is intentionally narrower than models.Product so tests
// and ingestion code can construct it without a full catalog row.
type Attributes struct {
	Category string
	Color    string
	Occasion string
	Season   string
	Style    string
}

// Extract deterministically maps a to its D=26 binary feature vector.
// Pure, total, and idempotent: the same Attributes always yields the
// same vector, and unknown/missing fields fall back to their documented
// defaults rather than erroring.
func Extract(a Attributes) []float64 {
	vec := make([]float64, models.FeatureDimensions)
	setSlot(vec, categoryStart, categoryVocab, a.Category, defaultCategory)
	setSlot(vec, colorStart, colorVocab, a.Color, "")
	setSlot(vec, occasionStart, occasionVocab, a.Occasion, defaultOccasion)
	setSlot(vec, seasonStart, seasonVocab, a.Season, "")
	setSlot(vec, styleStart, styleVocab, a.Style, defaultStyle)
	return vec
}

// ForProduct extracts the feature vector for a catalog product.
func ForProduct(p *models.Product) []float64 {
	return Extract(Attributes{
		Category: p.CategoryMain,
		Color:    p.PrimaryColor,
		Occasion: p.Occasion,
		Season:   p.Season,
		Style:    p.Style,
	})
}

// Valid reports whether vec satisfies the feature-vector-shape invariant:
// length D, entries in {0,1}, at least one entry set.
func Valid(vec []float64) bool {
	if len(vec) != models.FeatureDimensions {
		return false
	}
	sum := 0.0
	for _, v := range vec {
		if v != 0 && v != 1 {
			return false
		}
		sum += v
	}
	return sum >= 1
}
