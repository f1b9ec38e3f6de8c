// Package diversity implements C4: the exclusion set, avoidance rules,
// candidate filter, diversity/exploration bonuses, and top-K stochastic
// pick. Shaped after the teacher's diversity_filter.go pipeline (build
// facet sets, apply filters in sequence, score, select) but replaces its
// intra-list/temporal/serendipity filters with the exact formulas of
// spec §4.4.
package diversity

import (
	"math"
	"math/rand"
	"sort"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// Tuning constants from spec §4.4.
const (
	ExclusionWindow = 20
	TopK            = 5
	CategoryLimit   = 3
	ColorLimit      = 2
	BrandLimit      = 3
	PoolSize        = 200
)

// PreferenceSnapshot is U, the current user-preference snapshot of seen
// categories/colors/brands, derived from session history.
type PreferenceSnapshot struct {
	SeenCategories map[string]struct{}
	SeenColors     map[string]struct{}
	SeenBrands     map[string]struct{}
}

// AvoidanceRules are the temporary per-facet filters derived from the
// loved subset of the 10 most recent entries.
type AvoidanceRules struct {
	Category string
	Color    string
	Brand    string
}

// facetCounts examines only the loved items among the 10 most recent
// history entries and counts occurrences per facet value.
type facetCounts struct {
	category map[string]int
	color    map[string]int
	brand    map[string]int
}

// HistoryEntry is the minimal shape the controller needs from a session
// history row plus its resolved product, decoupling this package from
// the store's concrete types.
type HistoryEntry struct {
	ProductID string
	Action    string
	Product   *models.Product
}

// BuildExclusionSet returns the product IDs of the W_excl most recent
// entries (newest-first ordering assumed).
func BuildExclusionSet(historyNewestFirst []string) map[string]struct{} {
	n := ExclusionWindow
	if n > len(historyNewestFirst) {
		n = len(historyNewestFirst)
	}
	set := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		set[historyNewestFirst[i]] = struct{}{}
	}
	return set
}

// BuildPreferenceSnapshot derives U from the full resolved history:
// every product the session has seen/loved contributes its facets.
func BuildPreferenceSnapshot(entries []HistoryEntry) PreferenceSnapshot {
	snap := PreferenceSnapshot{
		SeenCategories: map[string]struct{}{},
		SeenColors:     map[string]struct{}{},
		SeenBrands:     map[string]struct{}{},
	}
	for _, e := range entries {
		if e.Product == nil {
			continue
		}
		snap.SeenCategories[e.Product.CategoryMain] = struct{}{}
		snap.SeenColors[e.Product.PrimaryColor] = struct{}{}
		snap.SeenBrands[e.Product.Brand] = struct{}{}
	}
	return snap
}

// BuildAvoidanceRules examines only the loved subset of the 10 most
// recent entries. For each facet, the value with the highest count among
// loved items is marked "avoid" if that count meets the facet's limit; at
// most one value per facet is marked, so a second value that also meets
// the limit is not avoided.
func BuildAvoidanceRules(recentEntries []HistoryEntry) AvoidanceRules {
	recent := recentEntries
	if len(recent) > 10 {
		recent = recent[:10]
	}

	counts := facetCounts{category: map[string]int{}, color: map[string]int{}, brand: map[string]int{}}
	for _, e := range recent {
		if e.Action != string(models.ActionLove) || e.Product == nil {
			continue
		}
		counts.category[e.Product.CategoryMain]++
		counts.color[e.Product.PrimaryColor]++
		counts.brand[e.Product.Brand]++
	}

	var rules AvoidanceRules
	rules.Category = mostFrequentAtLimit(counts.category, CategoryLimit)
	rules.Color = mostFrequentAtLimit(counts.color, ColorLimit)
	rules.Brand = mostFrequentAtLimit(counts.brand, BrandLimit)
	return rules
}

func mostFrequentAtLimit(counts map[string]int, limit int) string {
	best, bestN := "", 0
	for facet, n := range counts {
		if n >= limit && n > bestN {
			best, bestN = facet, n
		}
	}
	return best
}

// Scored is a candidate product paired with its UCB and bonus
// breakdown, ready for the stochastic top-K pick.
type Scored struct {
	Product          *models.Product
	UCB              float64
	DiversityBonus   float64
	ExplorationBonus float64
	Final            float64
}

// DiversityBonus computes spec §4.4's per-candidate diversity term.
func DiversityBonus(p *models.Product, seen PreferenceSnapshot) float64 {
	bonus := 0.0
	if _, ok := seen.SeenCategories[p.CategoryMain]; !ok {
		bonus += 0.20
	}
	if _, ok := seen.SeenColors[p.PrimaryColor]; !ok {
		bonus += 0.15
	}
	if _, ok := seen.SeenBrands[p.Brand]; !ok {
		bonus += 0.10
	}
	return bonus
}

// ExplorationBonus computes max(0.05, 0.30 - 0.01*totalInteractions).
func ExplorationBonus(totalInteractions int) float64 {
	return math.Max(0.05, 0.30-0.01*float64(totalInteractions))
}

// Rank sorts candidates by Final descending and returns them.
func Rank(candidates []Scored) []Scored {
	out := append([]Scored(nil), candidates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Final > out[j].Final })
	return out
}

// PickTopK uniformly samples `count` distinct candidates from the top
// topK (or top-N when N is requested) of a ranked list, per spec §4.4's
// "Top-K stochastic selection". If the ranked pool is smaller than
// count, all of it is returned and the caller must mark the response
// partial.
func PickTopK(ranked []Scored, topK, count int, rng *rand.Rand) ([]Scored, error) {
	if len(ranked) == 0 {
		return nil, apperr.New(apperr.KindNoCandidates, "no candidates remain after exclusion, avoidance and filters")
	}
	if topK <= 0 {
		topK = TopK
	}
	pool := ranked
	if topK < len(pool) {
		pool = pool[:topK]
	}

	picked := make([]Scored, 0, count)
	remaining := append([]Scored(nil), pool...)

	for len(picked) < count && len(remaining) > 0 {
		idx := rng.Intn(len(remaining))
		picked = append(picked, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	// If the pool was exhausted before reaching count, draw the rest
	// from whatever of `ranked` wasn't already picked, preserving "no
	// intra-recommendation duplication".
	if len(picked) < count {
		pickedIDs := make(map[string]struct{}, len(picked))
		for _, p := range picked {
			pickedIDs[p.Product.ProductID] = struct{}{}
		}
		for _, c := range ranked {
			if len(picked) >= count {
				break
			}
			if _, ok := pickedIDs[c.Product.ProductID]; ok {
				continue
			}
			picked = append(picked, c)
			pickedIDs[c.Product.ProductID] = struct{}{}
		}
	}

	return picked, nil
}
