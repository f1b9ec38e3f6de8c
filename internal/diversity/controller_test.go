package diversity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/pkg/models"
)

func product(id, category, color, brand string) *models.Product {
	return &models.Product{ProductID: id, CategoryMain: category, PrimaryColor: color, Brand: brand}
}

func TestBuildExclusionSetCapsAtWindow(t *testing.T) {
	ids := make([]string, 30)
	for i := range ids {
		ids[i] = "P" + string(rune('A'+i))
	}
	set := BuildExclusionSet(ids)
	assert.Len(t, set, ExclusionWindow)
	for i := 0; i < ExclusionWindow; i++ {
		_, ok := set[ids[i]]
		assert.True(t, ok)
	}
}

func TestBuildAvoidanceRulesOnlyCountsLovedWithinTen(t *testing.T) {
	entries := []HistoryEntry{
		{Action: "love", Product: product("1", "tops", "blue", "acme")},
		{Action: "love", Product: product("2", "tops", "red", "acme")},
		{Action: "love", Product: product("3", "tops", "green", "other")},
		{Action: "like", Product: product("4", "tops", "grey", "acme")}, // not loved, doesn't count
	}
	rules := BuildAvoidanceRules(entries)
	assert.Equal(t, "tops", rules.Category, "3 loved tops meets the category limit of 3")
	assert.Equal(t, "", rules.Color, "no color reaches the limit of 2 among loved items")
	assert.Equal(t, "", rules.Brand, "acme appears in only 2 loved items, brand limit is 3")
}

func TestDiversityBonusComponents(t *testing.T) {
	seen := PreferenceSnapshot{
		SeenCategories: map[string]struct{}{"tops": {}},
		SeenColors:     map[string]struct{}{"blue": {}},
		SeenBrands:     map[string]struct{}{},
	}
	p := product("1", "bottoms", "blue", "acme")
	bonus := DiversityBonus(p, seen)
	assert.InDelta(t, 0.20+0.10, bonus, 1e-9, "new category + new brand, color already seen")
}

func TestExplorationBonusBounds(t *testing.T) {
	assert.InDelta(t, 0.30, ExplorationBonus(0), 1e-9)
	assert.InDelta(t, 0.05, ExplorationBonus(1000), 1e-9, "never below the 0.05 floor")
}

func TestPickTopKNoDuplicatesAndExhaustsPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ranked := Rank([]Scored{
		{Product: product("1", "a", "b", "c"), Final: 5},
		{Product: product("2", "a", "b", "c"), Final: 4},
		{Product: product("3", "a", "b", "c"), Final: 3},
	})

	picked, err := PickTopK(ranked, TopK, 3, rng)
	require.NoError(t, err)
	seen := map[string]struct{}{}
	for _, p := range picked {
		_, dup := seen[p.Product.ProductID]
		assert.False(t, dup, "no intra-recommendation duplication")
		seen[p.Product.ProductID] = struct{}{}
	}
	assert.Len(t, picked, 3)
}

func TestPickTopKEmptyPoolIsNoCandidates(t *testing.T) {
	_, err := PickTopK(nil, TopK, 1, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	ae, ok := err.(*apperr.Error)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNoCandidates, ae.Kind)
}
