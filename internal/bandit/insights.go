package bandit

import "sort"

// ConfidenceTier buckets a session's learning progress per the table in
// spec §4.2.
func ConfidenceTier(totalInteractions int, normTheta float64) string {
	switch {
	case totalInteractions >= 20 && normTheta > 1.0:
		return "very_high"
	case totalInteractions >= 10 && normTheta > 0.5:
		return "high"
	case totalInteractions >= 5 && normTheta > 0.3:
		return "medium"
	case totalInteractions >= 3:
		return "low"
	default:
		return "very_low"
	}
}

// TopKComponents returns the indices of the k largest and k most
// negative θ components, each sorted by magnitude descending, for
// mapping back to slot names in the insights response. Zero components
// are excluded from both lists.
func TopKComponents(theta []float64, k int) (positive []int, negative []int) {
	type idxVal struct {
		idx int
		val float64
	}
	pos := make([]idxVal, 0, len(theta))
	neg := make([]idxVal, 0, len(theta))
	for i, v := range theta {
		switch {
		case v > 0:
			pos = append(pos, idxVal{i, v})
		case v < 0:
			neg = append(neg, idxVal{i, v})
		}
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i].val > pos[j].val })
	sort.Slice(neg, func(i, j int) bool { return neg[i].val < neg[j].val })

	if k < len(pos) {
		pos = pos[:k]
	}
	if k < len(neg) {
		neg = neg[:k]
	}
	for _, p := range pos {
		positive = append(positive, p.idx)
	}
	for _, n := range neg {
		negative = append(negative, n.idx)
	}
	return positive, negative
}
