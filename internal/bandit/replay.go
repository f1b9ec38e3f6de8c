package bandit

// ReplayEvent is the minimal shape C2 needs from an Interaction record
// to reconstruct model state: its feature vector and derived reward.
type ReplayEvent struct {
	FeatureVector []float64
	Reward        float64
}

// Replay reconstructs a fresh Model by folding events in timestamp order
// into a newly initialized model. Two independent replays of the same
// ordered event list are required (spec §8) to produce θ vectors that
// differ by no more than 1e-9 component-wise; Replay is deterministic
// because New and Update are both pure functions of their inputs.
func Replay(dim int, alpha float64, events []ReplayEvent) (*Model, error) {
	m := New(dim, alpha)
	interactions := 0
	for _, ev := range events {
		if err := m.Update(ev.FeatureVector, ev.Reward); err != nil {
			return nil, err
		}
		interactions++
		m.DecayAlpha(interactions)
	}
	return m, nil
}
