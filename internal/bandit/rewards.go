package bandit

import "github.com/temcen/linucb-fashion/pkg/models"

// Rewards is the configurable reward map. Love/Like/Dislike are fixed by
// spec §4.2; Skip and Neutral are the two §9 Open Questions, each
// resolved to a deployment-wide constant rather than switched silently.
type Rewards struct {
	Love    float64
	Like    float64
	Neutral float64
	Skip    float64
	Dislike float64
}

// DefaultRewards is this deployment's Open Question resolution: skip and
// neutral both map to 0.0 (see DESIGN.md).
var DefaultRewards = Rewards{
	Love:    RewardLove,
	Like:    RewardLike,
	Neutral: 0.0,
	Skip:    0.0,
	Dislike: RewardDislike,
}

// Of maps a user action to its scalar reward.
func (r Rewards) Of(action string) float64 {
	switch models.Action(action) {
	case models.ActionLove:
		return r.Love
	case models.ActionLike:
		return r.Like
	case models.ActionNeutral:
		return r.Neutral
	case models.ActionSkip:
		return r.Skip
	case models.ActionDislike:
		return r.Dislike
	default:
		return 0
	}
}
