package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/bandit"
	"github.com/temcen/linucb-fashion/internal/cache"
	"github.com/temcen/linucb-fashion/internal/diversity"
	"github.com/temcen/linucb-fashion/internal/features"
	"github.com/temcen/linucb-fashion/internal/messaging"
	"github.com/temcen/linucb-fashion/internal/store"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// FeedbackProcessor is C6. Guard (C7) and rate-limit (C8) checks happen
// in middleware before this is invoked; FeedbackProcessor assumes the
// request already passed those and handles only steps 2-10 of spec
// §4.6.
type FeedbackProcessor struct {
	store      store.Store
	cache      *cache.Cache
	rewards    bandit.Rewards
	publisher  *messaging.Publisher
	locks      *sessionLocks
	logger     *logrus.Logger
	historyMax int
}

func NewFeedbackProcessor(st store.Store, c *cache.Cache, rewards bandit.Rewards, pub *messaging.Publisher, locks *sessionLocks, historyMax int, logger *logrus.Logger) *FeedbackProcessor {
	return &FeedbackProcessor{store: st, cache: c, rewards: rewards, publisher: pub, locks: locks, historyMax: historyMax, logger: logger}
}

// Process applies one feedback event per spec §4.6 steps 2-10.
func (f *FeedbackProcessor) Process(ctx context.Context, sessionID uuid.UUID, productID, action string) (*models.FeedbackResponse, error) {
	if !models.ValidAction(action) {
		return nil, apperr.New(apperr.KindValidation, "action must be one of love|like|dislike|skip|neutral").
			WithDetails(map[string]interface{}{"field": "action", "value": action})
	}

	release := f.locks.Lock(sessionID)
	defer release()

	sess, err := f.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	product, err := f.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	vec := features.ForProduct(product)
	if !features.Valid(vec) {
		return nil, apperr.New(apperr.KindValidation, "product has an invalid feature vector: "+productID)
	}

	now := time.Now()
	if err := f.store.SetAction(ctx, sessionID, productID, action, now); err != nil {
		return nil, apperr.Wrap(err, "failed to set action on history entry")
	}

	priorInteractions, err := f.store.List(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load interaction log")
	}
	model, err := replayModel(sess, priorInteractions)
	if err != nil {
		return nil, err
	}

	scoreBefore, err := model.UCB(vec)
	if err != nil {
		return nil, err
	}

	reward := f.rewards.Of(action)
	if err := model.Update(vec, reward); err != nil {
		return nil, err
	}

	scoreAfter, err := model.UCB(vec)
	if err != nil {
		return nil, err
	}

	interaction := &models.Interaction{
		SessionID:     sessionID,
		ProductID:     productID,
		Action:        action,
		Reward:        reward,
		FeatureVector: vec,
		ScoreBefore:   scoreBefore,
		ScoreAfter:    scoreAfter,
		Timestamp:     now,
	}
	if err := f.store.Append(ctx, interaction); err != nil {
		// set_action already landed; the interaction append is the second
		// half of this cross-collection write. Surface loudly rather than
		// silently leave the history entry's action ahead of the log.
		f.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"product_id": productID,
			"action":     action,
		}).Error("interaction append failed after set_action committed, history/log now inconsistent")
		return nil, apperr.Wrap(err, "failed to append interaction")
	}

	if err := f.store.Touch(ctx, sessionID, now); err != nil {
		return nil, apperr.Wrap(err, "failed to touch session")
	}
	sess.TotalInteractions++

	if f.cache != nil {
		f.cache.InvalidateSession(sessionID.String())
	}

	if f.publisher != nil {
		f.publisher.Publish(ctx, messaging.FeedbackRecorded{
			SessionID:   sessionID.String(),
			ProductID:   productID,
			Action:      action,
			Reward:      reward,
			ScoreBefore: scoreBefore,
			ScoreAfter:  scoreAfter,
			Timestamp:   now,
		})
	}

	diversityStats := f.diversityStats(ctx, sessionID)
	return f.shapeResponse(sess, model, reward, scoreBefore, scoreAfter, sess.Alpha, diversityStats), nil
}

// diversityStats resolves the session's current history into the facet
// counts the feedback response surfaces; best-effort, logs and returns
// a zero value on failure rather than failing an otherwise-successful
// feedback call.
func (f *FeedbackProcessor) diversityStats(ctx context.Context, sessionID uuid.UUID) models.DiversityStats {
	history, err := f.store.GetHistory(ctx, sessionID, f.historyMax)
	if err != nil {
		f.logger.WithError(err).Warn("failed to load history for diversity stats")
		return models.DiversityStats{}
	}

	entries := make([]diversity.HistoryEntry, 0, len(history))
	for _, h := range history {
		p, err := f.store.GetProduct(ctx, h.ProductID)
		if err != nil {
			continue
		}
		entries = append(entries, diversity.HistoryEntry{ProductID: h.ProductID, Product: p})
	}
	snap := diversity.BuildPreferenceSnapshot(entries)
	return models.DiversityStats{
		SeenCategories: len(snap.SeenCategories),
		SeenColors:     len(snap.SeenColors),
		SeenBrands:     len(snap.SeenBrands),
	}
}

func (f *FeedbackProcessor) shapeResponse(sess *models.Session, model *bandit.Model, reward, scoreBefore, scoreAfter, alpha float64, diversityStats models.DiversityStats) *models.FeedbackResponse {
	theta := model.Theta()
	posIdx, negIdx := bandit.TopKComponents(theta, 3)

	positive := make([]string, 0, len(posIdx))
	for _, i := range posIdx {
		positive = append(positive, features.SlotName(i))
	}
	negative := make([]string, 0, len(negIdx))
	for _, i := range negIdx {
		negative = append(negative, features.SlotName(i))
	}

	return &models.FeedbackResponse{
		Success: true,
		LearningUpdate: models.LearningUpdate{
			ScoreBefore: scoreBefore,
			ScoreAfter:  scoreAfter,
			Reward:      reward,
			Alpha:       alpha,
		},
		UserInsights: models.UserInsights{
			TopPositiveSlots: positive,
			TopNegativeSlots: negative,
			ConfidenceTier:   bandit.ConfidenceTier(sess.TotalInteractions, model.NormTheta()),
			NormTheta:        model.NormTheta(),
		},
		DiversityStats: diversityStats,
		ScoreEvolution: models.ScoreEvolution{
			ScoreBefore: scoreBefore,
			ScoreAfter:  scoreAfter,
			Delta:       scoreAfter - scoreBefore,
		},
	}
}
