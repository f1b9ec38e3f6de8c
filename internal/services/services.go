// Package services composes the leaf components (store, cache, guard,
// rate limiter, bandit rewards, messaging) into the two request-scoped
// operations C5 (Orchestrator) and C6 (FeedbackProcessor), plus the
// session-creation operation the HTTP layer also needs. Grounded on the
// teacher's internal/services.New wiring shape (one constructor
// building every service from Config + a shared logger + a database
// handle).
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/bandit"
	"github.com/temcen/linucb-fashion/internal/cache"
	"github.com/temcen/linucb-fashion/internal/config"
	"github.com/temcen/linucb-fashion/internal/features"
	"github.com/temcen/linucb-fashion/internal/guard"
	"github.com/temcen/linucb-fashion/internal/messaging"
	"github.com/temcen/linucb-fashion/internal/ratelimit"
	"github.com/temcen/linucb-fashion/internal/store"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// Services aggregates every component the HTTP handlers depend on.
type Services struct {
	Store         store.Store
	Cache         *cache.Cache
	Guard         *guard.Guard
	RateLimit     *ratelimit.Limiter
	Orchestrator  *Orchestrator
	Feedback      *FeedbackProcessor
	Publisher     *messaging.Publisher
	SessionConfig config.SessionConfig
	HistoryMax    int
}

// New wires every component from cfg, a shared store, and a logger.
func New(cfg *config.Config, st store.Store, logger *logrus.Logger) *Services {
	c := cache.New(cache.Config{
		Enabled:    cfg.Cache.Enabled,
		TTL:        cfg.Cache.DefaultTTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	g := guard.New(guard.Config{
		WindowGeneral:     cfg.Guard.WindowGeneral,
		WindowSame:        cfg.Guard.WindowSame,
		WindowRapid:       cfg.Guard.WindowRapid,
		WindowIdempotency: cfg.Guard.WindowIdempotency,
		CleanupInterval:   cfg.Guard.CleanupInterval,
	})

	rules := make(map[ratelimit.Class]ratelimit.Rule, len(cfg.RateLimit.Classes))
	for name, cls := range cfg.RateLimit.Classes {
		rules[ratelimit.Class(name)] = ratelimit.Rule{Window: cls.Window, Max: cls.Max}
	}
	rl := ratelimit.New(rules, cfg.RateLimit.IPWhitelist)

	publisher := messaging.NewPublisher(cfg.Kafka.Brokers, logger)

	rewards := bandit.Rewards{
		Love:    cfg.Reward.Love,
		Like:    cfg.Reward.Like,
		Neutral: cfg.Reward.Neutral,
		Skip:    cfg.Reward.Skip,
		Dislike: cfg.Reward.Dislike,
	}

	locks := newSessionLocks()

	orchestrator := NewOrchestrator(st, c, RecommendationConfig{
		HistoryMax: cfg.History.MaxEntries,
		PoolSize:   cfg.Diversity.PoolSize,
	}, locks, logger)

	feedback := NewFeedbackProcessor(st, c, rewards, publisher, locks, cfg.History.MaxEntries, logger)

	return &Services{
		Store:         st,
		Cache:         c,
		Guard:         g,
		RateLimit:     rl,
		Orchestrator:  orchestrator,
		Feedback:      feedback,
		Publisher:     publisher,
		SessionConfig: cfg.Session,
		HistoryMax:    cfg.History.MaxEntries,
	}
}

// CreateSession builds and persists a new Session per spec §3/§6's
// POST /api/session, with diversity's tunable constants applied
// implicitly via the Orchestrator/FeedbackProcessor that read this
// session back.
func (s *Services) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId is required").
			WithDetails(map[string]interface{}{"field": "userId"})
	}

	now := time.Now()
	sess := &models.Session{
		SessionID:         uuid.New(),
		UserID:            userID,
		Alpha:             s.SessionConfig.AlphaDefault,
		Dimensions:        s.SessionConfig.DimFeatures,
		TotalInteractions: 0,
		Status:            models.SessionActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return nil, apperr.Wrap(err, "failed to create session")
	}
	return sess, nil
}

// DebugScore computes the current LinUCB score for (sessionID,
// productID) without mutating any state, backing the supplemented
// debug endpoint (SPEC_FULL §12).
func (s *Services) DebugScore(ctx context.Context, sessionID uuid.UUID, productID string) (expectedReward, confidence, ucb float64, err error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return 0, 0, 0, err
	}
	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return 0, 0, 0, err
	}
	interactions, err := s.Store.List(ctx, sessionID)
	if err != nil {
		return 0, 0, 0, apperr.Wrap(err, "failed to load interaction log")
	}
	model, err := replayModel(sess, interactions)
	if err != nil {
		return 0, 0, 0, err
	}

	vec := features.ForProduct(product)
	expectedReward = model.ExpectedReward(vec)
	confidence, err = model.Confidence(vec)
	if err != nil {
		return 0, 0, 0, err
	}
	return expectedReward, confidence, expectedReward + confidence, nil
}
