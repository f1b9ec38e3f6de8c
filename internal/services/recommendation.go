// Package services implements C5 (Recommendation Orchestrator) and C6
// (Feedback Processor): the two request-scoped operations that compose
// every leaf component (features, bandit, store, diversity, guard,
// cache) into the two mutating/scoring flows of spec §4.5-4.6.
// Grounded on the teacher's internal/services/recommendation_orchestrator.go
// and feedback_processor.go for the overall "load -> derive -> fetch ->
// score -> select -> record" shape, replacing their multi-algorithm
// ensemble and Redis/Neo4j fan-out with the single LinUCB + diversity
// pipeline this spec specifies.
package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/bandit"
	"github.com/temcen/linucb-fashion/internal/cache"
	"github.com/temcen/linucb-fashion/internal/diversity"
	"github.com/temcen/linucb-fashion/internal/features"
	"github.com/temcen/linucb-fashion/internal/store"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// RecommendationConfig tunes C5 independently of the diversity
// controller's own constants (history retention, candidate pool size).
type RecommendationConfig struct {
	HistoryMax int // H_max, 100
	PoolSize   int // candidate sample ceiling, 200
}

var DefaultRecommendationConfig = RecommendationConfig{
	HistoryMax: 100,
	PoolSize:   diversity.PoolSize,
}

// Orchestrator is C5.
type Orchestrator struct {
	store  store.Store
	cache  *cache.Cache
	cfg    RecommendationConfig
	locks  *sessionLocks
	logger *logrus.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewOrchestrator(st store.Store, c *cache.Cache, cfg RecommendationConfig, locks *sessionLocks, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:  st,
		cache:  c,
		cfg:    cfg,
		locks:  locks,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (o *Orchestrator) nextRand() *rand.Rand {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return rand.New(rand.NewSource(o.rng.Int63()))
}

// Recommend is the `recommend(session_id, filters, count)` operation of
// spec §4.5.
func (o *Orchestrator) Recommend(ctx context.Context, sessionID uuid.UUID, filters models.RecommendFilters, count int) (*models.RecommendResponse, error) {
	if count <= 0 {
		count = 1
	}

	release := o.locks.Lock(sessionID)
	defer release()

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionActive {
		return nil, apperr.New(apperr.KindSessionInactive, "session is inactive: "+sessionID.String())
	}

	history, err := o.store.GetHistory(ctx, sessionID, o.cfg.HistoryMax)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load session history")
	}

	var cacheKey string
	if o.cache != nil {
		cacheKey = cache.Key{SessionID: sessionID.String(), Filters: filterMap(filters), Count: count, HistoryLength: len(history)}.Hash()
		if body, hit := o.cache.Get(cacheKey); hit {
			if resp, err := decodeRecommendResponse(body); err == nil {
				return resp, nil
			}
		}
	}

	diversityEntries, excludedIDs := o.resolveHistory(ctx, history)
	snapshot := diversity.BuildPreferenceSnapshot(diversityEntries)
	avoidance := diversity.BuildAvoidanceRules(diversityEntries)
	exclusionSet := diversity.BuildExclusionSet(excludedIDs)

	query := models.ProductQuery{
		MinPrice:      filters.MinPrice,
		MaxPrice:      filters.MaxPrice,
		Category:      filters.Category,
		ExcludeIDs:    exclusionSet,
		AvoidCategory: avoidance.Category,
		AvoidColor:    avoidance.Color,
		AvoidBrand:    avoidance.Brand,
	}

	candidates, err := o.store.Sample(ctx, query, o.cfg.PoolSize)
	if err != nil {
		jitter := time.Duration(o.nextRand().Intn(50)) * time.Millisecond
		time.Sleep(jitter)
		candidates, err = o.store.Sample(ctx, query, o.cfg.PoolSize)
		if err != nil {
			return nil, apperr.Wrap(err, "failed to sample candidate products")
		}
	}

	interactions, err := o.store.List(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load interaction log")
	}
	model, err := replayModel(sess, interactions)
	if err != nil {
		return nil, err
	}

	scored := make([]diversity.Scored, 0, len(candidates))
	for _, p := range candidates {
		vec := features.ForProduct(p)
		if !features.Valid(vec) {
			o.logger.WithField("product_id", p.ProductID).Warn("dropping candidate with invalid feature vector")
			continue
		}
		ucb, err := model.UCB(vec)
		if err != nil {
			return nil, err
		}
		div := diversity.DiversityBonus(p, snapshot)
		expl := diversity.ExplorationBonus(sess.TotalInteractions)
		scored = append(scored, diversity.Scored{
			Product:          p,
			UCB:              ucb,
			DiversityBonus:   div,
			ExplorationBonus: expl,
			Final:            ucb + div + expl,
		})
	}

	ranked := diversity.Rank(scored)
	picked, err := diversity.PickTopK(ranked, diversity.TopK, count, o.nextRand())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, p := range picked {
		if err := o.store.RecordShown(ctx, sessionID, p.Product.ProductID, now, o.cfg.HistoryMax); err != nil {
			return nil, apperr.Wrap(err, "failed to record shown product")
		}
	}

	confidenceTier := bandit.ConfidenceTier(sess.TotalInteractions, model.NormTheta())
	resp := o.shapeResponse(sess, picked, count, exclusionSet, avoidance, filters, confidenceTier)

	if o.cache != nil {
		if body, err := encodeRecommendResponse(resp); err == nil {
			o.cache.Set(sessionID.String(), cacheKey, body)
		}
	}

	return resp, nil
}

// resolveHistory fetches the resolved products for history entries
// (needed for the diversity controller's facet snapshots) and returns
// the newest-first product-ID list for exclusion-set construction.
func (o *Orchestrator) resolveHistory(ctx context.Context, history []*models.SessionHistoryEntry) ([]diversity.HistoryEntry, []string) {
	entries := make([]diversity.HistoryEntry, 0, len(history))
	ids := make([]string, 0, len(history))
	productCache := make(map[string]*models.Product)

	for _, h := range history {
		ids = append(ids, h.ProductID)

		p, ok := productCache[h.ProductID]
		if !ok {
			fetched, err := o.store.GetProduct(ctx, h.ProductID)
			if err != nil {
				o.logger.WithField("product_id", h.ProductID).Warn("history references missing product")
				continue
			}
			p = fetched
			productCache[h.ProductID] = p
		}

		action := ""
		if h.UserAction != nil {
			action = *h.UserAction
		}
		entries = append(entries, diversity.HistoryEntry{ProductID: h.ProductID, Action: action, Product: p})
	}
	return entries, ids
}

func (o *Orchestrator) shapeResponse(sess *models.Session, picked []diversity.Scored, requested int, exclusionSet map[string]struct{}, avoidance diversity.AvoidanceRules, filters models.RecommendFilters, confidenceTier string) *models.RecommendResponse {
	excludedList := make([]string, 0, len(exclusionSet))
	for id := range exclusionSet {
		excludedList = append(excludedList, id)
	}

	reasoning := "LinUCB-scored candidate balancing confidence and diversity"
	if sess.TotalInteractions == 0 {
		reasoning = "exploring: no prior feedback yet, ranking by confidence bound and diversity bonus alone"
	}

	recs := make([]models.RecommendedProduct, 0, len(picked))
	for _, s := range picked {
		recs = append(recs, models.RecommendedProduct{
			Product:          s.Product,
			ConfidenceScore:  s.Final,
			BaseScore:        s.UCB,
			DiversityBonus:   s.DiversityBonus,
			ExplorationBonus: s.ExplorationBonus,
			Algorithm:        "LinUCB",
			Reasoning:        reasoning,
		})
	}

	resp := &models.RecommendResponse{
		Success: true,
		Partial: len(recs) < requested,
		UserStats: models.UserStats{
			ProductsSeen:      len(exclusionSet) + len(picked),
			TotalInteractions: sess.TotalInteractions,
			ConfidenceTier:    confidenceTier,
		},
		DiversityInfo: models.DiversityInfo{
			ExcludedProducts: excludedList,
			AvoidedCategory:  avoidance.Category,
			AvoidedColor:     avoidance.Color,
			AvoidedBrand:     avoidance.Brand,
		},
		FiltersApplied: filters,
	}

	if requested == 1 && len(recs) == 1 {
		resp.Recommendation = &recs[0]
	} else {
		resp.Recommendations = recs
	}

	return resp
}

func filterMap(f models.RecommendFilters) map[string]string {
	m := map[string]string{"category": f.Category}
	if f.MinPrice != nil {
		m["minPrice"] = fmt.Sprintf("%v", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		m["maxPrice"] = fmt.Sprintf("%v", *f.MaxPrice)
	}
	return m
}

// replayModel reconstructs a session's LinUCB state by replaying its
// interaction log, per spec §4.2's serialization contract.
func replayModel(sess *models.Session, interactions []*models.Interaction) (*bandit.Model, error) {
	events := make([]bandit.ReplayEvent, 0, len(interactions))
	for _, i := range interactions {
		events = append(events, bandit.ReplayEvent{FeatureVector: i.FeatureVector, Reward: i.Reward})
	}
	return bandit.Replay(sess.Dimensions, sess.Alpha, events)
}
