package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/linucb-fashion/internal/config"
	"github.com/temcen/linucb-fashion/internal/middleware"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			AlphaDefault: 1.0,
			AlphaMin:     0.05,
			AlphaMax:     2.0,
			AlphaDecay:   0.95,
			DimFeatures:  models.FeatureDimensions,
		},
		Reward: config.RewardConfig{Love: 2.0, Like: 1.0, Neutral: 0.0, Skip: 0.0, Dislike: -1.0},
		Guard: config.GuardConfig{
			WindowGeneral:     30 * time.Second,
			WindowSame:        60 * time.Second,
			WindowRapid:       5 * time.Second,
			WindowIdempotency: 24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			Classes: map[string]config.RateLimitClass{
				"session":   {Window: time.Minute, Max: 1000},
				"recommend": {Window: time.Minute, Max: 1000},
				"feedback":  {Window: time.Minute, Max: 1000},
				"batch":     {Window: time.Minute, Max: 1000},
				"general":   {Window: time.Minute, Max: 1000},
			},
		},
		Cache:     config.CacheConfig{Enabled: true, DefaultTTL: 5 * time.Minute, MaxEntries: 100},
		Diversity: config.DiversityConfig{ExclusionWindow: 20, TopK: 5, CategoryLimit: 3, ColorLimit: 2, BrandLimit: 3, PoolSize: 200},
		History:   config.HistoryConfig{MaxEntries: 100},
		API:       config.APIConfig{CurrentVersion: 1, SupportedVersions: []int{1}},
		Debug:     config.DebugConfig{EnableDebugRoutes: true},
	}
}

type testAPI struct {
	router *gin.Engine
	store  *memStore
	svc    *services.Services
}

func newTestAPI(t *testing.T, cfg *config.Config) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	st := newMemStore()
	svc := services.New(cfg, st, logger)

	h, err := New(cfg, svc, nil, logger)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Version(cfg.API.CurrentVersion, cfg.API.SupportedVersions))

	api := router.Group("/api")
	api.Use(middleware.RateLimit(svc.RateLimit, nil, logger))
	api.Use(middleware.Guard(svc.Guard, nil, logger))

	api.POST("/session", h.Session.Create)
	api.GET("/recommend/:sessionId", h.Recommendation.Get)
	api.POST("/recommendations/batch", h.Recommendation.GetBatch)
	api.POST("/feedback", h.Feedback.Post)
	api.POST("/feedback/batch", h.Feedback.PostBatch)
	api.GET("/feedback/status/:sessionId/:productId/:action", h.Feedback.Status)
	api.GET("/duplicate-detection/stats", h.Admin.GuardStats)
	api.POST("/duplicate-detection/reset", h.Admin.GuardReset)
	api.GET("/cache/stats", h.Admin.CacheStats)
	api.POST("/cache/clear", h.Admin.CacheClear)
	api.POST("/cache/invalidate/session/:id", h.Admin.CacheInvalidateSession)
	api.GET("/health", h.Health.Check)
	api.GET("/version", h.Health.Version)
	api.GET("/metrics", h.Health.Metrics)
	api.GET("/debug/score/:sessionId", h.Debug.Score)

	return &testAPI{router: router, store: st, svc: svc}
}

func (a *testAPI) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) newSession(t *testing.T) uuid.UUID {
	t.Helper()
	sess := &models.Session{
		SessionID:  uuid.New(),
		UserID:     "u1",
		Alpha:      1.0,
		Dimensions: models.FeatureDimensions,
		Status:     models.SessionActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, a.store.Create(context.Background(), sess))
	return sess.SessionID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateSessionEndpoint(t *testing.T) {
	api := newTestAPI(t, testConfig())

	w := api.do(http.MethodPost, "/api/session", gin.H{"userId": "u1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "LinUCB", body["algorithm"])
	_, err := uuid.Parse(body["session_id"].(string))
	assert.NoError(t, err)

	conf := body["configuration"].(map[string]interface{})
	assert.Equal(t, 1.0, conf["alpha"])
	assert.Equal(t, float64(models.FeatureDimensions), conf["feature_dimensions"])
}

func TestCreateSessionValidation(t *testing.T) {
	api := newTestAPI(t, testConfig())

	w := api.do(http.MethodPost, "/api/session", gin.H{}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation", body["error"])
}

func TestRecommendEndpoint(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(30)
	sessionID := api.newSession(t)

	w := api.do(http.MethodGet, "/api/recommend/"+sessionID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	rec := body["recommendation"].(map[string]interface{})
	assert.Equal(t, "LinUCB", rec["algorithm"])
	assert.NotEmpty(t, rec["product"].(map[string]interface{})["product_id"])
	assert.Contains(t, body, "user_stats")
	assert.Contains(t, body, "diversity_info")

	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRecommendUnknownSession(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)

	w := api.do(http.MethodGet, "/api/recommend/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", decodeBody(t, w)["error"])
}

func TestRecommendInvalidSessionID(t *testing.T) {
	api := newTestAPI(t, testConfig())

	w := api.do(http.MethodGet, "/api/recommend/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decodeBody(t, w)["error"])
}

func TestFeedbackEndpointThenRapidConflict(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	first := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P001", "action": "like",
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)

	body := decodeBody(t, first)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "learning_update")
	assert.Contains(t, body, "user_insights")
	assert.Contains(t, body, "score_evolution")

	// A different action on the same product, inside the rapid window.
	second := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P001", "action": "love",
	}, nil)
	require.Equal(t, http.StatusConflict, second.Code)

	conflict := decodeBody(t, second)
	assert.Equal(t, "rapid_feedback", conflict["error"])
	info := conflict["conflict_info"].(map[string]interface{})
	assert.Equal(t, "rapid_feedback", info["type"])
	assert.NotNil(t, conflict["retry_after_seconds"])
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestFeedbackConflictThenAllowedAfterWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Guard.WindowRapid = 10 * time.Millisecond
	cfg.Guard.WindowSame = 80 * time.Millisecond
	api := newTestAPI(t, cfg)
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	first := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P001", "action": "like",
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)

	time.Sleep(25 * time.Millisecond)
	second := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P001", "action": "dislike",
	}, nil)
	require.Equal(t, http.StatusConflict, second.Code)
	conflict := decodeBody(t, second)
	assert.Equal(t, "feedback_conflict", conflict["error"])
	info := conflict["conflict_info"].(map[string]interface{})
	assert.Equal(t, "feedback_conflict", info["type"])

	time.Sleep(80 * time.Millisecond)
	third := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P001", "action": "dislike",
	}, nil)
	require.Equal(t, http.StatusOK, third.Code)
}

func TestFeedbackIdempotentReplay(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	headers := map[string]string{"Idempotency-Key": "k-1"}
	payload := gin.H{"session_id": sessionID.String(), "product_id": "P002", "action": "love"}

	first := api.do(http.MethodPost, "/api/feedback", payload, headers)
	require.Equal(t, http.StatusOK, first.Code)

	second := api.do(http.MethodPost, "/api/feedback", payload, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, "idempotent_retry", second.Header().Get("X-Duplicate-Detection"))

	// Exactly one interaction was committed.
	interactions, err := api.store.List(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, interactions, 1)
}

func TestBatchFeedbackIntraConflict(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	items := []gin.H{
		{"session_id": sessionID.String(), "product_id": "P000", "action": "like"},
		{"session_id": sessionID.String(), "product_id": "P000", "action": "love"},
		{"session_id": sessionID.String(), "product_id": "P001", "action": "like"},
	}

	w := api.do(http.MethodPost, "/api/feedback/batch", gin.H{"items": items}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "batch_conflict", body["error"])
	info := body["conflict_info"].(map[string]interface{})
	assert.Equal(t, "batch_conflict", info["type"])
	assert.NotEmpty(t, info["conflicts"])
}

func TestBatchFeedbackIgnoreConflicts(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	items := []gin.H{
		{"session_id": sessionID.String(), "product_id": "P000", "action": "like"},
		{"session_id": sessionID.String(), "product_id": "P000", "action": "love"},
		{"session_id": sessionID.String(), "product_id": "P001", "action": "like"},
	}

	w := api.do(http.MethodPost, "/api/feedback/batch", gin.H{
		"items":   items,
		"options": gin.H{"ignoreConflicts": true},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["successful_feedbacks"])
	assert.Equal(t, float64(0), body["failed_feedbacks"])

	interactions, err := api.store.List(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, interactions, 2)
}

func TestBatchRecommend(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(20)
	s1 := api.newSession(t)
	s2 := api.newSession(t)

	w := api.do(http.MethodPost, "/api/recommendations/batch", gin.H{
		"requests": []gin.H{
			{"sessionId": s1.String(), "count": 2},
			{"sessionId": s2.String()},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, true, r.(map[string]interface{})["success"])
	}
}

func TestFeedbackStatusEndpoint(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	w := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P003", "action": "love",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	status := api.do(http.MethodGet, "/api/feedback/status/"+sessionID.String()+"/P003/love", nil, nil)
	require.Equal(t, http.StatusOK, status.Code)
	body := decodeBody(t, status)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, true, body["processed"])

	missing := api.do(http.MethodGet, "/api/feedback/status/"+sessionID.String()+"/P099/love", nil, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestDuplicateRequestFingerprint(t *testing.T) {
	api := newTestAPI(t, testConfig())

	first := api.do(http.MethodPost, "/api/cache/clear", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := api.do(http.MethodPost, "/api/cache/clear", nil, nil)
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "duplicate_request", decodeBody(t, second)["error"])
}

func TestRateLimitEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Classes["recommend"] = config.RateLimitClass{Window: time.Minute, Max: 2}
	api := newTestAPI(t, cfg)
	api.store.seedProducts(20)
	sessionID := api.newSession(t)

	path := "/api/recommend/" + sessionID.String()
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, path, nil, nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, path, nil, nil).Code)

	third := api.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "rate_limited", decodeBody(t, third)["error"])
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, third.Header().Get("X-RateLimit-Reset"))
}

func TestVersionHeadersAndRejection(t *testing.T) {
	api := newTestAPI(t, testConfig())

	ok := api.do(http.MethodGet, "/api/version", nil, nil)
	require.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "v1", ok.Header().Get("API-Version"))
	assert.Equal(t, "v1", ok.Header().Get("API-Current-Version"))
	assert.NotEmpty(t, ok.Header().Get("API-Supported-Versions"))

	bad := api.do(http.MethodGet, "/api/version", nil, map[string]string{"API-Version": "9"})
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "unsupported_version", decodeBody(t, bad)["error"])
}

func TestGuardStatsAndReset(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	w := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P000", "action": "like",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	stats := api.do(http.MethodGet, "/api/duplicate-detection/stats", nil, nil)
	require.Equal(t, http.StatusOK, stats.Code)
	body := decodeBody(t, stats)
	inner := body["stats"].(map[string]interface{})
	assert.GreaterOrEqual(t, inner["feedback_records"].(float64), 1.0)

	reset := api.do(http.MethodPost, "/api/duplicate-detection/reset", nil, nil)
	require.Equal(t, http.StatusOK, reset.Code)

	stats = api.do(http.MethodGet, "/api/duplicate-detection/stats", nil, nil)
	inner = decodeBody(t, stats)["stats"].(map[string]interface{})
	assert.Equal(t, 0.0, inner["feedback_records"].(float64))
}

func TestCacheAdminEndpoints(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(20)
	sessionID := api.newSession(t)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/recommend/"+sessionID.String(), nil, nil).Code)

	stats := api.do(http.MethodGet, "/api/cache/stats", nil, nil)
	require.Equal(t, http.StatusOK, stats.Code)
	inner := decodeBody(t, stats)["stats"].(map[string]interface{})
	assert.GreaterOrEqual(t, inner["entries"].(float64), 1.0)

	inv := api.do(http.MethodPost, "/api/cache/invalidate/session/"+sessionID.String(), nil, nil)
	require.Equal(t, http.StatusOK, inv.Code)

	inner = decodeBody(t, api.do(http.MethodGet, "/api/cache/stats", nil, nil))["stats"].(map[string]interface{})
	assert.Equal(t, 0.0, inner["entries"].(float64))
}

func TestDebugScoreAfterLoveIncreases(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.store.seedProducts(5)
	sessionID := api.newSession(t)

	before := api.do(http.MethodGet, "/api/debug/score/"+sessionID.String()+"?productId=P000", nil, nil)
	require.Equal(t, http.StatusOK, before.Code)
	u0 := decodeBody(t, before)["ucb"].(float64)

	w := api.do(http.MethodPost, "/api/feedback", gin.H{
		"session_id": sessionID.String(), "product_id": "P000", "action": "love",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	after := api.do(http.MethodGet, "/api/debug/score/"+sessionID.String()+"?productId=P000", nil, nil)
	require.Equal(t, http.StatusOK, after.Code)
	u1 := decodeBody(t, after)["ucb"].(float64)
	assert.GreaterOrEqual(t, u1, u0-1e-9)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, testConfig())

	w := api.do(http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "guard")
	assert.Contains(t, body, "cache")
}
