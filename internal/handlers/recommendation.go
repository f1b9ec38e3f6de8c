package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/internal/validation"
	"github.com/temcen/linucb-fashion/pkg/models"
)

type RecommendationHandler struct {
	services  *services.Services
	schemas   *validation.SchemaValidator
	collector *metrics.Collector
	logger    *logrus.Logger
}

func NewRecommendationHandler(svc *services.Services, schemas *validation.SchemaValidator, collector *metrics.Collector, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{services: svc, schemas: schemas, collector: collector, logger: logger}
}

// Get handles GET /api/recommend/{sessionId}.
func (h *RecommendationHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid session id format").
			WithDetails(gin.H{"field": "sessionId"}))
		return
	}

	filters, verr := parseFilters(c)
	if verr != nil {
		respondError(c, h.logger, verr)
		return
	}

	count := 1
	if filters.Limit > 0 {
		count = filters.Limit
	}

	start := time.Now()
	resp, err := h.services.Orchestrator.Recommend(c.Request.Context(), sessionID, filters, count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if h.collector != nil {
		h.collector.ObserveRecommend(time.Since(start))
		stats := h.services.Cache.Stats()
		h.collector.SetCacheHitRatio(stats.Hits, stats.Misses)
	}

	c.JSON(http.StatusOK, resp)
}

// GetBatch handles POST /api/recommendations/batch.
func (h *RecommendationHandler) GetBatch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "failed to read request body"))
		return
	}

	res, err := h.schemas.ValidateBatchRecommend(body)
	if err != nil {
		respondError(c, h.logger, apperr.Wrap(err, "schema validation failed"))
		return
	}
	if !res.Valid {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "batch envelope failed validation").
			WithDetails(res.Errors))
		return
	}

	var req models.BatchRecommendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	results := make([]models.BatchRecommendResult, 0, len(req.Requests))
	for _, item := range req.Requests {
		sessionID, err := uuid.Parse(item.SessionID)
		if err != nil {
			results = append(results, models.BatchRecommendResult{
				SessionID: item.SessionID,
				Error:     "validation: invalid session id format",
			})
			continue
		}

		count := item.Count
		if count <= 0 {
			count = 1
		}

		resp, err := h.services.Orchestrator.Recommend(c.Request.Context(), sessionID, item.Filters, count)
		if err != nil {
			results = append(results, models.BatchRecommendResult{
				SessionID: item.SessionID,
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, models.BatchRecommendResult{
			SessionID: item.SessionID,
			Success:   true,
			Response:  resp,
		})
	}

	c.JSON(http.StatusOK, models.BatchRecommendResponse{Success: true, Results: results})
}

func parseFilters(c *gin.Context) (models.RecommendFilters, *apperr.Error) {
	var filters models.RecommendFilters
	filters.Category = c.Query("category")

	if s := c.Query("minPrice"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return filters, apperr.New(apperr.KindValidation, "minPrice must be a non-negative number").
				WithDetails(gin.H{"field": "minPrice", "value": s})
		}
		filters.MinPrice = &v
	}
	if s := c.Query("maxPrice"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return filters, apperr.New(apperr.KindValidation, "maxPrice must be a non-negative number").
				WithDetails(gin.H{"field": "maxPrice", "value": s})
		}
		filters.MaxPrice = &v
	}
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return filters, apperr.New(apperr.KindValidation, "limit must be a positive integer").
				WithDetails(gin.H{"field": "limit", "value": s})
		}
		filters.Limit = v
	}
	return filters, nil
}
