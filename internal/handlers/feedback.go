package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/guard"
	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/internal/validate"
	"github.com/temcen/linucb-fashion/internal/validation"
	"github.com/temcen/linucb-fashion/pkg/models"
)

type FeedbackHandler struct {
	services  *services.Services
	schemas   *validation.SchemaValidator
	collector *metrics.Collector
	logger    *logrus.Logger
}

func NewFeedbackHandler(svc *services.Services, schemas *validation.SchemaValidator, collector *metrics.Collector, logger *logrus.Logger) *FeedbackHandler {
	return &FeedbackHandler{services: svc, schemas: schemas, collector: collector, logger: logger}
}

// Post handles POST /api/feedback. The guard middleware has already
// applied the duplicate/rapid/idempotency precedence; this handler owns
// steps 2-10 of the feedback flow.
func (h *FeedbackHandler) Post(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid request body").
			WithDetails(gin.H{"parse_error": err.Error()}))
		return
	}
	if errs := validate.Struct(req); errs != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "request failed validation").
			WithDetails(errs))
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid session id format").
			WithDetails(gin.H{"field": "session_id"}))
		return
	}

	start := time.Now()
	resp, err := h.services.Feedback.Process(c.Request.Context(), sessionID, req.ProductID, req.Action)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if h.collector != nil {
		h.collector.ObserveFeedback(time.Since(start))
	}

	c.JSON(http.StatusOK, resp)
}

// PostBatch handles POST /api/feedback/batch: schema validation,
// intra-batch duplicate detection on (session, product), then
// per-item processing honoring continueOnError / ignoreConflicts.
func (h *FeedbackHandler) PostBatch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "failed to read request body"))
		return
	}

	res, err := h.schemas.ValidateBatchFeedback(body)
	if err != nil {
		respondError(c, h.logger, apperr.Wrap(err, "schema validation failed"))
		return
	}
	if !res.Valid {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "batch envelope failed validation").
			WithDetails(res.Errors))
		return
	}

	var req models.BatchFeedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	keys := make([]guard.FeedbackKey, len(req.Items))
	for i, item := range req.Items {
		keys[i] = guard.FeedbackKey{SessionID: item.SessionID, ProductID: item.ProductID, Action: item.Action}
	}
	duplicates := guard.DetectIntraBatchDuplicates(keys)

	if len(duplicates) > 0 && !req.Options.IgnoreConflicts {
		conflicts := make([]gin.H, 0, len(duplicates))
		for idx, first := range duplicates {
			conflicts = append(conflicts, gin.H{
				"index":          idx,
				"conflicts_with": first,
				"session_id":     req.Items[idx].SessionID,
				"product_id":     req.Items[idx].ProductID,
				"action":         req.Items[idx].Action,
			})
		}
		respondError(c, h.logger, apperr.New(apperr.KindBatchConflict, "batch contains duplicate (session, product) items").
			WithDetails(gin.H{
				"type":       "batch_conflict",
				"conflicts":  conflicts,
				"suggestion": "remove duplicate items or set options.ignoreConflicts",
			}))
		return
	}

	results := make([]models.FeedbackResponse, 0, len(req.Items))
	var itemErrors []models.BatchFeedbackError
	for i, item := range req.Items {
		if _, dup := duplicates[i]; dup {
			continue // ignoreConflicts: only the first occurrence is processed
		}

		resp, itemErr := h.processBatchItem(c, item, keys[i])
		if itemErr != nil {
			itemErrors = append(itemErrors, models.BatchFeedbackError{
				Index:   i,
				Error:   string(itemErr.Kind),
				Message: itemErr.Message,
			})
			if !req.Options.ContinueOnError {
				break
			}
			continue
		}
		results = append(results, *resp)
	}

	c.JSON(http.StatusOK, models.BatchFeedbackResponse{
		SuccessfulFeedbacks: len(results),
		FailedFeedbacks:     len(itemErrors),
		Results:             results,
		Errors:              itemErrors,
	})
}

// processBatchItem runs the guard window check and feedback processing
// for one batch item, recording its guard key on success.
func (h *FeedbackHandler) processBatchItem(c *gin.Context, item models.BatchFeedbackItem, key guard.FeedbackKey) (*models.FeedbackResponse, *apperr.Error) {
	if !models.ValidAction(item.Action) {
		return nil, apperr.New(apperr.KindValidation, "action must be one of love|like|dislike|skip|neutral")
	}
	sessionID, err := uuid.Parse(item.SessionID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid session id format")
	}

	if gerr := h.services.Guard.CheckFeedback(key, item.IdempotencyKey); gerr != nil {
		return nil, gerr
	}

	start := time.Now()
	resp, perr := h.services.Feedback.Process(c.Request.Context(), sessionID, item.ProductID, item.Action)
	if perr != nil {
		ae, ok := perr.(*apperr.Error)
		if !ok {
			ae = apperr.Wrap(perr, "feedback processing failed")
		}
		return nil, ae
	}
	if h.collector != nil {
		h.collector.ObserveFeedback(time.Since(start))
	}

	h.services.Guard.RecordFeedbackKey(key, item.IdempotencyKey)
	h.services.Guard.MarkProcessed(key)
	return resp, nil
}

// Status handles GET /api/feedback/status/{session}/{product}/{action},
// inspecting the guard record (including its grace tail).
func (h *FeedbackHandler) Status(c *gin.Context) {
	key := guard.FeedbackKey{
		SessionID: c.Param("sessionId"),
		ProductID: c.Param("productId"),
		Action:    c.Param("action"),
	}

	status := h.services.Guard.FeedbackStatus(key)
	if !status.Found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"found":   false,
			"message": "no guard record for this (session, product, action)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"found":           true,
		"age_seconds":     status.AgeSeconds,
		"processed":       status.Processed,
		"has_idempotency": status.IdempotencyKey != "",
	})
}
