package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/services"
)

// DebugHandler serves the read-only score inspection endpoint, mounted
// only when debug routes are enabled.
type DebugHandler struct {
	services *services.Services
	logger   *logrus.Logger
}

func NewDebugHandler(svc *services.Services, logger *logrus.Logger) *DebugHandler {
	return &DebugHandler{services: svc, logger: logger}
}

// Score handles GET /api/debug/score/{sessionId}?productId=...,
// returning the current LinUCB decomposition for the pair without
// mutating any state.
func (h *DebugHandler) Score(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "invalid session id format").
			WithDetails(gin.H{"field": "sessionId"}))
		return
	}
	productID := c.Query("productId")
	if productID == "" {
		respondError(c, h.logger, apperr.New(apperr.KindValidation, "productId query parameter is required").
			WithDetails(gin.H{"field": "productId"}))
		return
	}

	expected, confidence, ucb, err := h.services.DebugScore(c.Request.Context(), sessionID, productID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"session_id":      sessionID,
		"product_id":      productID,
		"expected_reward": expected,
		"confidence":      confidence,
		"ucb":             ucb,
	})
}
