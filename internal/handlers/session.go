package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/internal/validate"
	"github.com/temcen/linucb-fashion/pkg/models"
)

type SessionHandler struct {
	services *services.Services
	logger   *logrus.Logger
}

func NewSessionHandler(svc *services.Services, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{services: svc, logger: logger}
}

// Create handles POST /api/session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
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

	sess, err := h.services.CreateSession(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": sess.SessionID,
		"user_id":    sess.UserID,
	}).Info("session created")

	c.JSON(http.StatusCreated, models.CreateSessionResponse{
		Success:   true,
		SessionID: sess.SessionID,
		Algorithm: "LinUCB",
		Configuration: models.SessionConfiguration{
			Alpha:               sess.Alpha,
			FeatureDimensions:   sess.Dimensions,
			ExplorationStrategy: "adaptive_decay",
		},
	})
}
