package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/middleware"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// respondError translates an application error into the wire envelope.
// Internal and model errors are logged with the request id; internal
// errors are surfaced with a generic message, while model errors and
// everything else carry their own message through.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	ae, ok := err.(*apperr.Error)
	if !ok {
		ae = apperr.Wrap(err, "internal error")
	}

	resp := models.ErrorResponse{
		Success: false,
		Error:   string(ae.Kind),
		Message: ae.Message,
	}

	switch ae.Kind {
	case apperr.KindInternal, apperr.KindModelSingular:
		traceID, _ := c.Get(middleware.RequestIDKey)
		logger.WithError(ae).WithFields(logrus.Fields{
			"kind":       ae.Kind,
			"path":       c.Request.URL.Path,
			"request_id": traceID,
		}).Error("request failed")
		if ae.Kind == apperr.KindInternal {
			resp.Message = "internal server error"
		}
	case apperr.KindRapidFeedback, apperr.KindFeedbackConflict, apperr.KindDuplicateRequest, apperr.KindBatchConflict:
		now := time.Now()
		resp.Timestamp = &now
		if ae.Details != nil {
			resp.ConflictInfo = ae.Details
		}
	default:
		if ae.Details != nil {
			resp.Details = ae.Details
		}
	}

	if ae.RetryAfter != nil {
		secs := int(ae.RetryAfter.Seconds() + 0.5)
		if secs < 1 {
			secs = 1
		}
		resp.RetryAfterSeconds = &secs
		c.Header("Retry-After", strconv.Itoa(secs))
	}

	c.JSON(ae.Status(), resp)
}
