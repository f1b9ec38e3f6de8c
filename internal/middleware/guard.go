package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/internal/guard"
	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// IdempotencyKeyHeader is the canonical location of the caller-supplied
// idempotency key. A body-level `idempotency_key` field is accepted as
// an alias; the header wins when both are present.
const IdempotencyKeyHeader = "Idempotency-Key"

// DuplicateDetectionHeader annotates replayed responses. The replayed
// body must stay byte-identical to the original, so the
// idempotent-retry marker travels as a header rather than a body field.
const DuplicateDetectionHeader = "X-Duplicate-Detection"

// feedbackBody is the subset of a feedback request the guard keys on.
type feedbackBody struct {
	SessionID      string `json:"session_id"`
	ProductID      string `json:"product_id"`
	Action         string `json:"action"`
	IdempotencyKey string `json:"idempotency_key"`
}

type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Guard applies C7's precedence to every non-GET request: idempotency
// key replay first, then the feedback-specific conflict windows, then
// general fingerprint dedup. On pass it records the bookkeeping, lets
// the handler run, and captures the response for future idempotent
// replay. The batch feedback endpoint is fingerprinted at envelope
// level only; its per-item conflict checks live in the handler, which
// needs per-index reporting.
func Guard(g *guard.Guard, collector *metrics.Collector, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondGuardError(c, apperr.New(apperr.KindValidation, "failed to read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var fb feedbackBody
		_ = json.Unmarshal(body, &fb)

		idemKey := c.GetHeader(IdempotencyKeyHeader)
		if idemKey == "" {
			idemKey = fb.IdempotencyKey
		}

		// Precedence 1: idempotency-key replay.
		if cached, ok := g.CheckIdempotencyKey(idemKey); ok {
			logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"status": cached.Status,
			}).Info("replaying idempotent response")
			c.Header(DuplicateDetectionHeader, "idempotent_retry")
			c.Data(cached.Status, "application/json", cached.Body)
			c.Abort()
			return
		}

		// Precedence 2: feedback conflict windows, when the body carries
		// a full (session, product, action) tuple.
		var fbKey *guard.FeedbackKey
		if fb.SessionID != "" && fb.ProductID != "" && fb.Action != "" {
			key := guard.FeedbackKey{SessionID: fb.SessionID, ProductID: fb.ProductID, Action: fb.Action}
			if gerr := g.CheckFeedback(key, idemKey); gerr != nil {
				if collector != nil {
					collector.IncGuardRejection(string(gerr.Kind))
				}
				respondGuardError(c, gerr)
				return
			}
			fbKey = &key
		}

		// Precedence 3: general fingerprint dedup.
		fp := guard.Fingerprint(
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
			canonicalBody(body),
			canonicalQuery(c.Request.URL.RawQuery),
		)
		if gerr := g.CheckFingerprint(fp); gerr != nil {
			if collector != nil {
				collector.IncGuardRejection(string(gerr.Kind))
			}
			respondGuardError(c, gerr)
			return
		}

		g.RecordPass(fp, fbKey, idemKey)

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture

		c.Next()

		status := c.Writer.Status()
		if fbKey != nil && status == http.StatusOK {
			g.MarkProcessed(*fbKey)
		}
		if idemKey != "" && status < http.StatusInternalServerError {
			g.StoreIdempotentResponse(idemKey, guard.CachedResponse{
				Status: status,
				Body:   append([]byte(nil), capture.buf.Bytes()...),
			})
		}
	}
}

// canonicalBody compacts JSON bodies so whitespace differences don't
// defeat fingerprinting; non-JSON bodies hash as-is.
func canonicalBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return string(body)
	}
	return compact.String()
}

// canonicalQuery sorts query parameters so ordering differences don't
// defeat fingerprinting.
func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

func respondGuardError(c *gin.Context, err *apperr.Error) {
	resp := models.ErrorResponse{
		Success: false,
		Error:   string(err.Kind),
		Message: err.Message,
	}
	if err.RetryAfter != nil {
		secs := int(err.RetryAfter.Seconds() + 0.5)
		if secs < 1 {
			secs = 1
		}
		resp.RetryAfterSeconds = &secs
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	if err.Details != nil {
		now := time.Now()
		resp.ConflictInfo = err.Details
		resp.Timestamp = &now
	}
	c.AbortWithStatusJSON(err.Status(), resp)
}
