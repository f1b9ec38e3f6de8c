package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/config"
	"github.com/temcen/linucb-fashion/internal/services"
)

// HealthHandler serves the liveness, version and JSON-metrics thin
// reports.
type HealthHandler struct {
	cfg      *config.Config
	services *services.Services
	logger   *logrus.Logger
	started  time.Time
}

func NewHealthHandler(cfg *config.Config, svc *services.Services, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, services: svc, logger: logger, started: time.Now()}
}

// Check handles GET /health and GET /api/health.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "healthy"
	storeStatus := "up"
	httpStatus := http.StatusOK

	if err := h.services.Store.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("store ping failed")
		status = "degraded"
		storeStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	guardStats := h.services.Guard.Stats()
	cacheStats := h.services.Cache.Stats()

	c.JSON(httpStatus, gin.H{
		"status":         status,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"store":          storeStatus,
		"guard": gin.H{
			"fingerprints":     guardStats.Fingerprints,
			"feedback_records": guardStats.Feedback,
			"idempotency_keys": guardStats.Idempotent,
		},
		"cache": gin.H{
			"entries": cacheStats.Entries,
			"hits":    cacheStats.Hits,
			"misses":  cacheStats.Misses,
		},
	})
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(c *gin.Context) {
	supported := make([]string, 0, len(h.cfg.API.SupportedVersions))
	for _, v := range h.cfg.API.SupportedVersions {
		supported = append(supported, "v"+strconv.Itoa(v))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"current_version":    "v" + strconv.Itoa(h.cfg.API.CurrentVersion),
		"supported_versions": supported,
	})
}

// Metrics handles GET /api/metrics: a JSON summary of the counters the
// Prometheus endpoint exposes in text form.
func (h *HealthHandler) Metrics(c *gin.Context) {
	guardStats := h.services.Guard.Stats()
	cacheStats := h.services.Cache.Stats()

	hitRatio := 0.0
	if total := cacheStats.Hits + cacheStats.Misses; total > 0 {
		hitRatio = float64(cacheStats.Hits) / float64(total)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"cache": gin.H{
			"entries":   cacheStats.Entries,
			"hits":      cacheStats.Hits,
			"misses":    cacheStats.Misses,
			"hit_ratio": hitRatio,
		},
		"guard": gin.H{
			"fingerprints":     guardStats.Fingerprints,
			"feedback_records": guardStats.Feedback,
			"idempotency_keys": guardStats.Idempotent,
		},
	})
}
