package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/services"
)

// AdminHandler serves the guard and cache administration endpoints.
type AdminHandler struct {
	services  *services.Services
	collector *metrics.Collector
	logger    *logrus.Logger
}

func NewAdminHandler(svc *services.Services, collector *metrics.Collector, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{services: svc, collector: collector, logger: logger}
}

// GuardStats handles GET /api/duplicate-detection/stats.
func (h *AdminHandler) GuardStats(c *gin.Context) {
	stats := h.services.Guard.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// GuardReset handles POST /api/duplicate-detection/reset (dev-only).
func (h *AdminHandler) GuardReset(c *gin.Context) {
	h.services.Guard.Reset()
	h.logger.Warn("duplicate-detection guard tables reset")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "guard tables cleared"})
}

// CacheStats handles GET /api/cache/stats.
func (h *AdminHandler) CacheStats(c *gin.Context) {
	stats := h.services.Cache.Stats()
	if h.collector != nil {
		h.collector.SetCacheHitRatio(stats.Hits, stats.Misses)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"entries": stats.Entries,
		},
	})
}

// CacheClear handles POST /api/cache/clear.
func (h *AdminHandler) CacheClear(c *gin.Context) {
	h.services.Cache.Reset()
	h.logger.Info("recommendation cache cleared")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "cache cleared"})
}

// CacheInvalidateSession handles POST /api/cache/invalidate/session/{id}.
func (h *AdminHandler) CacheInvalidateSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.services.Cache.InvalidateSession(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
		"message":    "cache entries invalidated",
	})
}
