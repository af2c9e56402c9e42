// Package handlers exposes the bot's HTTP status surface.
package handlers

import (
	"net/http"
	"time"

	"yakudo-bot/internal/services"
	"yakudo-bot/internal/worker"

	"github.com/gin-gonic/gin"
)

// StatusHandler serves health and status endpoints.
type StatusHandler struct {
	scores  *services.ScoresService
	workers *worker.Service
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(scores *services.ScoresService, workers *worker.Service) *StatusHandler {
	return &StatusHandler{scores: scores, workers: workers}
}

// HealthCheck handles GET /health
func (h *StatusHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus handles GET /api/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	count, err := h.scores.CountSince(services.StartOfDay(time.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count today's scores",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workers_running": h.workers.IsRunning(),
		"scores_today":    count,
	})
}

// GetTodayScores handles GET /api/scores/today
func (h *StatusHandler) GetTodayScores(c *gin.Context) {
	records, err := h.scores.Since(services.StartOfDay(time.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve today's scores",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(records),
		"scores": records,
	})
}
