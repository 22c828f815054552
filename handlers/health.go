package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler checks the health status of the service
// @Summary      Health check
// @Description  Reports the conversation store, the reporting database and the LLM gate occupancy.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "Service health status"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status":    "healthy",
		"store":     "not_configured",
		"datastore": "not_configured",
	}

	if h.store != nil {
		status["store"] = "open"
	}

	if h.datastore != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.datastore.PingContext(ctx); err != nil {
			status["datastore"] = "unreachable"
			status["status"] = "degraded"
		} else {
			status["datastore"] = "connected"
		}
	}

	if h.gate != nil {
		status["llm_gate"] = gin.H{"holders": h.gate.Holders(), "capacity": h.gate.Capacity()}
	}

	c.JSON(http.StatusOK, status)
}
