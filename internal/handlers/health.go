package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/models"
)

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Metrics:   make(map[string]string),
	}

	if err := h.svc.Ping(c.Request.Context()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	st := h.scheduler.Status()
	if st.Running {
		response.Metrics["scheduler"] = "running"
		if st.NextRun != nil {
			response.Metrics["next_run"] = st.NextRun.Format(time.RFC3339)
		}
	} else {
		response.Metrics["scheduler"] = "stopped"
	}
	if st.LastRun != nil {
		response.Metrics["last_run"] = st.LastRun.Format(time.RFC3339)
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
