package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/models"
	"rfp-relay-go/internal/scheduler"
	"rfp-relay-go/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	svc       *service.Service
	scheduler *scheduler.Scheduler
	gatherer  prometheus.Gatherer
}

// NewHandlers creates new HTTP handlers. gatherer backs /metrics.
func NewHandlers(svc *service.Service, s *scheduler.Scheduler, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{svc: svc, scheduler: s, gatherer: gatherer}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.POST("/rfps", h.CreateRFP)
		api.GET("/rfps", h.ListRFPs)
		api.GET("/rfps/:id", h.GetRFP)
		api.DELETE("/rfps/:id", h.DeleteRFP)
		api.POST("/rfps/:id/send", h.SendRFP)
		api.POST("/rfps/:id/close", h.CloseRFP)
		api.GET("/rfps/:id/proposals", h.ListProposals)
		api.GET("/rfps/:id/comparison", h.CompareProposals)

		api.POST("/vendors", h.CreateVendor)
		api.GET("/vendors", h.ListVendors)
		api.GET("/vendors/:id", h.GetVendor)
		api.PUT("/vendors/:id", h.UpdateVendor)
		api.DELETE("/vendors/:id", h.DeleteVendor)

		api.POST("/proposals/check", h.CheckProposals)
		api.GET("/proposals/:id", h.GetProposal)

		api.GET("/email-logs", h.GetLogs)
		api.GET("/email-logs/:id", h.GetLog)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Extraction, apperr.Delivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Internal causes are logged, not returned.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	code := statusFor(kind)
	message := apperr.Message(err)
	if code == http.StatusInternalServerError {
		logrus.WithField("path", c.FullPath()).Errorf("Request failed: %v", err)
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			message = "internal server error"
		}
	} else if code == http.StatusBadGateway {
		logrus.WithField("path", c.FullPath()).Warnf("Upstream failure: %v", err)
	}
	c.JSON(code, models.ErrorResponse{Error: kind.String(), Message: message, Code: code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   apperr.Validation.String(),
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_id", Message: "Invalid ID", Code: http.StatusBadRequest})
		return uuid.Nil, false
	}
	return id, true
}
