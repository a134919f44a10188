package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/models"
)

func (h *Handlers) GetProposal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	proposal, err := h.svc.GetProposal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// CheckProposals runs one inbox check and returns its report
func (h *Handlers) CheckProposals(c *gin.Context) {
	report, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		logrus.Errorf("Inbox check failed: %v", err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "mailbox_error",
			Message: "Failed to check for new proposals",
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusOK, report)
}
