package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLogs returns one page of the email processing log
func (h *Handlers) GetLogs(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		badRequest(c, "Invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		badRequest(c, "Invalid page_size")
		return
	}

	logs, err := h.svc.ListEmailLogs(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetLog returns a single log entry by ID
func (h *Handlers) GetLog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entry, err := h.svc.GetEmailLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
