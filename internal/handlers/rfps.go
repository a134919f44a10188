package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfp-relay-go/internal/models"
)

// CreateRFP builds a draft RFP from natural language
func (h *Handlers) CreateRFP(c *gin.Context) {
	var req models.CreateRFPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	created, err := h.svc.CreateFromText(c.Request.Context(), req.NaturalLanguageInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handlers) ListRFPs(c *gin.Context) {
	rfps, err := h.svc.ListRFPs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rfps)
}

// GetRFP returns an RFP with its vendors and proposals
func (h *Handlers) GetRFP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.svc.GetRFP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handlers) DeleteRFP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteRFP(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendRFP emails the RFP to the selected vendors
func (h *Handlers) SendRFP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.SendRFPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	result, err := h.svc.SendToVendors(c.Request.Context(), id, req.VendorIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) CloseRFP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rfp, err := h.svc.CloseRFP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rfp)
}

// ListProposals returns the proposals of an RFP, best score first
func (h *Handlers) ListProposals(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	proposals, err := h.svc.ListProposals(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (h *Handlers) CompareProposals(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cmp, err := h.svc.Compare(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}
