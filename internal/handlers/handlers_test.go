package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/db/dbtest"
	"rfp-relay-go/internal/mailer"
	"rfp-relay-go/internal/metrics"
	"rfp-relay-go/internal/models"
	"rfp-relay-go/internal/pipeline"
	"rfp-relay-go/internal/repository"
	"rfp-relay-go/internal/scheduler"
	"rfp-relay-go/internal/service"
)

type stubInference struct{ err error }

func (s stubInference) ExtractRFP(context.Context, string) (*ai.StructuredRFP, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.StructuredRFP{Title: "Printers"}, nil
}

func (s stubInference) CompareProposals(context.Context, []ai.ProposalSummary, ai.RFPContext) (*ai.Recommendation, error) {
	return &ai.Recommendation{Summary: "ok"}, nil
}

type nopSender struct{}

func (nopSender) Send(context.Context, *mailer.Envelope) error { return nil }

type stubRunner struct{ err error }

func (r stubRunner) Run(context.Context) (*pipeline.Report, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Report{Fetched: 1, Processed: 1}, nil
}

func setupRouter(t *testing.T, inference service.Inference, runner scheduler.Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	svc := service.New(repository.New(dbtest.New(t)), inference, nopSender{}, m)
	sched := scheduler.NewScheduler(5, runner)
	t.Cleanup(func() { _ = sched.Stop() })

	router := gin.New()
	NewHandlers(svc, sched, reg).SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestVendorEndpoints(t *testing.T) {
	router := setupRouter(t, stubInference{}, stubRunner{})

	w := do(router, http.MethodPost, "/api/v1/vendors", map[string]string{"name": "Acme", "email": "sales@acme.test"})
	require.Equal(t, http.StatusCreated, w.Code)
	var vendor models.Vendor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vendor))

	w = do(router, http.MethodPost, "/api/v1/vendors", map[string]string{"name": "Dup", "email": "sales@acme.test"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Error)

	w = do(router, http.MethodPost, "/api/v1/vendors", map[string]string{"name": "No email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/v1/vendors/"+vendor.ID.String(), map[string]string{"phone": "+1-555-0101"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Vendor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, "+1-555-0101", updated.Phone)

	w = do(router, http.MethodGet, "/api/v1/vendors/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodDelete, "/api/v1/vendors/"+vendor.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/api/v1/vendors/"+vendor.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRFPEndpoint(t *testing.T) {
	router := setupRouter(t, stubInference{}, stubRunner{})

	w := do(router, http.MethodPost, "/api/v1/rfps", models.CreateRFPRequest{NaturalLanguageInput: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeError(t, w).Error)

	w = do(router, http.MethodPost, "/api/v1/rfps", models.CreateRFPRequest{NaturalLanguageInput: "10 printers"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		RFP models.RFP `json:"rfp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Printers", created.RFP.Title)
	assert.Equal(t, models.RFPStatusDraft, created.RFP.Status)

	w = do(router, http.MethodGet, "/api/v1/rfps/"+created.RFP.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.RFPDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Empty(t, detail.Vendors)

	w = do(router, http.MethodPost, "/api/v1/rfps/"+created.RFP.ID.String()+"/send", models.SendRFPRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/rfps/"+created.RFP.ID.String()+"/comparison", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/api/v1/rfps/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRFPExtractionFailureIsBadGateway(t *testing.T) {
	router := setupRouter(t, stubInference{err: errors.New("provider down")}, stubRunner{})

	w := do(router, http.MethodPost, "/api/v1/rfps", models.CreateRFPRequest{NaturalLanguageInput: "10 printers"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "extraction_error", decodeError(t, w).Error)
}

func TestCheckProposalsEndpoint(t *testing.T) {
	router := setupRouter(t, stubInference{}, stubRunner{})

	w := do(router, http.MethodPost, "/api/v1/proposals/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report pipeline.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Processed)

	w = do(router, http.MethodGet, "/api/v1/scheduler/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st scheduler.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Running)
	assert.NotNil(t, st.LastRun)

	failing := setupRouter(t, stubInference{}, stubRunner{err: errors.New("dial tcp: refused")})
	w = do(failing, http.MethodPost, "/api/v1/proposals/check", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupRouter(t, stubInference{}, stubRunner{})

	w := do(router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "stopped", health.Metrics["scheduler"])

	w = do(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/v1/email-logs?page=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/email-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.LogPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}
