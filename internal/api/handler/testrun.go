package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/api/middleware"
	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/repository"
	"github.com/marginality/indexing-admin/internal/service"
)

// TestRunHandler handles test-run endpoints.
type TestRunHandler struct {
	testRuns *service.TestRunService
	ledger   *repository.TestRunRepository
}

// NewTestRunHandler creates a new test-run handler.
// Parameters:
//   - testRuns: orchestration service.
//   - ledger: run read access.
// Returns:
//   - *TestRunHandler: handler instance.
func NewTestRunHandler(testRuns *service.TestRunService, ledger *repository.TestRunRepository) *TestRunHandler {
	return &TestRunHandler{testRuns: testRuns, ledger: ledger}
}

// Start runs one indexing test run synchronously.
// POST /api/v1/admin/test-runs
func (h *TestRunHandler) Start(c *gin.Context) {
	var input service.StartTestRunInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.BadRequest(apperr.CodeInvalidJSON, "Request body must be valid JSON"))
		return
	}
	input.CallerUserID = middleware.AdminUserID(c)

	result, err := h.testRuns.StartTestRun(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"testRunId": result.TestRunID,
		"status":    result.Status,
		"metrics":   result.Metrics,
	})
}

// List returns recent test runs, newest first.
// GET /api/v1/admin/test-runs?limit=50
func (h *TestRunHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	runs, err := h.ledger.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"runs": runs,
	})
}

// Get returns one test run.
// GET /api/v1/admin/test-runs/:id
func (h *TestRunHandler) Get(c *gin.Context) {
	run, err := h.ledger.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if run == nil {
		respondError(c, apperr.New(http.StatusNotFound, apperr.CodeRunNotFound, "Test run not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":  true,
		"run": run,
	})
}

// Logs returns a run's log stream ordered by timestamp.
// GET /api/v1/admin/test-runs/:id/logs
func (h *TestRunHandler) Logs(c *gin.Context) {
	logs, err := h.ledger.ListLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"logs": logs,
	})
}

// Outputs returns a run's stored artifacts.
// GET /api/v1/admin/test-runs/:id/outputs
func (h *TestRunHandler) Outputs(c *gin.Context) {
	outputs, err := h.ledger.GetOutputs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if outputs == nil {
		respondError(c, apperr.New(http.StatusNotFound, apperr.CodeOutputsNotFound, "Test run has no stored outputs"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"outputs": outputs,
	})
}

// DownloadTranscript serves the transcript artifact as a JSON download.
// GET /api/v1/admin/test-runs/:id/outputs/transcript.json
func (h *TestRunHandler) DownloadTranscript(c *gin.Context) {
	h.downloadArtifact(c, "transcript")
}

// DownloadOcr serves the OCR artifact as a JSON download.
// GET /api/v1/admin/test-runs/:id/outputs/ocr.json
func (h *TestRunHandler) DownloadOcr(c *gin.Context) {
	h.downloadArtifact(c, "ocr")
}

func (h *TestRunHandler) downloadArtifact(c *gin.Context, kind string) {
	runID := c.Param("id")
	outputs, err := h.ledger.GetOutputs(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	if outputs == nil {
		respondError(c, apperr.New(http.StatusNotFound, apperr.CodeOutputsNotFound, "Test run has no stored outputs"))
		return
	}

	body := outputs.TranscriptJSON
	if kind == "ocr" {
		body = outputs.OcrJSON
	}
	if len(body) == 0 {
		body = []byte("null")
	}

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s-%s.json", kind, runID))
	c.Data(http.StatusOK, "application/json", body)
}
