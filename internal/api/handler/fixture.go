package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/service"
)

// FixtureHandler handles golden fixture endpoints.
type FixtureHandler struct {
	fixtures *service.FixtureService
}

// NewFixtureHandler creates a new fixture handler.
// Parameters:
//   - fixtures: fixture service.
// Returns:
//   - *FixtureHandler: handler instance.
func NewFixtureHandler(fixtures *service.FixtureService) *FixtureHandler {
	return &FixtureHandler{fixtures: fixtures}
}

// Create promotes a completed test run into a named fixture.
// POST /api/v1/admin/fixtures
func (h *FixtureHandler) Create(c *gin.Context) {
	var input service.PromoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.BadRequest(apperr.CodeInvalidJSON, "Request body must be valid JSON"))
		return
	}

	fixture, err := h.fixtures.Promote(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":      true,
		"fixture": fixture,
	})
}

// List returns recent fixtures, newest first.
// GET /api/v1/admin/fixtures?limit=50
func (h *FixtureHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	fixtures, err := h.fixtures.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"fixtures": fixtures,
	})
}

// Get returns one fixture.
// GET /api/v1/admin/fixtures/:id
func (h *FixtureHandler) Get(c *gin.Context) {
	fixture, err := h.fixtures.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"fixture": fixture,
	})
}
