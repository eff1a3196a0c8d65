package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmoretti/finquery/internal/domain/dto"
	"github.com/lmoretti/finquery/internal/logger"
	"github.com/lmoretti/finquery/internal/middleware"
	"github.com/lmoretti/finquery/internal/service"
	"github.com/lmoretti/finquery/internal/storage"
)

const apiVersion = "1.0.0"

// Handler provides HTTP handlers for the prompt analysis endpoints.
//
// Responsibilities:
//   - Validate the incoming prompt body
//   - Run the prompt pipeline through the service layer
//   - Map pipeline failures onto HTTP status codes and the error envelope
//   - Record served prompts in the optional query audit log
type Handler struct {
	svc   service.PromptService
	audit storage.QueryLogRepository // nil when the query log is disabled
}

// NewHandler constructs a new Handler instance. audit may be nil.
func NewHandler(svc service.PromptService, audit storage.QueryLogRepository) *Handler {
	return &Handler{svc: svc, audit: audit}
}

// PostPrompt handles POST /prompt requests.
//
// PostPrompt godoc
// @Summary      Analyze a natural-language financial question
// @Description  Translates the prompt into structured metric requests, resolves them against market data, and returns the populated result plus a narrative
// @Tags         prompt
// @Accept       json
// @Produce      json
// @Param        request  body      dto.PromptRequest   true  "Prompt to analyze"
// @Success      200      {object}  dto.PromptResponse  "Success"
// @Failure      400      {object}  dto.ErrorResponse   "Invalid body or unrecognizable request shape"
// @Failure      500      {object}  dto.ErrorResponse   "Resolution failure"
// @Failure      502      {object}  dto.ErrorResponse   "Oracle unreachable or unparseable"
// @Router       /prompt [post]
func (h *Handler) PostPrompt(c *gin.Context) {
	var req dto.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("prompt is required", err))
		return
	}

	start := time.Now()
	analysis, err := h.svc.Analyze(c.Request.Context(), req.Prompt)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrOracleParse):
			status = http.StatusBadGateway
		case errors.Is(err, service.ErrResolution):
			status = http.StatusBadRequest
		}
		c.JSON(status, dto.NewErrorResponse(err.Error(), nil))
		h.logQuery(c, req.Prompt, "error", time.Since(start))
		return
	}

	c.JSON(http.StatusOK, dto.PromptResponse{
		Status:          "ok",
		Result:          analysis.Result,
		NaturalLanguage: analysis.NaturalLanguage,
	})
	h.logQuery(c, req.Prompt, "ok", time.Since(start))
}

// GetRoot handles GET / requests with a static capability descriptor.
//
// GetRoot godoc
// @Summary      API capability descriptor
// @Description  Returns service name, version and available endpoints
// @Tags         meta
// @Produce      json
// @Success      200  {object}  dto.CapabilityResponse  "Success"
// @Router       / [get]
func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CapabilityResponse{
		Message:     "Financial Data API",
		Version:     apiVersion,
		Description: "Natural-language financial data analysis",
		Endpoints: map[string]string{
			"POST /prompt":            "Financial analysis from a natural-language prompt",
			"GET /swagger/index.html": "Interactive API documentation",
		},
	})
}

// logQuery appends one entry to the audit trail. Persistence failures are
// logged and never affect the response already sent.
func (h *Handler) logQuery(c *gin.Context, prompt, status string, latency time.Duration) {
	if h.audit == nil {
		return
	}
	entry := storage.QueryLog{
		RequestID: middleware.GetRequestID(c),
		Prompt:    prompt,
		Status:    status,
		LatencyMS: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.audit.InsertQueryLog(entry); err != nil {
		logger.Component("audit").Warn().Err(err).Msg("failed to record query")
	}
}
