package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/app/requests"
	"github.com/tanxiaobing-hl/address-audit/app/responses"
	"github.com/tanxiaobing-hl/address-audit/internal/pipeline"
)

// AddressController serves the stateless two-address comparison
// endpoint and the liveness/readiness checks.
type AddressController struct {
	pipeline  *pipeline.Pipeline
	logger    *zap.Logger
	startTime time.Time
}

func NewAddressController(p *pipeline.Pipeline, logger *zap.Logger) *AddressController {
	return &AddressController{pipeline: p, logger: logger, startTime: time.Now()}
}

// Compare handles POST /v1/compare.
func (ac *AddressController) Compare(c *gin.Context) {
	var req requests.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	addr1, addr2 := strings.TrimSpace(req.Addr1), strings.TrimSpace(req.Addr2)
	if addr1 == "" || addr2 == "" {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "EMPTY_ADDRESS",
			Message: "addr1 and addr2 must not be empty",
		})
		return
	}

	start := time.Now()
	result, p1, p2, err := ac.pipeline.ComparePair(c.Request.Context(), addr1, addr2, req.UseLLM)
	if err != nil {
		ac.logger.Error("compare failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "COMPARE_ERROR",
			Message: "failed to compare addresses: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, responses.CompareResponse{
		Decision:         result.Decision,
		Score:            result.Score,
		FeatureScores:    result.FeatureScores,
		Evidence:         result.Evidence,
		Parsed1:          p1,
		Parsed2:          p2,
		UseLLM:           req.UseLLM,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

// HealthCheck handles GET /health, /ready, /live, /v1/health.
func (ac *AddressController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status: "healthy",
		Uptime: time.Since(ac.startTime).String(),
	})
}
