// Package responses holds the JSON response shapes returned by the
// HTTP controllers.
package responses

import "github.com/tanxiaobing-hl/address-audit/internal/model"

// CompareResponse is the body of POST /v1/compare's success response.
type CompareResponse struct {
	Decision        model.Decision         `json:"decision"`
	Score           float64                `json:"score"`
	FeatureScores   map[string]float64     `json:"feature_scores"`
	Evidence        map[string]interface{} `json:"evidence,omitempty"`
	Parsed1         *model.ParsedAddress   `json:"parsed1"`
	Parsed2         *model.ParsedAddress   `json:"parsed2"`
	UseLLM          bool                   `json:"use_llm"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

// ErrorResponse is the uniform error body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse is a generic success envelope for admin actions that
// have no dedicated response shape.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthCheckResponse is the body of GET /health, /ready, /live.
type HealthCheckResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}
