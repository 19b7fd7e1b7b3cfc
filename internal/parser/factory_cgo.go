//go:build cgo

package parser

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// New constructs the configured Parser backend. Built with cgo, both
// "libpostal" (the default, offline) and "llm" backends are available.
func New(backend, llmBaseURL, llmModel, llmAPIKey string, timeout time.Duration, logger *zap.Logger) (Parser, error) {
	switch backend {
	case "", "libpostal":
		return NewLibpostalParser(nil, logger), nil
	case "llm":
		return NewLLMParser(llmBaseURL, llmModel, llmAPIKey, timeout, logger), nil
	default:
		return nil, fmt.Errorf("parser: unknown backend %q", backend)
	}
}
