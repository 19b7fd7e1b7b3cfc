//go:build !cgo

package parser

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// New constructs the configured Parser backend. Built without cgo,
// libpostal's CGO bindings are unavailable, so only the "llm" backend
// can be selected.
func New(backend, llmBaseURL, llmModel, llmAPIKey string, timeout time.Duration, logger *zap.Logger) (Parser, error) {
	switch backend {
	case "llm":
		return NewLLMParser(llmBaseURL, llmModel, llmAPIKey, timeout, logger), nil
	case "", "libpostal":
		return nil, fmt.Errorf("parser: libpostal backend requires a cgo build")
	default:
		return nil, fmt.Errorf("parser: unknown backend %q", backend)
	}
}
