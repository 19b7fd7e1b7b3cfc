// Package parser adapts address-parsing backends (libpostal, an LLM)
// to the pipeline's Parser interface.
package parser

import (
	"context"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// Parser turns raw address text into structured fields. Implementations
// must not block past their configured timeout; a slow or failing
// parser degrades to an empty ParsedAddress rather than aborting the
// caller's run.
type Parser interface {
	Parse(ctx context.Context, raw string) (*model.ParsedAddress, error)
	ParseBatch(ctx context.Context, raws []string) ([]*model.ParsedAddress, error)
}
