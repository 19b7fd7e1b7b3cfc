//go:build cgo

package parser

import (
	"context"

	expand "github.com/openvenues/gopostal/expand"
	gopostal "github.com/openvenues/gopostal/parser"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

// LibpostalParser parses addresses offline with libpostal's statistical
// parser. It is the default backend: no network call, no API key, but
// it only fills the fields libpostal itself recognizes (road, house
// number, unit/level, district, city/state, and an AOI taken from the
// first "house" or "near" component) — shop name and
// intersection/direction cues are left empty.
type LibpostalParser struct {
	languages []string
	logger    *zap.Logger
}

func NewLibpostalParser(languages []string, logger *zap.Logger) *LibpostalParser {
	if len(languages) == 0 {
		languages = []string{"zh"}
	}
	return &LibpostalParser{languages: languages, logger: logger}
}

func (p *LibpostalParser) Parse(ctx context.Context, raw string) (*model.ParsedAddress, error) {
	norm := textutil.Normalize(raw)

	opts := expand.GetDefaultExpansionOptions()
	opts.Languages = p.languages
	expansions := expand.ExpandAddressOptions(raw, opts)
	best := raw
	if len(expansions) > 0 {
		best = expansions[0]
	}

	parsed := &model.ParsedAddress{NormText: norm}
	for _, c := range gopostal.ParseAddress(best) {
		switch c.Label {
		case "house_number":
			parsed.RoadNo = c.Value
		case "road":
			parsed.Road = c.Value
		case "unit":
			parsed.Unit = c.Value
		case "level":
			parsed.Floor = c.Value
		case "suburb", "city_district":
			parsed.District = c.Value
		case "city":
			parsed.City = c.Value
		case "state":
			parsed.Province = c.Value
		case "near", "house":
			if parsed.AOI == "" {
				parsed.AOI = c.Value
			}
		}
	}

	if p.logger != nil {
		p.logger.Debug("libpostal parse", zap.String("raw", raw), zap.String("road", parsed.Road))
	}

	return parsed, nil
}

func (p *LibpostalParser) ParseBatch(ctx context.Context, raws []string) ([]*model.ParsedAddress, error) {
	out := make([]*model.ParsedAddress, 0, len(raws))
	for _, raw := range raws {
		parsed, err := p.Parse(ctx, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
