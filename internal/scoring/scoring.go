// Package scoring computes the weighted pair-similarity score between
// two parsed addresses and maps it to a tri-valued decision.
package scoring

import (
	"strings"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

// Feature name constants, also the expected keys of the weights map.
const (
	FeatureDistrict        = "district"
	FeatureAOI             = "aoi"
	FeatureBuilding        = "building"
	FeatureFloor           = "floor"
	FeatureRoom            = "room"
	FeatureRoad            = "road"
	FeatureShop            = "shop"
	FeatureGeo             = "geo"
	FeatureRelativeAnchor  = "relative_anchor"
)

// Scorer computes a weighted-average similarity score over the nine
// pairwise features and thresholds it into SAME/UNSURE/DIFFERENT.
type Scorer struct {
	Weights    map[string]float64
	Thresholds map[string]float64
}

func New(weights, thresholds map[string]float64) *Scorer {
	return &Scorer{Weights: weights, Thresholds: thresholds}
}

// ScorePair scores (r1, p1) against (r2, p2). relativeAnchorBonus is
// 1.0 when the candidate falls within the query's resolved anchor
// neighborhood, 0.0 otherwise; it is supplied by the caller rather
// than recomputed here because it depends on the candidate-recall
// pass, not on the parsed fields alone.
func (s *Scorer) ScorePair(r1 *model.AddressRecord, p1 *model.ParsedAddress, r2 *model.AddressRecord, p2 *model.ParsedAddress, relativeAnchorBonus float64) model.MatchResult {
	fs := map[string]float64{}

	fs[FeatureDistrict] = boolScore(p1.District != "" && p2.District != "" && p1.District == p2.District)
	fs[FeatureAOI] = maxJaccard(p1.AOI, p2.AOI)
	fs[FeatureBuilding] = boolScore(p1.Building != "" && p2.Building != "" && strings.EqualFold(p1.Building, p2.Building))
	fs[FeatureFloor] = boolScore(p1.Floor != "" && p2.Floor != "" && p1.Floor == p2.Floor)
	fs[FeatureRoom] = boolScore(p1.Room != "" && p2.Room != "" && p1.Room == p2.Room)

	roadSim := 0.0
	if p1.Road != "" && p2.Road != "" {
		roadSim = textutil.Jaccard(p1.Road, p2.Road, 2)
	}
	if p1.RoadNo != "" && p2.RoadNo != "" && p1.RoadNo == p2.RoadNo {
		roadSim = max(roadSim, 1.0)
	}
	fs[FeatureRoad] = roadSim

	fs[FeatureShop] = maxJaccard(p1.ShopName, p2.ShopName)

	var dist *float64
	if r1.HasGeo() && r2.HasGeo() {
		d := textutil.HaversineM(*r1.Lat, *r1.Lon, *r2.Lat, *r2.Lon)
		dist = &d
	}
	fs[FeatureGeo] = textutil.GeoScore(dist)

	fs[FeatureRelativeAnchor] = relativeAnchorBonus

	denom := 0.0
	for _, w := range s.Weights {
		if w > 0 {
			denom += w
		}
	}
	if denom == 0 {
		denom = 1.0
	}

	num := 0.0
	for k, w := range s.Weights {
		num += w * fs[k]
	}
	score := num / denom

	return model.MatchResult{
		Decision:      s.decide(score),
		Score:         score,
		FeatureScores: fs,
		Evidence:      map[string]interface{}{},
	}
}

func (s *Scorer) decide(score float64) model.Decision {
	sameTh, ok := s.Thresholds["same"]
	if !ok {
		sameTh = 0.78
	}
	unsureTh, ok := s.Thresholds["unsure"]
	if !ok {
		unsureTh = 0.55
	}
	switch {
	case score >= sameTh:
		return model.DecisionSame
	case score >= unsureTh:
		return model.DecisionUnsure
	default:
		return model.DecisionDifferent
	}
}

func maxJaccard(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return max(textutil.Jaccard(a, b, 2), textutil.Jaccard(a, b, 3))
}

func boolScore(ok bool) float64 {
	if ok {
		return 1.0
	}
	return 0.0
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
