package scoring

import (
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func geo(v float64) *float64 { return &v }

func defaultWeights() map[string]float64 {
	return map[string]float64{
		FeatureDistrict:       1.0,
		FeatureAOI:            1.5,
		FeatureBuilding:       2.0,
		FeatureFloor:          1.0,
		FeatureRoom:           1.5,
		FeatureRoad:           1.0,
		FeatureShop:           0.5,
		FeatureGeo:            2.0,
		FeatureRelativeAnchor: 1.0,
	}
}

func defaultThresholds() map[string]float64 {
	return map[string]float64{"same": 0.78, "unsure": 0.55}
}

func TestScorePairIdenticalIsSame(t *testing.T) {
	s := New(defaultWeights(), defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1", Lat: geo(31.82), Lon: geo(117.13)}
	r2 := &model.AddressRecord{RID: "r2", Lat: geo(31.82), Lon: geo(117.13)}
	p := &model.ParsedAddress{District: "蜀山区", AOI: "高新创新园", Building: "F9A", Floor: "2", Room: "203", Road: "创新大道", ShopName: "惠康大药房"}

	result := s.ScorePair(r1, p, r2, p, 1.0)
	if result.Decision != model.DecisionSame {
		t.Fatalf("expected SAME for identical parse, got %v (score=%v)", result.Decision, result.Score)
	}
	if result.Score < 0.99 {
		t.Fatalf("expected near-1.0 score for identical input, got %v", result.Score)
	}
}

func TestScorePairEmptyBothIsDifferent(t *testing.T) {
	s := New(defaultWeights(), defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1"}
	r2 := &model.AddressRecord{RID: "r2"}
	result := s.ScorePair(r1, &model.ParsedAddress{}, r2, &model.ParsedAddress{}, 0.0)
	if result.Score != 0 {
		t.Fatalf("expected 0 score for two empty parses, got %v", result.Score)
	}
	if result.Decision != model.DecisionDifferent {
		t.Fatalf("expected DIFFERENT, got %v", result.Decision)
	}
}

func TestScorePairSymmetric(t *testing.T) {
	s := New(defaultWeights(), defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1", Lat: geo(31.82), Lon: geo(117.13)}
	r2 := &model.AddressRecord{RID: "r2", Lat: geo(31.8201), Lon: geo(117.1301)}
	p1 := &model.ParsedAddress{District: "蜀山区", AOI: "高新创新园", Building: "F9A", Road: "创新大道"}
	p2 := &model.ParsedAddress{District: "蜀山区", AOI: "创新园", Building: "F9A", Road: "创新大道"}

	fwd := s.ScorePair(r1, p1, r2, p2, 0.0)
	rev := s.ScorePair(r2, p2, r1, p1, 0.0)
	if fwd.Score != rev.Score {
		t.Fatalf("expected symmetric score, got %v vs %v", fwd.Score, rev.Score)
	}
}

func TestScorePairBuildingCaseInsensitive(t *testing.T) {
	s := New(defaultWeights(), defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1"}
	r2 := &model.AddressRecord{RID: "r2"}
	p1 := &model.ParsedAddress{Building: "f9a"}
	p2 := &model.ParsedAddress{Building: "F9A"}
	result := s.ScorePair(r1, p1, r2, p2, 0.0)
	if result.FeatureScores[FeatureBuilding] != 1.0 {
		t.Fatalf("expected building match case-insensitively")
	}
}

func TestDecideThresholdBoundaries(t *testing.T) {
	s := New(map[string]float64{"district": 1.0}, defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1"}
	r2 := &model.AddressRecord{RID: "r2"}

	same := s.ScorePair(r1, &model.ParsedAddress{District: "蜀山区"}, r2, &model.ParsedAddress{District: "蜀山区"}, 0.0)
	if same.Decision != model.DecisionSame {
		t.Fatalf("expected SAME at score 1.0, got %v", same.Decision)
	}

	different := s.ScorePair(r1, &model.ParsedAddress{District: "蜀山区"}, r2, &model.ParsedAddress{District: "瑶海区"}, 0.0)
	if different.Decision != model.DecisionDifferent {
		t.Fatalf("expected DIFFERENT at score 0.0, got %v", different.Decision)
	}
}

func TestDenomFallsBackToOneWhenAllWeightsNonPositive(t *testing.T) {
	s := New(map[string]float64{"district": -1.0, "aoi": 0.0}, defaultThresholds())
	r1 := &model.AddressRecord{RID: "r1"}
	r2 := &model.AddressRecord{RID: "r2"}
	result := s.ScorePair(r1, &model.ParsedAddress{District: "蜀山区"}, r2, &model.ParsedAddress{District: "蜀山区"}, 0.0)
	// num = -1*1.0 = -1, denom falls back to 1.0 since no weight is > 0
	if result.Score != -1.0 {
		t.Fatalf("expected denom fallback to 1.0 giving score -1.0, got %v", result.Score)
	}
}
