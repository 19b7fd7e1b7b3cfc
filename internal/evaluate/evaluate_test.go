package evaluate

import (
	"context"
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

type fakeStore struct {
	labels  []model.PairLabel
	records map[string]*model.AddressRecord
	parsed  map[string]*model.ParsedAddress
}

func (s *fakeStore) ListPairLabels(ctx context.Context) ([]model.PairLabel, error) {
	return s.labels, nil
}

func (s *fakeStore) GetRecord(ctx context.Context, rid string) (*model.AddressRecord, error) {
	return s.records[rid], nil
}

func (s *fakeStore) GetParsed(ctx context.Context, rid string) (*model.ParsedAddress, error) {
	return s.parsed[rid], nil
}

func testWeights() map[string]float64 {
	return map[string]float64{
		"district": 0.15, "aoi": 0.20, "building": 0.15, "floor": 0.05,
		"room": 0.05, "road": 0.15, "shop": 0.05, "geo": 0.15, "relative_anchor": 0.05,
	}
}

func buildStore() *fakeStore {
	return &fakeStore{
		labels: []model.PairLabel{
			{RID1: "r1", RID2: "r2", Label: 1},
			{RID1: "r3", RID2: "r4", Label: 0},
		},
		records: map[string]*model.AddressRecord{
			"r1": {RID: "r1"}, "r2": {RID: "r2"}, "r3": {RID: "r3"}, "r4": {RID: "r4"},
		},
		parsed: map[string]*model.ParsedAddress{
			"r1": {District: "蜀山区", Road: "创新大道", AOI: "阳光花园", Building: "3栋"},
			"r2": {District: "蜀山区", Road: "创新大道", AOI: "阳光花园", Building: "3栋"},
			"r3": {District: "蜀山区", Road: "创新大道", AOI: "阳光花园", Building: "3栋"},
			"r4": {District: "包河区", Road: "徽州大道", AOI: "滨湖明珠", Building: "8栋"},
		},
	}
}

func TestCurrentComputesConfusionMatrix(t *testing.T) {
	store := buildStore()
	thresholds := map[string]float64{"same": 0.6, "unsure": 0.4}

	m, err := Current(context.Background(), store, testWeights(), thresholds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TP != 1 {
		t.Fatalf("expected 1 true positive, got %+v", m)
	}
	if m.TN != 1 {
		t.Fatalf("expected 1 true negative, got %+v", m)
	}
	if m.F1 != 1.0 {
		t.Fatalf("expected perfect F1 on this separable fixture, got %f", m.F1)
	}
}

func TestGridSearchRejectsUnsureAboveSame(t *testing.T) {
	store := buildStore()

	best, err := GridSearch(context.Background(), store, testWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best == nil {
		t.Fatalf("expected a best configuration")
	}
	if best.Thresholds["unsure"] >= best.Thresholds["same"] {
		t.Fatalf("expected unsure threshold strictly below same threshold, got %+v", best.Thresholds)
	}
}

func TestGridSearchSkipsMissingRecords(t *testing.T) {
	store := &fakeStore{
		labels:  []model.PairLabel{{RID1: "ghost1", RID2: "ghost2", Label: 1}},
		records: map[string]*model.AddressRecord{},
		parsed:  map[string]*model.ParsedAddress{},
	}

	best, err := GridSearch(context.Background(), store, testWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Metrics.TP+best.Metrics.FP+best.Metrics.TN+best.Metrics.FN != 0 {
		t.Fatalf("expected missing records to be skipped, got %+v", best.Metrics)
	}
}
