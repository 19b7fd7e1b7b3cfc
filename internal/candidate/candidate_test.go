package candidate

import (
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func f(v float64) *float64 { return &v }

func TestGeoBucketRoundsToPrecision(t *testing.T) {
	g := NewGenerator(3, nil, nil)
	got := g.GeoBucket(f(31.82041), f(117.12894))
	if got != "31.820_117.129" {
		t.Fatalf("unexpected bucket: %q", got)
	}
}

func TestGeoBucketMissingCoordsEmpty(t *testing.T) {
	g := NewGenerator(3, nil, nil)
	if got := g.GeoBucket(nil, f(1)); got != "" {
		t.Fatalf("expected empty bucket, got %q", got)
	}
}

func TestGeoNeighborsReturnsNine(t *testing.T) {
	g := NewGenerator(3, nil, nil)
	nbs := g.GeoNeighbors("31.820_117.129")
	if len(nbs) != 9 {
		t.Fatalf("expected 9 neighbors, got %d", len(nbs))
	}
	found := false
	for _, nb := range nbs {
		if nb == "31.820_117.129" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bucket itself among neighbors")
	}
}

func TestCandidatesForCanonicalizesAOIAndRoad(t *testing.T) {
	aoiAlias := model.AliasMap{"高新创新园": {"创新园"}}
	roadAlias := model.AliasMap{"创新大道": {"Chuangxin Ave"}}
	g := NewGenerator(3, aoiAlias, roadAlias)

	rows := []Row{
		{
			Record: &model.AddressRecord{RID: "rid0001", Lat: f(31.82), Lon: f(117.13)},
			Parsed: &model.ParsedAddress{AOI: "高新创新园", Road: "创新大道", District: "蜀山区"},
		},
	}
	idx := g.BuildIndexes(rows)

	query := &model.AddressRecord{RID: "rid0002", Lat: f(31.82), Lon: f(117.13)}
	parsed := &model.ParsedAddress{AOI: "创新园", Road: "Chuangxin Ave", District: "蜀山区"}
	seen := map[string]struct{}{"rid0001": {}}

	cands := g.CandidatesFor(query, parsed, idx, seen, "", 10)
	if len(cands) != 1 || cands[0] != "rid0001" {
		t.Fatalf("expected candidate rid0001 via alias canonicalization, got %v", cands)
	}
}

func TestCandidatesForExcludesSelfAndUnseen(t *testing.T) {
	g := NewGenerator(3, nil, nil)
	rows := []Row{
		{Record: &model.AddressRecord{RID: "a", Lat: f(31.82), Lon: f(117.13)}, Parsed: &model.ParsedAddress{District: "蜀山区"}},
		{Record: &model.AddressRecord{RID: "b", Lat: f(31.82), Lon: f(117.13)}, Parsed: &model.ParsedAddress{District: "蜀山区"}},
	}
	idx := g.BuildIndexes(rows)

	seen := map[string]struct{}{"a": {}} // b not yet seen
	cands := g.CandidatesFor(&model.AddressRecord{RID: "a", Lat: f(31.82), Lon: f(117.13)}, &model.ParsedAddress{District: "蜀山区"}, idx, seen, "", 10)
	if len(cands) != 0 {
		t.Fatalf("expected no candidates (self excluded, b unseen), got %v", cands)
	}
}

func TestCandidatesForRespectsMaxCandidates(t *testing.T) {
	g := NewGenerator(3, nil, nil)
	rows := []Row{
		{Record: &model.AddressRecord{RID: "a"}, Parsed: &model.ParsedAddress{District: "蜀山区"}},
		{Record: &model.AddressRecord{RID: "b"}, Parsed: &model.ParsedAddress{District: "蜀山区"}},
		{Record: &model.AddressRecord{RID: "c"}, Parsed: &model.ParsedAddress{District: "蜀山区"}},
	}
	idx := g.BuildIndexes(rows)
	seen := map[string]struct{}{"a": {}, "b": {}, "c": {}}

	cands := g.CandidatesFor(&model.AddressRecord{RID: "d"}, &model.ParsedAddress{District: "蜀山区"}, idx, seen, "", 2)
	if len(cands) != 2 {
		t.Fatalf("expected candidates capped at 2, got %d", len(cands))
	}
}
