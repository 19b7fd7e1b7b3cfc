package gazetteer

import (
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func TestSeedRoadsRejectsEmptyInput(t *testing.T) {
	s := &Searcher{}
	if err := s.SeedRoads(nil); err == nil {
		t.Fatalf("expected error seeding empty road list")
	}
}

func TestSeedPOIsRejectsEmptyInput(t *testing.T) {
	s := &Searcher{}
	if err := s.SeedPOIs(nil); err == nil {
		t.Fatalf("expected error seeding empty poi list")
	}
}

func TestSeedAnchorsRejectsEmptyInput(t *testing.T) {
	s := &Searcher{}
	if err := s.SeedAnchors(nil); err == nil {
		t.Fatalf("expected error seeding empty anchor list")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := &Searcher{}
	if _, err := s.Search("", "road", 10); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestStringFieldExtractsAndDefaults(t *testing.T) {
	m := map[string]interface{}{"name": "创新大道", "count": 5}
	if got := stringField(m, "name"); got != "创新大道" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := stringField(m, "count"); got != "" {
		t.Fatalf("expected empty string for non-string field, got %q", got)
	}
	if got := stringField(m, "missing"); got != "" {
		t.Fatalf("expected empty string for missing field, got %q", got)
	}
}

func TestRoadFixtureKeepsIDAndName(t *testing.T) {
	road := model.Road{RoadID: "r1", Name: "创新大道", District: "蜀山区", Aliases: []string{"创新路"}}
	if road.RoadID != "r1" || road.Name != "创新大道" {
		t.Fatalf("unexpected road fixture: %+v", road)
	}
}
