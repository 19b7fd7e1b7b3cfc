package parser

import "testing"

func TestBuildParsedAssignsNonEmptyFields(t *testing.T) {
	road := "创新大道"
	floor := "2"
	p := buildParsed("raw text", llmParsedFields{Road: &road, Floor: &floor, Intersection: []string{"科学大道", "天波路"}})

	if p.Road != "创新大道" {
		t.Fatalf("expected road assigned, got %q", p.Road)
	}
	if p.Floor != "2" {
		t.Fatalf("expected floor assigned, got %q", p.Floor)
	}
	if p.Intersection == nil || p.Intersection.A != "科学大道" || p.Intersection.B != "天波路" {
		t.Fatalf("expected intersection assigned, got %+v", p.Intersection)
	}
}

func TestBuildParsedIgnoresEmptyStrings(t *testing.T) {
	empty := ""
	p := buildParsed("raw", llmParsedFields{Road: &empty})
	if p.Road != "" {
		t.Fatalf("expected empty string field left unset, got %q", p.Road)
	}
}

func TestBuildParsedIgnoresMalformedIntersection(t *testing.T) {
	p := buildParsed("raw", llmParsedFields{Intersection: []string{"只有一个"}})
	if p.Intersection != nil {
		t.Fatalf("expected nil intersection for malformed array, got %+v", p.Intersection)
	}
}
