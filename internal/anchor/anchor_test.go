package anchor

import (
	"context"
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

type fakeLookup struct {
	byKey map[string]*model.Anchor
}

func (f *fakeLookup) FindAnchorByKey(ctx context.Context, keyText string) (*model.Anchor, error) {
	return f.byKey[keyText], nil
}

func geoPtr(v float64) *float64 { return &v }

func TestResolveBucketIntersection(t *testing.T) {
	lookup := &fakeLookup{byKey: map[string]*model.Anchor{
		"天波路|科学大道": {AnchorID: "a1", KeyText: "天波路|科学大道", Lat: geoPtr(31.8204), Lon: geoPtr(117.1292)},
	}}

	var gotLat, gotLon float64
	bucket := func(lat, lon float64) string {
		gotLat, gotLon = lat, lon
		return "31.8204_117.1292"
	}
	offset := func(lat, lon float64, direction string, distM float64) (float64, float64) {
		return lat + 0.001, lon + 0.001
	}

	r := NewResolver(lookup, bucket, offset)
	dist := 40
	p := &model.ParsedAddress{
		Intersection: &model.Intersection{A: "科学大道", B: "天波路"},
		Direction:    "西北",
		DistanceM:    &dist,
	}

	got, err := r.ResolveBucket(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "31.8204_117.1292" {
		t.Fatalf("expected resolved bucket, got %q", got)
	}
	if gotLat <= 31.8204 || gotLon <= 117.1292 {
		t.Fatalf("expected offset applied before bucketing, got %v,%v", gotLat, gotLon)
	}
}

func TestResolveBucketNoAnchorIsEmpty(t *testing.T) {
	lookup := &fakeLookup{byKey: map[string]*model.Anchor{}}
	r := NewResolver(lookup, func(lat, lon float64) string { return "x" }, func(lat, lon float64, d string, m float64) (float64, float64) { return lat, lon })

	got, err := r.ResolveBucket(context.Background(), &model.ParsedAddress{AOI: "未知园区"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty bucket for unresolved anchor, got %q", got)
	}
}

func TestResolveBucketAnchorWithoutGeoIsEmpty(t *testing.T) {
	lookup := &fakeLookup{byKey: map[string]*model.Anchor{
		"名儒学校中学部": {AnchorID: "a3", KeyText: "名儒学校中学部"},
	}}
	called := false
	bucket := func(lat, lon float64) string { called = true; return "should-not-be-called" }
	offset := func(lat, lon float64, direction string, distM float64) (float64, float64) { return lat, lon }

	r := NewResolver(lookup, bucket, offset)
	got, err := r.ResolveBucket(context.Background(), &model.ParsedAddress{AOI: "名儒学校中学部"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty bucket for a coord-less anchor, got %q", got)
	}
	if called {
		t.Fatalf("expected bucket func not to be called for a coord-less anchor")
	}
}

func TestIntersectionKeyOrderIndependent(t *testing.T) {
	if IntersectionKey("科学大道", "天波路") != IntersectionKey("天波路", "科学大道") {
		t.Fatalf("expected intersection key to be order independent")
	}
}
