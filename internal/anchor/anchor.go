// Package anchor resolves a parsed address's relative-location cues
// (an intersection, or a named AOI) to a fixed geo anchor, then
// offsets that anchor by the parsed direction/distance to produce the
// geo bucket a candidate search should expand around.
package anchor

import (
	"context"
	"sort"
	"strings"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// Lookup finds a reference anchor by its key text ("天波路|科学大道" for
// an intersection, or an AOI name for a POI anchor). Implemented by
// internal/repository against the anchors table/collection.
type Lookup interface {
	FindAnchorByKey(ctx context.Context, keyText string) (*model.Anchor, error)
}

// BucketFunc buckets a lat/lon pair into the candidate index's geo
// grid, and OffsetFunc applies a direction/distance displacement.
// The bucket function is supplied by internal/candidate so anchor
// resolution shares exactly the same grid as the index it feeds; the
// offset function is internal/textutil's OffsetLatLon.
type BucketFunc func(lat, lon float64) string
type OffsetFunc func(lat, lon float64, direction string, distM float64) (float64, float64)

// Resolver resolves the geo bucket a parsed address's relative
// location description points at, if any.
type Resolver struct {
	lookup Lookup
	bucket BucketFunc
	offset OffsetFunc
}

func NewResolver(lookup Lookup, bucket BucketFunc, offset OffsetFunc) *Resolver {
	return &Resolver{lookup: lookup, bucket: bucket, offset: offset}
}

// IntersectionKey builds the canonical lookup key for an intersection
// pair: the two road names sorted, joined with "|", so "A|B" and "B|A"
// resolve to the same anchor.
func IntersectionKey(a, b string) string {
	parts := []string{a, b}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// ResolveBucket resolves the anchor bucket for a parsed address: it
// prefers an intersection anchor, falling back to an AOI-named anchor,
// and returns "" if neither resolves to a known anchor.
func (r *Resolver) ResolveBucket(ctx context.Context, p *model.ParsedAddress) (string, error) {
	if p == nil {
		return "", nil
	}

	if p.Intersection != nil && p.Intersection.A != "" && p.Intersection.B != "" {
		key := IntersectionKey(p.Intersection.A, p.Intersection.B)
		a, err := r.lookup.FindAnchorByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if a != nil {
			return r.bucketFor(a, p), nil
		}
	}

	if p.AOI != "" {
		a, err := r.lookup.FindAnchorByKey(ctx, p.AOI)
		if err != nil {
			return "", err
		}
		if a != nil {
			return r.bucketFor(a, p), nil
		}
	}

	return "", nil
}

func (r *Resolver) bucketFor(a *model.Anchor, p *model.ParsedAddress) string {
	if !a.HasGeo() {
		return ""
	}
	lat, lon := *a.Lat, *a.Lon
	if p.Direction != "" && p.DistanceM != nil {
		lat, lon = r.offset(lat, lon, p.Direction, float64(*p.DistanceM))
	}
	return r.bucket(lat, lon)
}
