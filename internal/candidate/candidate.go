// Package candidate builds the inverted indexes used for candidate
// recall (district, AOI, building, road, geo) and looks up the small
// set of records plausibly describing the same entity as a query
// record, before scoring ever runs.
package candidate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tanxiaobing-hl/address-audit/internal/alias"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

// Row pairs a raw record with its parsed fields, the unit the
// generator and pipeline both operate over.
type Row struct {
	Record *model.AddressRecord
	Parsed *model.ParsedAddress
}

// Indexes is the set of inverted indexes built over a record batch.
type Indexes struct {
	District map[string][]string
	AOI      map[string][]string
	Building map[string][]string
	Road     map[string][]string
	Geo      map[string][]string
}

func newIndexes() *Indexes {
	return &Indexes{
		District: map[string][]string{},
		AOI:      map[string][]string{},
		Building: map[string][]string{},
		Road:     map[string][]string{},
		Geo:      map[string][]string{},
	}
}

// Generator recalls a bounded set of candidate rids for a query
// record, using district/AOI/building/road exact-ish matches and a
// 3x3 geo-bucket neighborhood expansion.
type Generator struct {
	gridPrecision int
	aoiRev        alias.ReverseIndex
	roadRev       alias.ReverseIndex
}

func NewGenerator(gridPrecision int, aoiAliases, roadAliases model.AliasMap) *Generator {
	return &Generator{
		gridPrecision: gridPrecision,
		aoiRev:        alias.BuildReverseIndex(aoiAliases),
		roadRev:       alias.BuildReverseIndex(roadAliases),
	}
}

// CanonicalAOI maps a parsed AOI name to its canonical form.
func (g *Generator) CanonicalAOI(aoi string) string {
	if aoi == "" {
		return ""
	}
	return g.aoiRev.Canonicalize(aoi)
}

// CanonicalRoad maps a parsed road name to its canonical form.
func (g *Generator) CanonicalRoad(road string) string {
	if road == "" {
		return ""
	}
	return g.roadRev.Canonicalize(road)
}

// GeoBucket rounds a coordinate pair to the configured grid precision
// and returns its bucket id, or "" if either coordinate is missing.
func (g *Generator) GeoBucket(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return g.geoBucketF(*lat, *lon)
}

func (g *Generator) geoBucketF(lat, lon float64) string {
	return fmt.Sprintf("%s_%s", roundStr(lat, g.gridPrecision), roundStr(lon, g.gridPrecision))
}

func roundStr(v float64, precision int) string {
	return strconv.FormatFloat(round(v, precision), 'f', precision, 64)
}

func round(v float64, precision int) float64 {
	p := pow10(precision)
	if v >= 0 {
		return float64(int64(v*p+0.5)) / p
	}
	return float64(int64(v*p-0.5)) / p
}

func pow10(n int) float64 {
	p := 1.0
	for i := 0; i < n; i++ {
		p *= 10
	}
	for i := 0; i > n; i-- {
		p /= 10
	}
	return p
}

// GeoNeighbors returns the 3x3 neighborhood of geo buckets (including
// bucket itself) one grid step in every direction, at the generator's
// configured precision.
func (g *Generator) GeoNeighbors(bucket string) []string {
	lat, lon, ok := parseBucket(bucket)
	if !ok {
		return []string{bucket}
	}
	step := 1.0
	for i := 0; i < g.gridPrecision; i++ {
		step /= 10
	}
	out := make([]string, 0, 9)
	for _, dlat := range []float64{-step, 0, step} {
		for _, dlon := range []float64{-step, 0, step} {
			out = append(out, g.geoBucketF(lat+dlat, lon+dlon))
		}
	}
	return out
}

func parseBucket(bucket string) (lat, lon float64, ok bool) {
	parts := strings.SplitN(bucket, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	var err error
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// BuildIndexes constructs the district/AOI/building/road/geo inverted
// indexes over rows, canonicalizing AOI/road names through the
// alias reverse index.
func (g *Generator) BuildIndexes(rows []Row) *Indexes {
	idx := newIndexes()
	for _, row := range rows {
		rid := row.Record.RID
		p := row.Parsed

		if p.District != "" {
			idx.District[p.District] = append(idx.District[p.District], rid)
		}
		if p.AOI != "" {
			key := textutil.KeyNorm(g.CanonicalAOI(p.AOI))
			idx.AOI[key] = append(idx.AOI[key], rid)
		}
		if p.Building != "" {
			key := strings.ToUpper(p.Building)
			idx.Building[key] = append(idx.Building[key], rid)
		}
		if p.Road != "" {
			key := textutil.KeyNorm(g.CanonicalRoad(p.Road))
			idx.Road[key] = append(idx.Road[key], rid)
		}
		if gb := g.GeoBucket(row.Record.Lat, row.Record.Lon); gb != "" {
			idx.Geo[gb] = append(idx.Geo[gb], rid)
		}
	}
	return idx
}

// RelativeAnchorBucket offsets an anchor's coordinates by a parsed
// direction/distance and buckets the result, for use as a candidate
// search seed when the address is described relative to a landmark.
func (g *Generator) RelativeAnchorBucket(anchorLat, anchorLon float64, direction string, distanceM *int) string {
	lat, lon := anchorLat, anchorLon
	if direction != "" && distanceM != nil {
		lat, lon = textutil.OffsetLatLon(anchorLat, anchorLon, direction, float64(*distanceM))
	}
	return g.geoBucketF(lat, lon)
}

// CandidatesFor recalls candidate rids for rec/p from idx, restricted
// to the seen set (records already fully processed by the pipeline),
// excluding rec itself, and capped at maxCandidates.
func (g *Generator) CandidatesFor(rec *model.AddressRecord, p *model.ParsedAddress, idx *Indexes, seen map[string]struct{}, anchorBucket string, maxCandidates int) []string {
	cand := map[string]struct{}{}

	if p.District != "" {
		for _, rid := range idx.District[p.District] {
			cand[rid] = struct{}{}
		}
	}
	if p.AOI != "" {
		key := textutil.KeyNorm(g.CanonicalAOI(p.AOI))
		for _, rid := range idx.AOI[key] {
			cand[rid] = struct{}{}
		}
	}
	if p.Building != "" {
		key := strings.ToUpper(p.Building)
		for _, rid := range idx.Building[key] {
			cand[rid] = struct{}{}
		}
	}
	if p.Road != "" {
		key := textutil.KeyNorm(g.CanonicalRoad(p.Road))
		for _, rid := range idx.Road[key] {
			cand[rid] = struct{}{}
		}
	}
	if gb := g.GeoBucket(rec.Lat, rec.Lon); gb != "" {
		for _, nb := range g.GeoNeighbors(gb) {
			for _, rid := range idx.Geo[nb] {
				cand[rid] = struct{}{}
			}
		}
	}
	if anchorBucket != "" {
		for _, nb := range g.GeoNeighbors(anchorBucket) {
			for _, rid := range idx.Geo[nb] {
				cand[rid] = struct{}{}
			}
		}
	}

	delete(cand, rec.RID)

	out := make([]string, 0, len(cand))
	for rid := range cand {
		if _, ok := seen[rid]; ok {
			out = append(out, rid)
		}
	}
	sort.Strings(out)
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}
