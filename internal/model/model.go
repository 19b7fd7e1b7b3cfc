// Package model defines the data types shared across the address
// resolution pipeline: raw records, parsed fields, scoring results,
// conflicts and the reference gazetteer (roads, POIs, anchors).
package model

// AddressRecord is one raw address submission as ingested from a source
// system, plus whatever geo/admin metadata shipped with it.
type AddressRecord struct {
	RID           string                 `json:"rid" bson:"rid"`
	Source        string                 `json:"source" bson:"source"`
	RawAddress    string                 `json:"raw_address" bson:"raw_address"`
	DistrictClaim string                 `json:"district_claim,omitempty" bson:"district_claim,omitempty"`
	GridDistrict  string                 `json:"grid_district,omitempty" bson:"grid_district,omitempty"`
	Lat           *float64               `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon           *float64               `json:"lon,omitempty" bson:"lon,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty" bson:"extra,omitempty"`
	CreatedAt     string                 `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// HasGeo reports whether the record carries a usable coordinate pair.
func (r *AddressRecord) HasGeo() bool {
	return r != nil && r.Lat != nil && r.Lon != nil
}

// Intersection is a pair of road names describing a crossing, used as
// a relative anchor ("科学大道与天波路交口").
type Intersection struct {
	A string `json:"a" bson:"a"`
	B string `json:"b" bson:"b"`
}

// ParsedAddress is the structured breakdown of an AddressRecord's raw
// text, produced by a Parser implementation.
type ParsedAddress struct {
	NormText     string        `json:"norm_text" bson:"norm_text"`
	Province     string        `json:"province,omitempty" bson:"province,omitempty"`
	City         string        `json:"city,omitempty" bson:"city,omitempty"`
	District     string        `json:"district,omitempty" bson:"district,omitempty"`
	Street       string        `json:"street,omitempty" bson:"street,omitempty"`
	Road         string        `json:"road,omitempty" bson:"road,omitempty"`
	RoadNo       string        `json:"road_no,omitempty" bson:"road_no,omitempty"`
	AOI          string        `json:"aoi,omitempty" bson:"aoi,omitempty"`
	Building     string        `json:"building,omitempty" bson:"building,omitempty"`
	Unit         string        `json:"unit,omitempty" bson:"unit,omitempty"`
	Floor        string        `json:"floor,omitempty" bson:"floor,omitempty"`
	Room         string        `json:"room,omitempty" bson:"room,omitempty"`
	ShopName     string        `json:"shop_name,omitempty" bson:"shop_name,omitempty"`
	Intersection *Intersection `json:"intersection,omitempty" bson:"intersection,omitempty"`
	Direction    string        `json:"direction,omitempty" bson:"direction,omitempty"`
	DistanceM    *int          `json:"distance_m,omitempty" bson:"distance_m,omitempty"`
}

// Decision is the tri-valued outcome of comparing two addresses.
type Decision string

const (
	DecisionSame      Decision = "SAME"
	DecisionUnsure    Decision = "UNSURE"
	DecisionDifferent Decision = "DIFFERENT"
)

// MatchResult is the outcome of scoring or judging a candidate pair.
type MatchResult struct {
	Decision      Decision               `json:"decision"`
	Score         float64                `json:"score"`
	FeatureScores map[string]float64     `json:"feature_scores,omitempty"`
	Evidence      map[string]interface{} `json:"evidence,omitempty"`
}

// Conflict-type constants, matching the checks ConflictChecker performs.
const (
	ConflictGridDistrictMismatch  = "GRID_DISTRICT_MISMATCH"
	ConflictClaimDistrictMismatch = "CLAIM_DISTRICT_MISMATCH"
	ConflictGridDistrictConflict  = "GRID_DISTRICT_CONFLICT"
	ConflictDistrictClaimConflict = "DISTRICT_CLAIM_CONFLICT"
	ConflictParsedDistrictConflict = "PARSED_DISTRICT_CONFLICT"
)

// Conflict flags a data-quality issue found on a single record, or a
// blacklist reason rejecting a candidate pair.
type Conflict struct {
	RID          string `json:"rid" bson:"rid"`
	ConflictType string `json:"conflict_type" bson:"conflict_type"`
	Detail       string `json:"detail" bson:"detail"`
}

// Road is a reference road segment, stored in the repository and
// served by the admin search and alias-suggestion endpoints.
type Road struct {
	RoadID   string   `json:"road_id" bson:"road_id"`
	Name     string   `json:"name" bson:"name"`
	District string   `json:"district,omitempty" bson:"district,omitempty"`
	Aliases  []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}

// POI is a reference point/area of interest (an AOI or a named POI).
type POI struct {
	POIID    string   `json:"poi_id" bson:"poi_id"`
	Name     string   `json:"name" bson:"name"`
	POIType  string   `json:"poi_type,omitempty" bson:"poi_type,omitempty"`
	District string   `json:"district,omitempty" bson:"district,omitempty"`
	Lat      float64  `json:"lat" bson:"lat"`
	Lon      float64  `json:"lon" bson:"lon"`
	Aliases  []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}

// Anchor is a fixed reference point (an intersection or a POI) that
// relative descriptions ("东南方向100米") can be resolved against.
type Anchor struct {
	AnchorID   string   `json:"anchor_id" bson:"anchor_id"`
	AnchorType string   `json:"anchor_type,omitempty" bson:"anchor_type,omitempty"`
	KeyText    string   `json:"key_text" bson:"key_text"`
	District   string   `json:"district,omitempty" bson:"district,omitempty"`
	Lat        *float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty" bson:"lon,omitempty"`
}

// HasGeo reports whether the anchor carries a usable coordinate pair.
func (a *Anchor) HasGeo() bool {
	return a != nil && a.Lat != nil && a.Lon != nil
}

// MatchLogEntry records one pipeline decision for audit/replay.
type MatchLogEntry struct {
	ID             int64                    `json:"id,omitempty" bson:"id,omitempty"`
	RIDQuery       string                   `json:"rid_query" bson:"rid_query"`
	CandidateRIDs  []string                 `json:"candidate_rids" bson:"candidate_rids"`
	PreScores      []map[string]interface{} `json:"pre_scores" bson:"pre_scores"`
	Final          map[string]interface{}   `json:"final" bson:"final"`
	CreatedAt      string                   `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// PairLabel is a supervised same/different label for two rids, used
// to evaluate and tune the scorer.
type PairLabel struct {
	ID    int64  `json:"id,omitempty" bson:"id,omitempty"`
	RID1  string `json:"rid1" bson:"rid1"`
	RID2  string `json:"rid2" bson:"rid2"`
	Label int    `json:"label" bson:"label"`
}

// AliasMap is a canonical-name -> alias-list map as loaded from the
// alias_aoi.json / alias_road.json reference files.
type AliasMap map[string][]string

// LearnedAlias is a candidate alias surfaced by the admin
// alias-suggestion endpoint (a fuzzy near-match of an unmatched name
// against a gazetteer name), pending operator accept/reject review.
type LearnedAlias struct {
	ID         string  `json:"id" bson:"id"`
	Canonical  string  `json:"canonical" bson:"canonical"`
	Alias      string  `json:"alias" bson:"alias"`
	Kind       string  `json:"kind" bson:"kind"` // "aoi" or "road"
	Support    int     `json:"support" bson:"support"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	Accepted   *bool   `json:"accepted,omitempty" bson:"accepted,omitempty"`
}

// ReviewItem queues an UNSURE pipeline decision for human adjudication.
type ReviewItem struct {
	ID         string      `json:"id" bson:"id"`
	RIDQuery   string      `json:"rid_query" bson:"rid_query"`
	RIDCand    string      `json:"rid_cand" bson:"rid_cand"`
	Result     MatchResult `json:"result" bson:"result"`
	Resolved   bool        `json:"resolved" bson:"resolved"`
	Resolution string      `json:"resolution,omitempty" bson:"resolution,omitempty"` // "SAME" or "DIFFERENT"
	CreatedAt  string      `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// Cluster is a set of rids the pipeline believes describe one entity.
type Cluster struct {
	ClusterID string   `json:"cluster_id" bson:"cluster_id"`
	Members   []string `json:"members" bson:"members"`
}
