// Package textutil holds the small, stateless text and geo helpers the
// matching pipeline leans on: normalization, character n-gram
// similarity, and the haversine/direction arithmetic behind the
// geo feature and the relative-anchor offset.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var (
	parenGroup   = regexp.MustCompile(`\([^)]*\)`)
	bracketGroup = regexp.MustCompile(`\[[^\]]*\]`)
	whitespace   = regexp.MustCompile(`\s+`)

	fullWidthDigits = strings.NewReplacer(
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
	)
)

// Normalize folds full-width brackets to half-width, strips
// bracket-enclosed asides, collapses whitespace, folds full-width
// digits, and lower-cases the result. It is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := strings.TrimSpace(text)
	t = strings.NewReplacer("（", "(", "）", ")", "【", "[", "】", "]").Replace(t)
	t = parenGroup.ReplaceAllString(t, " ")
	t = bracketGroup.ReplaceAllString(t, " ")
	t = whitespace.ReplaceAllString(t, " ")
	t = fullWidthDigits.Replace(t)
	return strings.ToLower(strings.TrimSpace(t))
}

// KeyNorm produces a lookup key by lower-casing and removing all
// whitespace, used to match alias/canonical names regardless of
// spacing or case differences.
func KeyNorm(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if !isSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// CharNgramSet returns the set of contiguous n-rune substrings of s
// with whitespace removed. Strings shorter than n collapse to a
// single-element set containing the whole string (or an empty set for
// the empty string).
func CharNgramSet(s string, n int) map[string]struct{} {
	s = whitespace.ReplaceAllString(s, "")
	runes := []rune(s)
	out := map[string]struct{}{}
	if len(runes) == 0 {
		return out
	}
	if len(runes) < n {
		out[s] = struct{}{}
		return out
	}
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])] = struct{}{}
	}
	return out
}

// Jaccard computes the n-gram Jaccard similarity of a and b. Returns 0
// if either input is empty.
func Jaccard(a, b string, n int) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA, setB := CharNgramSet(a, n), CharNgramSet(b, n)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// lat/lon points.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := lat1*math.Pi/180, lat2*math.Pi/180
	dphi := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dphi/2)*math.Sin(dphi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dl/2)*math.Sin(dl/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// GeoScore maps a distance in meters to the stepwise geo-proximity
// feature score used by the pair scorer. A nil distance (unknown)
// scores 0.
func GeoScore(distM *float64) float64 {
	if distM == nil {
		return 0
	}
	d := *distM
	switch {
	case d <= 30:
		return 1.0
	case d <= 80:
		return 0.7
	case d <= 200:
		return 0.4
	default:
		return 0
	}
}

// DirectionVector maps a Chinese compass direction word to a direction
// vector in (dLat, dLon) space with components in {-1, 0, 1}:
// north/south affect latitude (north positive), east/west affect
// longitude (east positive). Diagonal directions combine both axes (so
// their length is √2; OffsetLatLon normalizes); an unrecognized
// direction is the zero vector.
func DirectionVector(direction string) (dLat, dLon float64) {
	switch strings.TrimSpace(direction) {
	case "东":
		return 0, 1
	case "西":
		return 0, -1
	case "南":
		return -1, 0
	case "北":
		return 1, 0
	case "东北":
		return 1, 1
	case "西北":
		return 1, -1
	case "东南":
		return -1, 1
	case "西南":
		return -1, -1
	default:
		return 0, 0
	}
}

// OffsetLatLon applies a planar displacement of distM meters in the
// given compass direction from (lat, lon), using the flat-earth
// approximation appropriate for sub-kilometer offsets: 1 degree of
// latitude is ~111km everywhere, 1 degree of longitude is ~111km *
// cos(latitude), floored at cos==0.2 to avoid blow-up near the poles.
func OffsetLatLon(lat, lon float64, direction string, distM float64) (float64, float64) {
	dLatU, dLonU := DirectionVector(direction)
	norm := math.Sqrt(dLatU*dLatU + dLonU*dLonU)
	if norm == 0 {
		norm = 1.0
	}
	dLatU /= norm
	dLonU /= norm

	dLat := (distM * dLatU) / 111000.0
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.2 {
		cosLat = 0.2
	}
	dLon := (distM * dLonU) / (111000.0 * cosLat)

	return lat + dLat, lon + dLon
}
