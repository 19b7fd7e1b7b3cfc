// Package fuzzy scores near-miss name variants for alias-learning
// suggestions: when a road or AOI name almost matches a canonical
// gazetteer entry but not quite, this blends Jaro-Winkler and
// Levenshtein similarity to rank candidate aliases for operator
// review. It never touches the core pair scorer — that uses exact
// string/Jaccard comparisons only.
package fuzzy

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mozillazg/go-unidecode"
	"github.com/xrash/smetrics"
)

const (
	jaroWinklerWeight = 0.7
	levenshteinWeight = 0.3
	boostThreshold    = 0.7
	boostPrefixSize   = 4
)

// Unaccent folds non-Latin/accented text down to a plain ASCII form
// for cross-script fuzzy comparison.
func Unaccent(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// Similarity blends Jaro-Winkler with normalized Levenshtein distance,
// both computed on unaccented lowercase text.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = Unaccent(a), Unaccent(b)
	if a == b {
		return 1
	}

	jw := smetrics.JaroWinkler(a, b, boostThreshold, boostPrefixSize)

	ld := levenshtein.ComputeDistance(a, b)
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	lev := 1.0 - float64(ld)/float64(denom)

	return jaroWinklerWeight*jw + levenshteinWeight*lev
}

// Suggestion is a candidate alias match surfaced for operator review.
type Suggestion struct {
	Canonical  string  `json:"canonical"`
	Variant    string  `json:"variant"`
	Similarity float64 `json:"similarity"`
}

// SuggestAliases compares an unresolved name against a list of known
// canonical names and returns those above minSimilarity, best first.
func SuggestAliases(name string, canonicals []string, minSimilarity float64) []Suggestion {
	var out []Suggestion
	for _, c := range canonicals {
		s := Similarity(name, c)
		if s >= minSimilarity {
			out = append(out, Suggestion{Canonical: c, Variant: name, Similarity: s})
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Similarity > out[j-1].Similarity; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
