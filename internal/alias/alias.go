// Package alias builds reverse alias indexes (alias text -> canonical
// name) from the AOI/road alias reference maps, and loads those maps
// from JSON on disk.
package alias

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

// LoadMap reads a canonical-name -> alias-list JSON file, the same
// shape as alias_aoi.json / alias_road.json.
func LoadMap(path string) (model.AliasMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("alias: read %s: %w", path, err)
	}
	var m model.AliasMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("alias: parse %s: %w", path, err)
	}
	return m, nil
}

// ReverseIndex maps a key-normalized alias (or canonical name) to its
// canonical display name.
type ReverseIndex map[string]string

// BuildReverseIndex flattens a canonical->aliases map into an
// alias(keynorm)->canonical lookup. Canonical names map to themselves
// so callers can look up a name whether or not it is itself an alias.
func BuildReverseIndex(m model.AliasMap) ReverseIndex {
	rev := make(ReverseIndex, len(m)*2)
	for canon, aliases := range m {
		rev[textutil.KeyNorm(canon)] = canon
		for _, a := range aliases {
			rev[textutil.KeyNorm(a)] = canon
		}
	}
	return rev
}

// Canonicalize maps name to its canonical form via the reverse index,
// or returns name unchanged if it is not present.
func (r ReverseIndex) Canonicalize(name string) string {
	if name == "" {
		return ""
	}
	if canon, ok := r[textutil.KeyNorm(name)]; ok {
		return canon
	}
	return name
}
