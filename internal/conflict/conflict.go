// Package conflict detects data-quality conflicts on a single record
// (claimed vs. parsed district mismatches) and pairwise blacklist
// conflicts the judge uses to reject otherwise-plausible candidates.
package conflict

import (
	"fmt"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// Checker performs both the per-record quality check and the pairwise
// blacklist check the judge consults before trusting a candidate.
type Checker struct{}

func NewChecker() *Checker { return &Checker{} }

// Check reports conflicts between a record's claimed/grid district and
// its parsed district.
func (c *Checker) Check(rec *model.AddressRecord, parsed *model.ParsedAddress) []model.Conflict {
	var conflicts []model.Conflict

	if rec.GridDistrict != "" && parsed.District != "" && rec.GridDistrict != parsed.District {
		conflicts = append(conflicts, model.Conflict{
			RID:          rec.RID,
			ConflictType: model.ConflictGridDistrictMismatch,
			Detail:       fmt.Sprintf("grid_district=%s vs parsed_district=%s", rec.GridDistrict, parsed.District),
		})
	}
	if rec.DistrictClaim != "" && parsed.District != "" && rec.DistrictClaim != parsed.District {
		conflicts = append(conflicts, model.Conflict{
			RID:          rec.RID,
			ConflictType: model.ConflictClaimDistrictMismatch,
			Detail:       fmt.Sprintf("district_claim=%s vs parsed_district=%s", rec.DistrictClaim, parsed.District),
		})
	}
	return conflicts
}

// PairConflictReason returns a non-empty reason if query and candidate
// carry contradictory district information — grid district, claimed
// district, or parsed district — that rules out them being the same
// entity regardless of how similar their other fields look.
func (c *Checker) PairConflictReason(queryRec *model.AddressRecord, queryParsed *model.ParsedAddress, candRec *model.AddressRecord, candParsed *model.ParsedAddress) string {
	if queryRec.GridDistrict != "" && candRec.GridDistrict != "" && queryRec.GridDistrict != candRec.GridDistrict {
		return fmt.Sprintf("%s: %s vs %s", model.ConflictGridDistrictConflict, queryRec.GridDistrict, candRec.GridDistrict)
	}
	if queryRec.DistrictClaim != "" && candRec.DistrictClaim != "" && queryRec.DistrictClaim != candRec.DistrictClaim {
		return fmt.Sprintf("%s: %s vs %s", model.ConflictDistrictClaimConflict, queryRec.DistrictClaim, candRec.DistrictClaim)
	}
	if queryParsed.District != "" && candParsed.District != "" && queryParsed.District != candParsed.District {
		return fmt.Sprintf("%s: %s vs %s", model.ConflictParsedDistrictConflict, queryParsed.District, candParsed.District)
	}
	return ""
}
