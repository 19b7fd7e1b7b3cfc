// Package judge makes the final SAME/UNSURE/DIFFERENT call for a
// query record against its ranked candidates: a blacklist pass drops
// candidates with contradictory district evidence, a whitelist pass
// fast-paths high-confidence structural matches, an optional LLM pass
// arbitrates what's left, and a best-pre-score fallback chain covers
// everything else.
package judge

import (
	"context"
	"strings"

	"github.com/tanxiaobing-hl/address-audit/internal/candidate"
	"github.com/tanxiaobing-hl/address-audit/internal/conflict"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

// LLMJudge arbitrates a query against its candidates when rule-based
// matching leaves the outcome ambiguous. Implemented by
// internal/parser's LLM adapter.
type LLMJudge interface {
	Judge(ctx context.Context, query candidate.Row, candidates []candidate.Row, preScores []model.MatchResult) (*model.MatchResult, error)
}

// Judge is the arbitration chain described above.
type Judge struct {
	conflictChecker *conflict.Checker
	llm             LLMJudge
}

func New(llm LLMJudge) *Judge {
	return &Judge{conflictChecker: conflict.NewChecker(), llm: llm}
}

// Judge picks a final decision for query against candidates, given
// their pre-computed pair scores (candidates and preScores must be the
// same length and in the same order). useLLM enables the LLM
// tiebreak pass; it has no effect if no LLMJudge was configured.
func (j *Judge) Judge(ctx context.Context, query candidate.Row, candidates []candidate.Row, preScores []model.MatchResult, useLLM bool) model.MatchResult {
	qr, qp := query.Record, query.Parsed

	var best *model.MatchResult
	bestIdx := 0
	lastConflictReason := ""

	for i, cand := range candidates {
		cr, cp := cand.Record, cand.Parsed
		ms := preScores[i]

		if reason := j.conflictChecker.PairConflictReason(qr, qp, cr, cp); reason != "" {
			lastConflictReason = reason
			continue
		}

		buildingOK := qp.Building != "" && cp.Building != "" && strings.EqualFold(qp.Building, cp.Building)
		floorOK := qp.Floor != "" && cp.Floor != "" && qp.Floor == cp.Floor
		roomOK := qp.Room != "" && cp.Room != "" && qp.Room == cp.Room
		aoiOK := qp.AOI != "" && cp.AOI != "" && textutil.Jaccard(qp.AOI, cp.AOI, 2) >= 0.65

		geoOK := 0.0
		if qr.HasGeo() && cr.HasGeo() {
			d := textutil.HaversineM(*qr.Lat, *qr.Lon, *cr.Lat, *cr.Lon)
			geoOK = textutil.GeoScore(&d)
		}

		if buildingOK && floorOK && (roomOK || geoOK >= 0.7 || aoiOK) {
			score := ms.Score
			if score < 0.90 {
				score = 0.90
			}
			return model.MatchResult{
				Decision:      model.DecisionSame,
				Score:         score,
				FeatureScores: ms.FeatureScores,
				Evidence:      map[string]interface{}{"judge": "rule_whitelist", "best_rid": cr.RID},
			}
		}

		if best == nil || ms.Score > best.Score {
			msCopy := ms
			best = &msCopy
			bestIdx = i
		}
	}

	if useLLM && j.llm != nil && len(candidates) > 0 {
		if llmDecision, err := j.llm.Judge(ctx, query, candidates, preScores); err == nil && llmDecision != nil {
			if llmDecision.Decision == model.DecisionSame {
				if bestRID, ok := llmDecision.Evidence["best_rid"].(string); ok && bestRID != "" {
					for _, cand := range candidates {
						if cand.Record.RID != bestRID {
							continue
						}
						if reason := j.conflictChecker.PairConflictReason(qr, qp, cand.Record, cand.Parsed); reason != "" {
							return model.MatchResult{
								Decision: model.DecisionDifferent,
								Score:    0,
								Evidence: map[string]interface{}{"judge": "blacklist", "reason": reason},
							}
						}
						break
					}
				}
			}
			return *llmDecision
		}
	}

	if best == nil {
		if lastConflictReason != "" {
			return model.MatchResult{
				Decision: model.DecisionDifferent,
				Score:    0,
				Evidence: map[string]interface{}{"judge": "blacklist", "reason": lastConflictReason},
			}
		}
		return model.MatchResult{
			Decision: model.DecisionDifferent,
			Score:    0,
			Evidence: map[string]interface{}{"judge": "empty_candidates"},
		}
	}

	cr := candidates[bestIdx].Record
	best.Evidence = map[string]interface{}{"judge": "best_prescore", "best_rid": cr.RID}
	return *best
}
