package judge

import (
	"context"
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/candidate"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

func rec(rid, gridDistrict string) *model.AddressRecord {
	return &model.AddressRecord{RID: rid, GridDistrict: gridDistrict}
}

func TestJudgeBlacklistRejectsConflictingDistrict(t *testing.T) {
	j := New(nil)
	query := candidate.Row{Record: rec("q", "蜀山区"), Parsed: &model.ParsedAddress{Building: "F9A", Floor: "2"}}
	cand := candidate.Row{Record: rec("c", "瑶海区"), Parsed: &model.ParsedAddress{Building: "F9A", Floor: "2", Room: "203"}}

	result := j.Judge(context.Background(), query, []candidate.Row{cand}, []model.MatchResult{{Score: 0.95}}, false)
	if result.Decision != model.DecisionDifferent {
		t.Fatalf("expected DIFFERENT due to blacklist, got %v", result)
	}
	if result.Evidence["judge"] != "blacklist" {
		t.Fatalf("expected blacklist evidence, got %v", result.Evidence)
	}
}

func TestJudgeWhitelistShortcutsOnBuildingFloorRoom(t *testing.T) {
	j := New(nil)
	query := candidate.Row{Record: rec("q", ""), Parsed: &model.ParsedAddress{Building: "f9a", Floor: "2", Room: "203"}}
	cand := candidate.Row{Record: rec("c", ""), Parsed: &model.ParsedAddress{Building: "F9A", Floor: "2", Room: "203"}}

	result := j.Judge(context.Background(), query, []candidate.Row{cand}, []model.MatchResult{{Score: 0.5, FeatureScores: map[string]float64{"building": 1}}}, false)
	if result.Decision != model.DecisionSame {
		t.Fatalf("expected SAME via whitelist, got %v", result)
	}
	if result.Score < 0.90 {
		t.Fatalf("expected whitelist score floor of 0.90, got %v", result.Score)
	}
	if result.Evidence["judge"] != "rule_whitelist" {
		t.Fatalf("expected rule_whitelist evidence, got %v", result.Evidence)
	}
}

func TestJudgeFallsBackToBestPreScore(t *testing.T) {
	j := New(nil)
	query := candidate.Row{Record: rec("q", ""), Parsed: &model.ParsedAddress{}}
	c1 := candidate.Row{Record: rec("c1", ""), Parsed: &model.ParsedAddress{}}
	c2 := candidate.Row{Record: rec("c2", ""), Parsed: &model.ParsedAddress{}}

	result := j.Judge(context.Background(), query,
		[]candidate.Row{c1, c2},
		[]model.MatchResult{{Score: 0.4, Decision: model.DecisionDifferent}, {Score: 0.6, Decision: model.DecisionUnsure}},
		false)

	if result.Score != 0.6 {
		t.Fatalf("expected best pre-score 0.6 to win, got %v", result.Score)
	}
	if result.Evidence["best_rid"] != "c2" {
		t.Fatalf("expected best_rid c2, got %v", result.Evidence["best_rid"])
	}
}

func TestJudgeEmptyCandidatesIsDifferent(t *testing.T) {
	j := New(nil)
	query := candidate.Row{Record: rec("q", ""), Parsed: &model.ParsedAddress{}}
	result := j.Judge(context.Background(), query, nil, nil, false)
	if result.Decision != model.DecisionDifferent {
		t.Fatalf("expected DIFFERENT for empty candidates, got %v", result)
	}
	if result.Evidence["judge"] != "empty_candidates" {
		t.Fatalf("expected empty_candidates evidence, got %v", result.Evidence)
	}
}

type fakeLLM struct {
	result *model.MatchResult
}

func (f *fakeLLM) Judge(ctx context.Context, query candidate.Row, candidates []candidate.Row, preScores []model.MatchResult) (*model.MatchResult, error) {
	return f.result, nil
}

func TestJudgeLLMTiebreakRejectedByBlacklist(t *testing.T) {
	llm := &fakeLLM{result: &model.MatchResult{
		Decision: model.DecisionSame,
		Score:    0.95,
		Evidence: map[string]interface{}{"best_rid": "c1"},
	}}
	j := New(llm)

	query := candidate.Row{Record: rec("q", "蜀山区"), Parsed: &model.ParsedAddress{}}
	cand := candidate.Row{Record: rec("c1", "瑶海区"), Parsed: &model.ParsedAddress{}}

	result := j.Judge(context.Background(), query, []candidate.Row{cand}, []model.MatchResult{{Score: 0.5}}, true)
	if result.Decision != model.DecisionDifferent {
		t.Fatalf("expected LLM SAME to be overridden by blacklist, got %v", result)
	}
}

func TestJudgeLLMNotInvokedWhenUseLLMFalse(t *testing.T) {
	llm := &fakeLLM{result: &model.MatchResult{Decision: model.DecisionSame, Score: 0.99}}
	j := New(llm)

	query := candidate.Row{Record: rec("q", ""), Parsed: &model.ParsedAddress{}}
	cand := candidate.Row{Record: rec("c1", ""), Parsed: &model.ParsedAddress{}}

	result := j.Judge(context.Background(), query, []candidate.Row{cand}, []model.MatchResult{{Score: 0.6, Decision: model.DecisionUnsure}}, false)
	if result.Score != 0.6 {
		t.Fatalf("expected LLM skipped, fallback to pre-score 0.6, got %v", result.Score)
	}
}
