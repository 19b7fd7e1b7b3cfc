package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/tanxiaobing-hl/address-audit/internal/candidate"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	records   []*model.AddressRecord
	parsed    map[string]*model.ParsedAddress
	conflicts []model.Conflict
	matchLogs []*model.MatchLogEntry
	reviews   []*model.ReviewItem
	clusters  map[string][]string
	anchors   map[string]*model.Anchor
}

func newFakeStore(records []*model.AddressRecord) *fakeStore {
	return &fakeStore{
		records: records,
		parsed:  map[string]*model.ParsedAddress{},
		anchors: map[string]*model.Anchor{},
	}
}

func (s *fakeStore) ListRecords(ctx context.Context) ([]*model.AddressRecord, error) {
	return s.records, nil
}

func (s *fakeStore) GetParsed(ctx context.Context, rid string) (*model.ParsedAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsed[rid], nil
}

func (s *fakeStore) UpsertParsed(ctx context.Context, rid string, p *model.ParsedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed[rid] = p
	return nil
}

func (s *fakeStore) InsertConflicts(ctx context.Context, conflicts []model.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = append(s.conflicts, conflicts...)
	return nil
}

func (s *fakeStore) InsertMatchLog(ctx context.Context, entry *model.MatchLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchLogs = append(s.matchLogs, entry)
	return nil
}

func (s *fakeStore) InsertReviewItem(ctx context.Context, item *model.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, item)
	return nil
}

func (s *fakeStore) WriteClusters(ctx context.Context, clusters map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusters = clusters
	return nil
}

func (s *fakeStore) FindAnchorByKey(ctx context.Context, keyText string) (*model.Anchor, error) {
	return s.anchors[keyText], nil
}

// fakeParser returns a pre-baked parse result per raw address text.
type fakeParser struct {
	byRaw map[string]*model.ParsedAddress
}

func (p *fakeParser) Parse(ctx context.Context, raw string) (*model.ParsedAddress, error) {
	if got, ok := p.byRaw[raw]; ok {
		cp := *got
		return &cp, nil
	}
	return &model.ParsedAddress{NormText: raw}, nil
}

func (p *fakeParser) ParseBatch(ctx context.Context, raws []string) ([]*model.ParsedAddress, error) {
	out := make([]*model.ParsedAddress, len(raws))
	for i, raw := range raws {
		pa, _ := p.Parse(ctx, raw)
		out[i] = pa
	}
	return out, nil
}

// failingParser always errors, simulating a backend that is down.
type failingParser struct{}

func (failingParser) Parse(ctx context.Context, raw string) (*model.ParsedAddress, error) {
	return nil, fmt.Errorf("parser unavailable")
}

func (failingParser) ParseBatch(ctx context.Context, raws []string) ([]*model.ParsedAddress, error) {
	return nil, fmt.Errorf("parser unavailable")
}

func testWeights() map[string]float64 {
	return map[string]float64{
		"district": 0.15, "aoi": 0.20, "building": 0.15, "floor": 0.05,
		"room": 0.05, "road": 0.15, "shop": 0.05, "geo": 0.15, "relative_anchor": 0.05,
	}
}

func TestRunClustersIdenticalBuildingRecords(t *testing.T) {
	lat, lon := 31.8204, 117.1289
	recs := []*model.AddressRecord{
		{RID: "r1", Source: "test", RawAddress: "创新大道100号阳光花园3栋2单元501", Lat: &lat, Lon: &lon},
		{RID: "r2", Source: "test", RawAddress: "创新大道100号阳光花园3栋2单元501室", Lat: &lat, Lon: &lon},
	}
	p := &fakeParser{byRaw: map[string]*model.ParsedAddress{
		recs[0].RawAddress: {NormText: recs[0].RawAddress, District: "蜀山区", Road: "创新大道", AOI: "阳光花园", Building: "3栋", Floor: "2", Room: "501"},
		recs[1].RawAddress: {NormText: recs[1].RawAddress, District: "蜀山区", Road: "创新大道", AOI: "阳光花园", Building: "3栋", Floor: "2", Room: "501"},
	}}
	store := newFakeStore(recs)

	pl := New(Deps{
		Repo:          store,
		Parser:        p,
		Weights:       testWeights(),
		Thresholds:    map[string]float64{"same": 0.78, "unsure": 0.55},
		GridPrecision: 3,
		CandidateMax:  50,
		TopNForLLM:    5,
	})

	summary, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NRecords != 2 {
		t.Fatalf("expected 2 records, got %d", summary.NRecords)
	}
	if summary.NClustersGT1 != 1 {
		t.Fatalf("expected 1 multi-member cluster, got %d (%+v)", summary.NClustersGT1, store.clusters)
	}
	if len(store.matchLogs) == 0 {
		t.Fatalf("expected at least one match log entry")
	}
}

func TestRunSkipsRecordsWithNoCandidates(t *testing.T) {
	recs := []*model.AddressRecord{
		{RID: "r1", Source: "test", RawAddress: "创新大道100号"},
	}
	p := &fakeParser{byRaw: map[string]*model.ParsedAddress{}}
	store := newFakeStore(recs)

	pl := New(Deps{
		Repo:          store,
		Parser:        p,
		Weights:       testWeights(),
		Thresholds:    map[string]float64{"same": 0.78, "unsure": 0.55},
		GridPrecision: 3,
		CandidateMax:  50,
		TopNForLLM:    5,
	})

	summary, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NClustersGT1 != 0 {
		t.Fatalf("expected no multi-member clusters for a lone record, got %d", summary.NClustersGT1)
	}
}

func TestRunDegradesRecordsOnParserFailureInsteadOfAborting(t *testing.T) {
	recs := []*model.AddressRecord{
		{RID: "r1", Source: "test", RawAddress: "创新大道100号"},
		{RID: "r2", Source: "test", RawAddress: "创新大道100号附近"},
	}
	store := newFakeStore(recs)

	pl := New(Deps{
		Repo:          store,
		Parser:        failingParser{},
		Weights:       testWeights(),
		Thresholds:    map[string]float64{"same": 0.78, "unsure": 0.55},
		GridPrecision: 3,
		CandidateMax:  50,
		TopNForLLM:    5,
	})

	summary, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("expected Run to degrade parse failures rather than abort, got error: %v", err)
	}
	if summary.NRecords != 2 {
		t.Fatalf("expected both records to still be processed, got %d", summary.NRecords)
	}
	for _, rid := range []string{"r1", "r2"} {
		pa := store.parsed[rid]
		if pa == nil {
			t.Fatalf("expected %s to have a persisted (degraded) parse result", rid)
		}
		if pa.Road != "" || pa.District != "" {
			t.Fatalf("expected %s's structured fields to be absent after a parse failure, got %+v", rid, pa)
		}
	}
}

// countingLLMJudge counts how often the judge consults it and returns
// no decision, so the judge falls through to its best-pre-score result.
type countingLLMJudge struct{ calls int }

func (j *countingLLMJudge) Judge(ctx context.Context, query candidate.Row, candidates []candidate.Row, preScores []model.MatchResult) (*model.MatchResult, error) {
	j.calls++
	return nil, nil
}

func TestComparePairThreadsUseLLMFlag(t *testing.T) {
	p := &fakeParser{byRaw: map[string]*model.ParsedAddress{
		"创新大道100号": {NormText: "创新大道100号", District: "蜀山区", Road: "创新大道"},
		"创新大道100号附近": {NormText: "创新大道100号附近", District: "蜀山区", Road: "创新大道"},
	}}
	store := newFakeStore(nil)
	llm := &countingLLMJudge{}

	pl := New(Deps{
		Repo:          store,
		Parser:        p,
		Weights:       testWeights(),
		Thresholds:    map[string]float64{"same": 0.78, "unsure": 0.55},
		GridPrecision: 3,
		CandidateMax:  50,
		TopNForLLM:    5,
		LLMJudge:      llm,
	})

	result, p1, p2, err := pl.ComparePair(context.Background(), "创新大道100号", "创新大道100号附近", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 == nil || p2 == nil {
		t.Fatalf("expected both addresses to be parsed")
	}
	if result.Decision == "" {
		t.Fatalf("expected a decision to be made")
	}
	if llm.calls != 0 {
		t.Fatalf("expected the LLM judge to be skipped with useLLM=false, got %d calls", llm.calls)
	}

	if _, _, _, err := pl.ComparePair(context.Background(), "创新大道100号", "创新大道100号附近", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("expected the LLM judge to be consulted once with useLLM=true, got %d calls", llm.calls)
	}
}
