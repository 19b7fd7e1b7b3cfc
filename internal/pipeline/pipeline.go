// Package pipeline orchestrates the full address governance run:
// parse -> per-record conflict check -> candidate recall -> pairwise
// scoring -> judge arbitration -> transitive clustering, plus a
// stateless two-address comparison path for the API's /compare
// endpoint.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tanxiaobing-hl/address-audit/internal/anchor"
	"github.com/tanxiaobing-hl/address-audit/internal/cache"
	"github.com/tanxiaobing-hl/address-audit/internal/candidate"
	"github.com/tanxiaobing-hl/address-audit/internal/conflict"
	"github.com/tanxiaobing-hl/address-audit/internal/judge"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/parser"
	"github.com/tanxiaobing-hl/address-audit/internal/scoring"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
	"github.com/tanxiaobing-hl/address-audit/internal/unionfind"
)

// maxScoringConcurrency bounds how many candidates a single query
// record scores in parallel; scoring is pure CPU work, so this only
// needs to be wide enough to hide map/slice allocation latency, not
// network calls.
const maxScoringConcurrency = 8

// Store is the subset of internal/repository.Repository the pipeline
// depends on, kept as its own interface so tests can substitute an
// in-memory fake instead of a live Mongo connection.
type Store interface {
	ListRecords(ctx context.Context) ([]*model.AddressRecord, error)
	GetParsed(ctx context.Context, rid string) (*model.ParsedAddress, error)
	UpsertParsed(ctx context.Context, rid string, p *model.ParsedAddress) error
	InsertConflicts(ctx context.Context, conflicts []model.Conflict) error
	InsertMatchLog(ctx context.Context, entry *model.MatchLogEntry) error
	InsertReviewItem(ctx context.Context, item *model.ReviewItem) error
	WriteClusters(ctx context.Context, clusters map[string][]string) error
	FindAnchorByKey(ctx context.Context, keyText string) (*model.Anchor, error)
}

// Pipeline wires together every stage described above. The UseLLM
// value given at construction gates the judge's LLM tiebreak pass in
// Run; ComparePair takes its own useLLM argument per call — unlike the
// service this was ported from, where the API handler threaded a
// use_llm flag into a compare call that silently ignored it, here the
// flag is honored in both entry points.
type Pipeline struct {
	repo     Store
	cacheImp cache.ParsedCache
	parser   parser.Parser
	candGen  *candidate.Generator
	scorer   *scoring.Scorer
	judgeImp *judge.Judge
	conflict *conflict.Checker
	anchors  *anchor.Resolver
	logger   *zap.Logger

	gridPrecision int
	candidateMax  int
	topNForLLM    int
	useLLM        bool
}

// Deps bundles the pipeline's collaborators for construction.
type Deps struct {
	Repo          Store
	Cache         cache.ParsedCache
	Parser        parser.Parser
	AOIAliases    model.AliasMap
	RoadAliases   model.AliasMap
	Weights       map[string]float64
	Thresholds    map[string]float64
	GridPrecision int
	CandidateMax  int
	TopNForLLM    int
	UseLLM        bool
	LLMJudge      judge.LLMJudge
	Logger        *zap.Logger
}

func New(d Deps) *Pipeline {
	candGen := candidate.NewGenerator(d.GridPrecision, d.AOIAliases, d.RoadAliases)
	bucketFn := func(lat, lon float64) string {
		return candGen.GeoBucket(&lat, &lon)
	}
	anchorResolver := anchor.NewResolver(d.Repo, bucketFn, textutil.OffsetLatLon)

	return &Pipeline{
		repo:          d.Repo,
		cacheImp:      d.Cache,
		parser:        d.Parser,
		candGen:       candGen,
		scorer:        scoring.New(d.Weights, d.Thresholds),
		judgeImp:      judge.New(d.LLMJudge),
		conflict:      conflict.NewChecker(),
		anchors:       anchorResolver,
		logger:        d.Logger,
		gridPrecision: d.GridPrecision,
		candidateMax:  d.CandidateMax,
		topNForLLM:    d.TopNForLLM,
		useLLM:        d.UseLLM,
	}
}

// Summary reports the outcome of a full Run.
type Summary struct {
	NRecords     int `json:"n_records"`
	NConflicts   int `json:"n_conflicts"`
	NClustersGT1 int `json:"n_clusters_gt1"`
}

// Run executes the full batch pipeline against every record currently
// in the repository.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	records, err := p.repo.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list records: %w", err)
	}

	parsed, err := p.parseAll(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse records: %w", err)
	}

	var conflicts []model.Conflict
	for _, rec := range records {
		conflicts = append(conflicts, p.conflict.Check(rec, parsed[rec.RID])...)
	}
	if len(conflicts) > 0 {
		if err := p.repo.InsertConflicts(ctx, conflicts); err != nil {
			return nil, fmt.Errorf("pipeline: insert conflicts: %w", err)
		}
	}

	rows := make([]candidate.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, candidate.Row{Record: rec, Parsed: parsed[rec.RID]})
	}
	byRID := make(map[string]candidate.Row, len(rows))
	for _, row := range rows {
		byRID[row.Record.RID] = row
	}

	idx := p.candGen.BuildIndexes(rows)
	uf := unionfind.New(ridsOf(records))
	seen := map[string]struct{}{}

	for _, rec := range records {
		pr := parsed[rec.RID]

		anchorBucket, err := p.anchors.ResolveBucket(ctx, pr)
		if err != nil {
			p.logf("anchor resolution failed for %s: %v", rec.RID, err)
		}

		cands := p.candGen.CandidatesFor(rec, pr, idx, seen, anchorBucket, p.candidateMax)
		if len(cands) == 0 {
			seen[rec.RID] = struct{}{}
			continue
		}

		candRows := make([]candidate.Row, len(cands))
		for i, cid := range cands {
			candRows[i] = byRID[cid]
		}

		preScores, err := p.scoreConcurrently(ctx, rec, pr, candRows, anchorBucket)
		if err != nil {
			return nil, fmt.Errorf("pipeline: score candidates for %s: %w", rec.RID, err)
		}

		ranked := rankByScore(candRows, preScores, p.topNForLLM)
		topRows := ranked.rows
		topScores := ranked.scores

		final := p.judgeImp.Judge(ctx, candidate.Row{Record: rec, Parsed: pr}, topRows, topScores, p.useLLM)

		if final.Decision == model.DecisionSame {
			bestRID, _ := final.Evidence["best_rid"].(string)
			if bestRID == "" && len(topRows) > 0 {
				bestRID = topRows[0].Record.RID
			}
			if bestRID != "" {
				uf.Union(rec.RID, bestRID)
			}
		}

		if final.Decision == model.DecisionUnsure && len(topRows) > 0 {
			item := &model.ReviewItem{
				ID:       rec.RID + "_" + topRows[0].Record.RID,
				RIDQuery: rec.RID,
				RIDCand:  topRows[0].Record.RID,
				Result:   final,
			}
			if err := p.repo.InsertReviewItem(ctx, item); err != nil {
				p.logf("failed to enqueue review item for %s: %v", rec.RID, err)
			}
		}

		logEntry := buildMatchLog(rec.RID, topRows, topScores, final)
		if err := p.repo.InsertMatchLog(ctx, logEntry); err != nil {
			p.logf("failed to insert match log for %s: %v", rec.RID, err)
		}

		seen[rec.RID] = struct{}{}
	}

	groups := uf.Groups()
	clusters := make(map[string][]string, len(groups))
	gt1 := 0
	for root, members := range groups {
		clusters["cluster_"+root] = members
		if len(members) > 1 {
			gt1++
		}
	}
	if err := p.repo.WriteClusters(ctx, clusters); err != nil {
		return nil, fmt.Errorf("pipeline: write clusters: %w", err)
	}

	return &Summary{NRecords: len(records), NConflicts: len(conflicts), NClustersGT1: gt1}, nil
}

// ComparePair runs the same scoring + judge logic as Run against two
// raw address strings supplied directly (not persisted), for the
// stateless /compare endpoint.
func (p *Pipeline) ComparePair(ctx context.Context, addr1, addr2 string, useLLM bool) (model.MatchResult, *model.ParsedAddress, *model.ParsedAddress, error) {
	rec1 := &model.AddressRecord{RID: "addr_1", Source: "api", RawAddress: strings.TrimSpace(addr1)}
	rec2 := &model.AddressRecord{RID: "addr_2", Source: "api", RawAddress: strings.TrimSpace(addr2)}

	p1, err := p.parseOne(ctx, rec1.RawAddress)
	if err != nil {
		return model.MatchResult{}, nil, nil, fmt.Errorf("pipeline: parse addr1: %w", err)
	}
	p2, err := p.parseOne(ctx, rec2.RawAddress)
	if err != nil {
		return model.MatchResult{}, nil, nil, fmt.Errorf("pipeline: parse addr2: %w", err)
	}

	score := p.scorer.ScorePair(rec1, p1, rec2, p2, 0.0)
	final := p.judgeImp.Judge(
		ctx,
		candidate.Row{Record: rec1, Parsed: p1},
		[]candidate.Row{{Record: rec2, Parsed: p2}},
		[]model.MatchResult{score},
		useLLM,
	)
	return final, p1, p2, nil
}

func (p *Pipeline) parseOne(ctx context.Context, raw string) (*model.ParsedAddress, error) {
	if p.cacheImp != nil {
		if cached, ok, err := p.cacheImp.Get(ctx, raw); err == nil && ok {
			return cached, nil
		}
	}
	parsed, err := p.parser.Parse(ctx, raw)
	if err != nil {
		p.logf("parse failed for %q, degrading to absent fields: %v", raw, err)
		parsed = degradedParsed(raw)
	}
	parsed = p.canonicalize(parsed)
	if p.cacheImp != nil {
		_ = p.cacheImp.Set(ctx, raw, parsed)
	}
	return parsed, nil
}

// degradedParsed is what a record gets when the configured parser
// fails or times out: every structured field absent, so scoring and
// judging can still run on whatever the raw text itself provides (e.g.
// geo/anchor evidence carried on the AddressRecord).
func degradedParsed(raw string) *model.ParsedAddress {
	return &model.ParsedAddress{NormText: textutil.Normalize(raw)}
}

// parseAll parses every record not already cached, bounded by the
// underlying parser's own batch concurrency.
func (p *Pipeline) parseAll(ctx context.Context, records []*model.AddressRecord) (map[string]*model.ParsedAddress, error) {
	out := make(map[string]*model.ParsedAddress, len(records))
	var toParse []*model.AddressRecord

	for _, rec := range records {
		if cached, err := p.repo.GetParsed(ctx, rec.RID); err == nil && cached != nil {
			out[rec.RID] = cached
			continue
		}
		toParse = append(toParse, rec)
	}
	if len(toParse) == 0 {
		return out, nil
	}

	raws := make([]string, len(toParse))
	for i, rec := range toParse {
		raws[i] = rec.RawAddress
	}

	parsedBatch, err := p.parser.ParseBatch(ctx, raws)
	if err != nil {
		p.logf("batch parse failed for %d records, degrading all to absent fields: %v", len(toParse), err)
		parsedBatch = make([]*model.ParsedAddress, len(toParse))
		for i, rec := range toParse {
			parsedBatch[i] = degradedParsed(rec.RawAddress)
		}
	} else if len(parsedBatch) != len(toParse) {
		return nil, fmt.Errorf("pipeline: parser returned %d results for %d inputs", len(parsedBatch), len(toParse))
	}

	for i, rec := range toParse {
		pa := p.canonicalize(parsedBatch[i])
		if err := p.repo.UpsertParsed(ctx, rec.RID, pa); err != nil {
			return nil, err
		}
		out[rec.RID] = pa
	}
	return out, nil
}

func (p *Pipeline) canonicalize(parsed *model.ParsedAddress) *model.ParsedAddress {
	if parsed == nil {
		return parsed
	}
	if parsed.AOI != "" {
		parsed.AOI = p.candGen.CanonicalAOI(parsed.AOI)
	}
	if parsed.Road != "" {
		parsed.Road = p.candGen.CanonicalRoad(parsed.Road)
	}
	return parsed
}

// scoreConcurrently scores rec/pr against each candidate row in
// parallel, preserving candRows' original order in the returned slice.
func (p *Pipeline) scoreConcurrently(ctx context.Context, rec *model.AddressRecord, pr *model.ParsedAddress, candRows []candidate.Row, anchorBucket string) ([]model.MatchResult, error) {
	results := make([]model.MatchResult, len(candRows))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxScoringConcurrency)

	for i, row := range candRows {
		i, row := i, row
		g.Go(func() error {
			bonus := 0.0
			if anchorBucket != "" && row.Record.HasGeo() {
				gb := p.candGen.GeoBucket(row.Record.Lat, row.Record.Lon)
				if gb != "" {
					for _, nb := range p.candGen.GeoNeighbors(anchorBucket) {
						if nb == gb {
							bonus = 1.0
							break
						}
					}
				}
			}
			results[i] = p.scorer.ScorePair(rec, pr, row.Record, row.Parsed, bonus)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type rankedSet struct {
	rows   []candidate.Row
	scores []model.MatchResult
}

// rankByScore sorts candidates by descending score (ties broken by
// rid for determinism) and keeps the top n.
func rankByScore(rows []candidate.Row, scores []model.MatchResult, n int) rankedSet {
	type pair struct {
		row   candidate.Row
		score model.MatchResult
	}
	pairs := make([]pair, len(rows))
	for i := range rows {
		pairs[i] = pair{rows[i], scores[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score.Score != pairs[j].score.Score {
			return pairs[i].score.Score > pairs[j].score.Score
		}
		return pairs[i].row.Record.RID < pairs[j].row.Record.RID
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := rankedSet{rows: make([]candidate.Row, len(pairs)), scores: make([]model.MatchResult, len(pairs))}
	for i, pr := range pairs {
		out.rows[i] = pr.row
		out.scores[i] = pr.score
	}
	return out
}

func buildMatchLog(rid string, topRows []candidate.Row, topScores []model.MatchResult, final model.MatchResult) *model.MatchLogEntry {
	candRIDs := make([]string, len(topRows))
	preScores := make([]map[string]interface{}, len(topRows))
	for i, row := range topRows {
		candRIDs[i] = row.Record.RID
		preScores[i] = map[string]interface{}{
			"rid":      row.Record.RID,
			"decision": topScores[i].Decision,
			"score":    round4(topScores[i].Score),
			"features": topScores[i].FeatureScores,
		}
	}
	return &model.MatchLogEntry{
		RIDQuery:      rid,
		CandidateRIDs: candRIDs,
		PreScores:     preScores,
		Final: map[string]interface{}{
			"decision": final.Decision,
			"score":    round4(final.Score),
			"evidence": final.Evidence,
		},
	}
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}

func ridsOf(records []*model.AddressRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RID
	}
	return out
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Sugar().Warnf(format, args...)
	}
}
