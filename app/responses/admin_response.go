package responses

import "github.com/tanxiaobing-hl/address-audit/internal/model"

// SuggestAliasResponse is the body of POST /v1/admin/aliases/suggest.
type SuggestAliasResponse struct {
	Suggestions []AliasSuggestion `json:"suggestions"`
}

// AliasSuggestion is one ranked canonical match, already persisted to
// the learned-alias review queue.
type AliasSuggestion struct {
	ID         string  `json:"id"`
	Canonical  string  `json:"canonical"`
	Variant    string  `json:"variant"`
	Similarity float64 `json:"similarity"`
}

// PendingAliasesResponse is the body of GET /v1/admin/aliases/pending.
type PendingAliasesResponse struct {
	Aliases []model.LearnedAlias `json:"aliases"`
}

// SeedGazetteerResponse is the body of POST /v1/admin/seed.
type SeedGazetteerResponse struct {
	RoadsSeeded   int    `json:"roads_seeded"`
	POIsSeeded    int    `json:"pois_seeded"`
	AnchorsSeeded int    `json:"anchors_seeded"`
	Message       string `json:"message"`
}

// StatsResponse is the body of GET /v1/admin/stats.
type StatsResponse struct {
	CacheL1Hits   int64 `json:"cache_l1_hits"`
	CacheL1Misses int64 `json:"cache_l1_misses"`
	CacheL2Hits   int64 `json:"cache_l2_hits"`
	CacheL2Misses int64 `json:"cache_l2_misses"`
	NRecords      int64 `json:"n_records"`
	NClusters     int64 `json:"n_clusters"`
	PendingReviews int64 `json:"pending_reviews"`
}
