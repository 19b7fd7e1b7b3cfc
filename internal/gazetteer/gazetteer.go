// Package gazetteer wraps meilisearch for the admin surface: free-text
// search over roads, POIs and anchors (name/alias lookup, typo
// tolerance) so an operator can find the reference entity behind a
// candidate or blacklist reason without querying Mongo directly. It
// is not on the hot path of the matching pipeline — candidate recall
// uses internal/candidate's own inverted indexes instead.
package gazetteer

import (
	"errors"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// SearchConfig configures the Meilisearch connection.
type SearchConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
}

// Searcher indexes roads, POIs and anchors under one Meilisearch
// index so an operator can search the reference gazetteer by name or
// alias from the admin endpoints.
type Searcher struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
	timeout   time.Duration
}

func NewSearcher(cfg SearchConfig, logger *zap.Logger) (*Searcher, error) {
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("gazetteer: connect to meilisearch: %w", err)
	}

	return &Searcher{client: client, logger: logger, indexName: cfg.IndexName, timeout: cfg.Timeout}, nil
}

// BuildIndex configures searchable/filterable attributes and typo
// tolerance for the gazetteer index.
func (s *Searcher) BuildIndex() error {
	index := s.client.Index(s.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name", "aliases", "key_text"},
		FilterableAttributes: []string{"kind", "district", "poi_type", "anchor_type"},
		SortableAttributes:   []string{"name"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  3,
				TwoTypos: 7,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gazetteer: update settings: %w", err)
	}

	s.logger.Info("configured gazetteer index", zap.Int64("task_uid", task.TaskUID))
	return nil
}

// SeedRoads/SeedPOIs/SeedAnchors load the reference gazetteer into
// Meilisearch in batches, matching the teacher's 1000-document chunk
// size.
const seedBatchSize = 1000

func (s *Searcher) SeedRoads(roads []model.Road) error {
	docs := make([]map[string]interface{}, 0, len(roads))
	for _, r := range roads {
		docs = append(docs, map[string]interface{}{
			"id": "road:" + r.RoadID, "kind": "road", "name": r.Name,
			"district": r.District, "aliases": r.Aliases,
		})
	}
	return s.seedDocuments(docs)
}

func (s *Searcher) SeedPOIs(pois []model.POI) error {
	docs := make([]map[string]interface{}, 0, len(pois))
	for _, p := range pois {
		docs = append(docs, map[string]interface{}{
			"id": "poi:" + p.POIID, "kind": "poi", "name": p.Name,
			"poi_type": p.POIType, "district": p.District, "aliases": p.Aliases,
		})
	}
	return s.seedDocuments(docs)
}

func (s *Searcher) SeedAnchors(anchors []model.Anchor) error {
	docs := make([]map[string]interface{}, 0, len(anchors))
	for _, a := range anchors {
		docs = append(docs, map[string]interface{}{
			"id": "anchor:" + a.AnchorID, "kind": "anchor", "key_text": a.KeyText,
			"name": a.KeyText, "anchor_type": a.AnchorType, "district": a.District,
		})
	}
	return s.seedDocuments(docs)
}

func (s *Searcher) seedDocuments(docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return errors.New("gazetteer: no documents to seed")
	}
	index := s.client.Index(s.indexName)

	for i := 0; i < len(docs); i += seedBatchSize {
		end := i + seedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		task, err := index.AddDocuments(docs[i:end], "id")
		if err != nil {
			return fmt.Errorf("gazetteer: add documents batch %d-%d: %w", i, end, err)
		}
		s.logger.Info("seeded gazetteer batch", zap.Int("from", i), zap.Int("to", end), zap.Int64("task_uid", task.TaskUID))
	}
	return nil
}

// Hit is one gazetteer search result.
type Hit struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	District string `json:"district,omitempty"`
}

// Search performs a free-text lookup across roads/POIs/anchors,
// optionally restricted to kind ("road", "poi", "anchor").
func (s *Searcher) Search(query, kind string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, errors.New("gazetteer: empty query")
	}
	index := s.client.Index(s.indexName)

	req := &meilisearch.SearchRequest{Limit: int64(limit)}
	if kind != "" {
		req.Filter = fmt.Sprintf("kind = %s", kind)
	}

	resp, err := index.Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: search: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ID:       stringField(m, "id"),
			Kind:     stringField(m, "kind"),
			Name:     stringField(m, "name"),
			District: stringField(m, "district"),
		})
	}
	return hits, nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
