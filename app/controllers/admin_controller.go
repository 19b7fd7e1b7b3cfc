package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/app/requests"
	"github.com/tanxiaobing-hl/address-audit/app/responses"
	"github.com/tanxiaobing-hl/address-audit/internal/cache"
	"github.com/tanxiaobing-hl/address-audit/internal/fuzzy"
	"github.com/tanxiaobing-hl/address-audit/internal/gazetteer"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/repository"
)

// defaultAliasMinSimilarity is used when a suggest request doesn't
// name its own threshold.
const defaultAliasMinSimilarity = 0.72

// AdminController serves the operator-facing gazetteer seeding,
// cache, and stats endpoints.
type AdminController struct {
	repo     *repository.Repository
	searcher *gazetteer.Searcher
	cache    cache.ParsedCache
	logger   *zap.Logger
}

func NewAdminController(repo *repository.Repository, searcher *gazetteer.Searcher, parsedCache cache.ParsedCache, logger *zap.Logger) *AdminController {
	return &AdminController{repo: repo, searcher: searcher, cache: parsedCache, logger: logger}
}

// SeedGazetteer handles POST /v1/admin/seed: persists the posted
// roads/POIs/anchors to the repository and indexes them for search.
func (ac *AdminController) SeedGazetteer(c *gin.Context) {
	var req requests.SeedGazetteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	var roads []model.Road
	for _, r := range req.Roads {
		road := model.Road{RoadID: r.RoadID, Name: r.Name, District: r.District, Aliases: r.Aliases}
		if err := ac.repo.UpsertRoad(ctx, &road); err != nil {
			ac.logger.Error("upsert road failed", zap.String("road_id", r.RoadID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "SEED_ERROR", Message: err.Error()})
			return
		}
		roads = append(roads, road)
	}

	var pois []model.POI
	for _, p := range req.POIs {
		poi := model.POI{POIID: p.POIID, Name: p.Name, POIType: p.POIType, District: p.District, Lat: p.Lat, Lon: p.Lon, Aliases: p.Aliases}
		if err := ac.repo.UpsertPOI(ctx, &poi); err != nil {
			ac.logger.Error("upsert poi failed", zap.String("poi_id", p.POIID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "SEED_ERROR", Message: err.Error()})
			return
		}
		pois = append(pois, poi)
	}

	var anchors []model.Anchor
	for _, a := range req.Anchors {
		anchor := model.Anchor{AnchorID: a.AnchorID, AnchorType: a.AnchorType, KeyText: a.KeyText, District: a.District, Lat: a.Lat, Lon: a.Lon}
		if err := ac.repo.UpsertAnchor(ctx, &anchor); err != nil {
			ac.logger.Error("upsert anchor failed", zap.String("anchor_id", a.AnchorID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "SEED_ERROR", Message: err.Error()})
			return
		}
		anchors = append(anchors, anchor)
	}

	if ac.searcher != nil {
		if len(roads) > 0 {
			if err := ac.searcher.SeedRoads(roads); err != nil {
				ac.logger.Warn("index roads failed", zap.Error(err))
			}
		}
		if len(pois) > 0 {
			if err := ac.searcher.SeedPOIs(pois); err != nil {
				ac.logger.Warn("index pois failed", zap.Error(err))
			}
		}
		if len(anchors) > 0 {
			if err := ac.searcher.SeedAnchors(anchors); err != nil {
				ac.logger.Warn("index anchors failed", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, responses.SeedGazetteerResponse{
		RoadsSeeded:   len(roads),
		POIsSeeded:    len(pois),
		AnchorsSeeded: len(anchors),
		Message:       "gazetteer seeded",
	})
}

// RebuildSynonyms handles POST /v1/admin/meili/synonyms/rebuild:
// reindexes the roads and POIs currently in the repository. Anchors
// and learned-alias rows are not read, so accepted aliases are not
// added to the index.
func (ac *AdminController) RebuildSynonyms(c *gin.Context) {
	if ac.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:   "SEARCH_UNAVAILABLE",
			Message: "gazetteer search is not configured",
		})
		return
	}

	ctx := c.Request.Context()
	roads, err := ac.repo.ListRoads(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "REBUILD_ERROR", Message: err.Error()})
		return
	}
	pois, err := ac.repo.ListPOIs(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "REBUILD_ERROR", Message: err.Error()})
		return
	}

	if len(roads) > 0 {
		if err := ac.searcher.SeedRoads(roads); err != nil {
			ac.logger.Error("rebuild roads index failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "REBUILD_ERROR", Message: err.Error()})
			return
		}
	}
	if len(pois) > 0 {
		if err := ac.searcher.SeedPOIs(pois); err != nil {
			ac.logger.Error("rebuild pois index failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "REBUILD_ERROR", Message: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{Success: true, Message: "synonyms rebuilt"})
}

// InvalidateCache handles POST /v1/admin/cache/invalidate.
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	if err := ac.cache.Clear(c.Request.Context()); err != nil {
		ac.logger.Error("cache invalidate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "INVALIDATE_ERROR", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, responses.SuccessResponse{Success: true, Message: "cache invalidated"})
}

// SuggestAlias handles POST /v1/admin/aliases/suggest: ranks an
// unmatched road/AOI name against the current gazetteer's canonical
// names and queues the matches above threshold for operator review.
func (ac *AdminController) SuggestAlias(c *gin.Context) {
	var req requests.SuggestAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}
	if req.Kind != "aoi" && req.Kind != "road" {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_KIND",
			Message: "kind must be \"aoi\" or \"road\"",
		})
		return
	}
	minSimilarity := req.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultAliasMinSimilarity
	}

	ctx := c.Request.Context()
	canonicals, err := ac.canonicalNames(ctx, req.Kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "SUGGEST_ERROR", Message: err.Error()})
		return
	}

	matches := fuzzy.SuggestAliases(req.Name, canonicals, minSimilarity)
	out := make([]responses.AliasSuggestion, 0, len(matches))
	for _, m := range matches {
		id := fmt.Sprintf("%s:%s->%s", req.Kind, req.Name, m.Canonical)
		learned := &model.LearnedAlias{
			ID: id, Canonical: m.Canonical, Alias: m.Variant, Kind: req.Kind,
			Support: 1, Confidence: m.Similarity,
		}
		if err := ac.repo.UpsertLearnedAlias(ctx, learned); err != nil {
			ac.logger.Error("upsert learned alias failed", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, responses.AliasSuggestion{ID: id, Canonical: m.Canonical, Variant: m.Variant, Similarity: m.Similarity})
	}

	c.JSON(http.StatusOK, responses.SuggestAliasResponse{Suggestions: out})
}

// canonicalNames returns the current gazetteer's canonical road or AOI
// names, the pool fuzzy.SuggestAliases ranks an unmatched name against.
func (ac *AdminController) canonicalNames(ctx context.Context, kind string) ([]string, error) {
	if kind == "road" {
		roads, err := ac.repo.ListRoads(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(roads))
		for i, r := range roads {
			out[i] = r.Name
		}
		return out, nil
	}

	pois, err := ac.repo.ListPOIs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pois))
	for i, p := range pois {
		out[i] = p.Name
	}
	return out, nil
}

// ListPendingAliases handles GET /v1/admin/aliases/pending.
func (ac *AdminController) ListPendingAliases(c *gin.Context) {
	aliases, err := ac.repo.ListLearnedAliases(c.Request.Context(), true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "LIST_ALIASES_ERROR", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, responses.PendingAliasesResponse{Aliases: aliases})
}

// ResolveAlias handles POST /v1/admin/aliases/:id/resolve: records an
// operator's accept/reject decision on a suggested alias.
func (ac *AdminController) ResolveAlias(c *gin.Context) {
	id := c.Param("id")
	var req requests.ResolveAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}
	if err := ac.repo.ResolveLearnedAlias(c.Request.Context(), id, req.Accepted); err != nil {
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "RESOLVE_ERROR", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, responses.SuccessResponse{Success: true, Message: "alias resolved"})
}

// GetStats handles GET /v1/admin/stats.
func (ac *AdminController) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := ac.cache.Stats()

	records, err := ac.repo.ListRecords(ctx)
	if err != nil {
		ac.logger.Warn("list records for stats failed", zap.Error(err))
	}
	clusters, err := ac.repo.ListClusters(ctx)
	if err != nil {
		ac.logger.Warn("list clusters for stats failed", zap.Error(err))
	}
	pending, err := ac.repo.ListPendingReviewItems(ctx)
	if err != nil {
		ac.logger.Warn("list pending reviews for stats failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, responses.StatsResponse{
		CacheL1Hits:    stats.L1Hits,
		CacheL1Misses:  stats.L1Misses,
		CacheL2Hits:    stats.L2Hits,
		CacheL2Misses:  stats.L2Misses,
		NRecords:       int64(len(records)),
		NClusters:      int64(len(clusters)),
		PendingReviews: int64(len(pending)),
	})
}
