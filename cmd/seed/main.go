// Command seed loads the base gazetteer (roads, POIs, anchors) into
// the repository and indexes it for search. There is no external
// gazetteer feed in this system yet, so the seed is the fixed
// reference set also used to generate synthetic test data.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/config"
	"github.com/tanxiaobing-hl/address-audit/internal/gazetteer"
	"github.com/tanxiaobing-hl/address-audit/internal/repository"
	"github.com/tanxiaobing-hl/address-audit/internal/simulate"
)

func main() {
	cfgPath := flag.String("config", "config/config.default.json", "path to config JSON file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		logger.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	repo, err := repository.New(ctx, client.Database("address_audit"))
	if err != nil {
		logger.Fatal("failed to initialize repository", zap.Error(err))
	}

	var searcher *gazetteer.Searcher
	if cfg.MeiliURL != "" {
		searcher, err = gazetteer.NewSearcher(gazetteer.SearchConfig{
			Host: cfg.MeiliURL, APIKey: cfg.MeiliKey, IndexName: "gazetteer", Timeout: 10 * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("gazetteer search unavailable, seeding repository only", zap.Error(err))
		} else if err := searcher.BuildIndex(); err != nil {
			logger.Warn("failed to configure gazetteer index", zap.Error(err))
		}
	}

	base := simulate.SeedBaseEntities()

	for _, road := range base.Roads {
		road := road
		if err := repo.UpsertRoad(ctx, &road); err != nil {
			logger.Error("upsert road failed", zap.String("road_id", road.RoadID), zap.Error(err))
		}
	}
	for _, poi := range base.POIs {
		poi := poi
		if err := repo.UpsertPOI(ctx, &poi); err != nil {
			logger.Error("upsert poi failed", zap.String("poi_id", poi.POIID), zap.Error(err))
		}
	}
	for _, anchor := range base.Anchors {
		anchor := anchor
		if err := repo.UpsertAnchor(ctx, &anchor); err != nil {
			logger.Error("upsert anchor failed", zap.String("anchor_id", anchor.AnchorID), zap.Error(err))
		}
	}

	if searcher != nil {
		if err := searcher.SeedRoads(base.Roads); err != nil {
			logger.Warn("index roads failed", zap.Error(err))
		}
		if err := searcher.SeedPOIs(base.POIs); err != nil {
			logger.Warn("index pois failed", zap.Error(err))
		}
		if err := searcher.SeedAnchors(base.Anchors); err != nil {
			logger.Warn("index anchors failed", zap.Error(err))
		}
	}

	logger.Info("seed complete",
		zap.Int("roads", len(base.Roads)), zap.Int("pois", len(base.POIs)), zap.Int("anchors", len(base.Anchors)))
	os.Exit(0)
}
