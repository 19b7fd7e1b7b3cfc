// Command run executes one full batch resolution pass over every
// record currently in the repository: parse, conflict-check,
// candidate recall, scoring, judging, and clustering.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/alias"
	"github.com/tanxiaobing-hl/address-audit/internal/cache"
	"github.com/tanxiaobing-hl/address-audit/internal/config"
	"github.com/tanxiaobing-hl/address-audit/internal/judge"
	"github.com/tanxiaobing-hl/address-audit/internal/parser"
	"github.com/tanxiaobing-hl/address-audit/internal/pipeline"
	"github.com/tanxiaobing-hl/address-audit/internal/repository"
)

func main() {
	cfgPath := flag.String("config", "config/config.default.json", "path to config JSON file")
	useLLM := flag.Bool("use-llm", false, "enable the LLM tiebreak pass during judging")
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

	l2, err := cache.NewLRUCache(cfg.L1CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}

	aoiAliases, err := alias.LoadMap(cfg.DataDir + "/alias_aoi.json")
	if err != nil {
		logger.Warn("failed to load aoi aliases", zap.Error(err))
	}
	roadAliases, err := alias.LoadMap(cfg.DataDir + "/alias_road.json")
	if err != nil {
		logger.Warn("failed to load road aliases", zap.Error(err))
	}

	llmAPIKey := os.Getenv("OPENAI_API_KEY")
	addrParser, err := parser.New(cfg.Parser.Backend, cfg.Parser.LLMBaseURL, cfg.Parser.LLMModel, llmAPIKey,
		time.Duration(cfg.Parser.TimeoutSeconds)*time.Second, logger)
	if err != nil {
		logger.Fatal("failed to initialize parser", zap.Error(err))
	}

	var llmJudge judge.LLMJudge
	if *useLLM {
		llmJudge = parser.NewLLMJudge(cfg.Parser.LLMBaseURL, cfg.Parser.LLMModel, llmAPIKey,
			time.Duration(cfg.Parser.TimeoutSeconds)*time.Second, logger)
	}

	pl := pipeline.New(pipeline.Deps{
		Repo:          repo,
		Cache:         l2,
		Parser:        addrParser,
		AOIAliases:    aoiAliases,
		RoadAliases:   roadAliases,
		Weights:       cfg.Weights,
		Thresholds:    cfg.Thresholds,
		GridPrecision: cfg.GridPrecision,
		CandidateMax:  cfg.CandidateMax,
		TopNForLLM:    cfg.CandidateTopNForLLM,
		UseLLM:        *useLLM,
		LLMJudge:      llmJudge,
		Logger:        logger,
	})

	summary, err := pl.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}

	logger.Info("pipeline run complete",
		zap.Int("n_records", summary.NRecords),
		zap.Int("n_conflicts", summary.NConflicts),
		zap.Int("n_clusters_gt1", summary.NClustersGT1))
}
