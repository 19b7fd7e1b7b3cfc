package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/app/controllers"
	"github.com/tanxiaobing-hl/address-audit/internal/alias"
	"github.com/tanxiaobing-hl/address-audit/internal/cache"
	"github.com/tanxiaobing-hl/address-audit/internal/config"
	"github.com/tanxiaobing-hl/address-audit/internal/gazetteer"
	"github.com/tanxiaobing-hl/address-audit/internal/judge"
	"github.com/tanxiaobing-hl/address-audit/internal/parser"
	"github.com/tanxiaobing-hl/address-audit/internal/pipeline"
	"github.com/tanxiaobing-hl/address-audit/internal/repository"
	"github.com/tanxiaobing-hl/address-audit/routes"
)

func main() {
	cfgPath := os.Getenv("ADDRAUDIT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.default.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("starting address resolution service")

	ctx := context.Background()

	mongoClient, err := initMongoDB(ctx, cfg.MongoURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from mongo", zap.Error(err))
		}
	}()

	repo, err := repository.New(ctx, mongoClient.Database("address_audit"))
	if err != nil {
		logger.Fatal("failed to initialize repository", zap.Error(err))
	}

	parsedCache := initCache(cfg, logger)

	var searcher *gazetteer.Searcher
	if cfg.MeiliURL != "" {
		searcher, err = gazetteer.NewSearcher(gazetteer.SearchConfig{
			Host: cfg.MeiliURL, APIKey: cfg.MeiliKey, IndexName: "gazetteer", Timeout: 10 * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("gazetteer search unavailable", zap.Error(err))
			searcher = nil
		}
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
	if cfg.Parser.Backend == "llm" {
		llmJudge = parser.NewLLMJudge(cfg.Parser.LLMBaseURL, cfg.Parser.LLMModel, llmAPIKey,
			time.Duration(cfg.Parser.TimeoutSeconds)*time.Second, logger)
	}

	pl := pipeline.New(pipeline.Deps{
		Repo:          repo,
		Cache:         parsedCache,
		Parser:        addrParser,
		AOIAliases:    aoiAliases,
		RoadAliases:   roadAliases,
		Weights:       cfg.Weights,
		Thresholds:    cfg.Thresholds,
		GridPrecision: cfg.GridPrecision,
		CandidateMax:  cfg.CandidateMax,
		TopNForLLM:    cfg.CandidateTopNForLLM,
		UseLLM:        cfg.Parser.Backend == "llm",
		LLMJudge:      llmJudge,
		Logger:        logger,
	})

	addressController := controllers.NewAddressController(pl, logger)
	adminController := controllers.NewAdminController(repo, searcher, parsedCache, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	routes.SetupAllRoutes(router, addressController, adminController)

	port := getPort()
	go func() {
		logger.Info("listening", zap.String("port", port))
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("server exited with error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	_, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := parsedCache.Close(); err != nil {
		logger.Warn("cache close failed", zap.Error(err))
	}
	logger.Info("server exited")
}

func initCache(cfg *config.Config, logger *zap.Logger) cache.ParsedCache {
	l2, err := cache.NewLRUCache(cfg.L1CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to initialize lru cache", zap.Error(err))
	}

	if cfg.RedisURL == "" {
		return l2
	}

	l1, err := cache.NewRedisCache(cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("redis cache unavailable, falling back to lru only", zap.Error(err))
		return l2
	}

	return cache.NewHybridCache(l1, l2, logger)
}

func initMongoDB(ctx context.Context, mongoURL string, logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("connecting to mongo", zap.String("uri", mongoURL))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	logger.Info("connected to mongo")
	return client, nil
}

func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return port
}
