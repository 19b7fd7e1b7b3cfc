// Command evaluate scores the configured weights/thresholds against
// the labeled pair set stored in the repository, and optionally runs a
// grid search over nearby thresholds and weight scalings to find a
// higher-F1 configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/config"
	"github.com/tanxiaobing-hl/address-audit/internal/evaluate"
	"github.com/tanxiaobing-hl/address-audit/internal/repository"
)

func main() {
	cfgPath := flag.String("config", "config/config.default.json", "path to config JSON file")
	grid := flag.Bool("grid", false, "search a grid of thresholds and weight scalings for the best F1")
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

	if *grid {
		result, err := evaluate.GridSearch(ctx, repo, cfg.Weights)
		if err != nil {
			logger.Fatal("grid search failed", zap.Error(err))
		}
		printJSON(result)
		return
	}

	metrics, err := evaluate.Current(ctx, repo, cfg.Weights, cfg.Thresholds)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}
	printJSON(metrics)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(out))
}
