package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/config"
	"github.com/kkkkikiki/groupbuy/internal/database"
	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/repository"
	"github.com/kkkkikiki/groupbuy/internal/seed"
)

func main() {
	file := flag.String("file", "internal/seed/testdata/fruit.yaml", "YAML fixture to load")
	flag.Parse()

	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zl, err := logger.New(logger.FromAppConfig(cfg.App))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	fx, err := seed.ReadFile(*file)
	if err != nil {
		zl.Fatal("Failed to read fixture", zap.String("file", *file), zap.Error(err))
	}

	db, err := database.NewDB(ctx, &cfg.Database, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	res, err := seed.Apply(ctx, repository.NewCampaignRepository(db.SQL), fx, zl)
	if err != nil {
		zl.Error("Seeding stopped early", zap.Error(err))
	}
	for _, id := range res.CampaignIDs {
		fmt.Printf("campaign %d\n", id)
	}
	for _, token := range res.OrderTokens {
		fmt.Printf("order token %s\n", token)
	}
}
