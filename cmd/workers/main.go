package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/config"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/dispute"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/transaction"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found")
	}

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Store.URI))
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	store := docstore.NewMongoStore(client.Database(cfg.Store.Database))

	identityService := identity.NewService(identity.NewRepository(store), logger)
	txnService := transaction.NewService(transaction.NewRepository(store), identityService, logger)
	disputeService := dispute.NewService(dispute.NewRepository(store), txnService, identityService, logger)

	workerCfg := DefaultReviewWorkerConfig()
	if cfg.Worker.Schedule != "" {
		workerCfg.Schedule = cfg.Worker.Schedule
	}
	if cfg.Worker.StaleOpenAfter > 0 {
		workerCfg.StaleOpenAfter = cfg.Worker.StaleOpenAfter
	}

	worker := NewReviewWorker(disputeService, logger, workerCfg)
	scheduler, err := worker.Start()
	if err != nil {
		logger.Fatal("Failed to start review worker", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Stopping workers")
	<-scheduler.Stop().Done()
}
