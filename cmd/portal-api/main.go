package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/auth"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/config"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/dispute"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/transaction"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/objectstore"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found")
	}

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect to the document store
	logger.Info("Connecting to document store", zap.String("database", cfg.Store.Database))
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Store.URI))
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Document store unreachable", zap.Error(err))
	}
	store := docstore.NewMongoStore(client.Database(cfg.Store.Database))

	// Connect to the object store
	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Objects.Region)}
	if cfg.Objects.AccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Objects.AccessKey, cfg.Objects.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	objects := objectstore.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Objects.Bucket, cfg.Objects.Region, cfg.Objects.BaseURL)

	// Wire services
	identityRepo := identity.NewRepository(store)
	identityService := identity.NewService(identityRepo, logger)
	identityHandler := identity.NewHandler(identityService, auth.PrincipalFrom, logger)

	txnRepo := transaction.NewRepository(store)
	txnService := transaction.NewService(txnRepo, identityService, logger)
	txnHandler := transaction.NewHandler(txnService, logger)

	disputeRepo := dispute.NewRepository(store)
	disputeService := dispute.NewService(disputeRepo, txnService, identityService, logger)
	ingestor := dispute.NewIngestor(objects)
	disputeHandler := dispute.NewHandler(disputeService, ingestor, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		identityHandler.RegisterRoutes(api)
		txnHandler.RegisterRoutes(api)
		disputeHandler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting escrow portal API", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
