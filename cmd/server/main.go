package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitgrid/franchise-dashboard/internal/analytics"
	"github.com/fitgrid/franchise-dashboard/internal/api"
	"github.com/fitgrid/franchise-dashboard/internal/config"
	"github.com/fitgrid/franchise-dashboard/internal/importer"
	"github.com/fitgrid/franchise-dashboard/internal/storage"
	"github.com/fitgrid/franchise-dashboard/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it live import progress degrades to the
	// persisted job rows.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		}
		pingCancel()
	}

	// S3 audit copies are optional as well.
	var blobs importer.BlobStore
	if cfg.Storage.S3Bucket != "" {
		bs, err := storage.NewBlobStore(ctx, cfg.Storage.S3Bucket, cfg.Storage.AWSRegion, cfg.Storage.GetAWSProfile())
		if err != nil {
			log.Printf("Warning: S3 storage unavailable: %v", err)
		} else {
			blobs = bs
		}
	}

	members := store.NewMemberRepo(db)
	plans := store.NewPlanRepo(db)
	payments := store.NewPaymentRepo(db)
	expenses := store.NewExpenseRepo(db)
	franchises := store.NewFranchiseRepo(db)
	jobs := store.NewImportJobRepo(db)

	importSvc := importer.NewService(jobs, members, plans, blobs, redisClient, cfg.Import)
	aggregator := analytics.New(store.NewDataSource(db))
	tenants := api.NewTenantProvider(franchises)

	handlers := api.NewHandlers(importSvc, aggregator, cfg)
	handlers.SetMemberRepo(members)
	handlers.SetPlanRepo(plans)
	handlers.SetPaymentRepo(payments)
	handlers.SetExpenseRepo(expenses)
	handlers.SetFranchiseRepo(franchises)
	handlers.SetTenantProvider(tenants)

	server := api.NewServer(cfg.Server, handlers, tenants)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Server stopped")
}
