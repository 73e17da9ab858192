package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/picshare/picshare/internal/auth"
	"github.com/picshare/picshare/internal/config"
	"github.com/picshare/picshare/internal/image"
	"github.com/picshare/picshare/internal/image/processor"
	"github.com/picshare/picshare/internal/logger"
	"github.com/picshare/picshare/internal/metrics"
	"github.com/picshare/picshare/internal/server"
	"github.com/picshare/picshare/internal/stats"
	"github.com/picshare/picshare/internal/storage"
	"github.com/picshare/picshare/internal/upload"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewObjectStore(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("connect minio", zap.Error(err))
	}

	authRepo := auth.NewRepository(dbPool)
	mailer := auth.NewSMTPMailer(cfg.Mail)
	authService := auth.NewService(authRepo, mailer, cfg.Auth)

	pipeline, err := processor.NewPipeline(processor.Options{
		MaxWidth:      cfg.Image.MaxWidth,
		MaxHeight:     cfg.Image.MaxHeight,
		JPEGQuality:   cfg.Image.JPEGQuality,
		WatermarkText: cfg.Image.WatermarkText,
	})
	if err != nil {
		log.Fatal("build image pipeline", zap.Error(err))
	}

	imageRepo := image.NewRepository(dbPool)
	issuer := image.NewShortCodeIssuer(imageRepo, image.DefaultShortCodeLength)
	imageService := image.NewService(imageRepo, minioClient, pipeline, issuer,
		cfg.MinIO.Bucket, cfg.Image.URLExpiry, log)

	var geo stats.CountryResolver
	if cfg.Stats.GeoIPDatabasePath != "" {
		resolver, err := stats.NewGeoIPResolver(cfg.Stats.GeoIPDatabasePath)
		if err != nil {
			log.Warn("geoip database unavailable, country stats disabled", zap.Error(err))
		} else {
			defer resolver.Close()
			geo = resolver
		}
	}

	statsRepo := stats.NewRepository(dbPool)
	recorder := stats.NewRecorder(imageRepo, statsRepo, geo, log)
	if err := recorder.Restore(ctx); err != nil {
		log.Warn("restore stats snapshots", zap.Error(err))
	}

	registry := upload.NewRegistry(cfg.Upload.PartSize, cfg.Upload.MaxParts, cfg.Upload.SessionTTL)
	partStore := upload.NewMinIOPartStore(minioClient, cfg.MinIO.Bucket)
	coordinator := upload.NewCoordinator(registry, partStore, imageService, log)
	go coordinator.RunSweeper(ctx, cfg.Upload.SweepInterval)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		DB:           dbPool,
		ObjectStore:  minioClient,
		Log:          log,
		AuthService:  authService,
		ImageService: imageService,
		Coordinator:  coordinator,
		Recorder:     recorder,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("PicShare API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
