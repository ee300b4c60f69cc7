package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sofia/artdex/internal/api"
	"github.com/sofia/artdex/internal/config"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
	"github.com/sofia/artdex/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv()
	logger.SetDefault(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	artistRepo := repository.NewArtistRepository(db)
	artworkRepo := repository.NewArtworkRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)

	objectStorage, err := storage.NewS3Storage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(context.Background()); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	textEmbedder := service.NewOpenAIEmbedder(&service.TextEmbedderConfig{
		Model:          cfg.Embedding.Text.Model,
		APIKey:         cfg.Embedding.Text.APIKey,
		BaseURL:        cfg.Embedding.Text.BaseURL,
		Dimensions:     cfg.Embedding.Text.Dimensions,
		MaxInputChars:  cfg.Embedding.Text.MaxInputChars,
		RequestTimeout: cfg.Embedding.Text.RequestTimeout,
	})
	imageEmbedder := service.NewImageEmbedder(&service.ImageEmbedderConfig{
		Provider:       cfg.Embedding.Image.Provider,
		Model:          cfg.Embedding.Image.Model,
		EndpointURL:    cfg.Embedding.Image.EndpointURL,
		Dimensions:     cfg.Embedding.Image.Dimensions,
		RequestTimeout: cfg.Embedding.Image.RequestTimeout,
	})

	canonical := service.NewCanonicalizer(artistRepo, artworkRepo)
	reindexer := service.NewReindexer(artworkRepo, embeddingRepo, canonical, textEmbedder, imageEmbedder, appLogger)
	backfill := service.NewBackfill(embeddingRepo, reindexer, appLogger)
	qrService := service.NewQRService(artworkRepo, objectStorage, &service.QRServiceConfig{
		TargetBase: cfg.QR.TargetBase,
		Size:       cfg.QR.Size,
	}, appLogger)

	router := api.SetupRouter(api.Dependencies{
		Artists:        artistRepo,
		Artworks:       artworkRepo,
		Categories:     categoryRepo,
		Embeddings:     embeddingRepo,
		Reindexer:      reindexer,
		Backfill:       backfill,
		QR:             qrService,
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// Let in-flight async reindexes finish before the process exits.
	reindexer.WaitAsync()

	appLogger.Info("Server exited")
}
