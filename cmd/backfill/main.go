package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sofia/artdex/internal/config"
	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
	"github.com/sofia/artdex/internal/storage"
	"gorm.io/gorm"
)

func main() {
	var (
		target     = flag.String("target", "embeddings", "what to backfill: embeddings or qr")
		mode       = flag.String("mode", "regenerate", "qr backfill mode: regenerate or link")
		kindsArg   = flag.String("kinds", "", "comma-separated embedding kinds (artist, artwork_text, artwork_image); empty means all")
		batch      = flag.Int("batch", 0, "concurrency window width; 0 uses the configured default")
		limit      = flag.Int("limit", 0, "max items discovered per kind; 0 uses the configured default")
		idsArg     = flag.String("ids", "", "comma-separated explicit id list; requires exactly one kind")
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
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

	if *batch <= 0 {
		*batch = cfg.Backfill.Batch
	}
	if *limit <= 0 {
		*limit = cfg.Backfill.Limit
	}

	var ids []string
	if *idsArg != "" {
		for _, id := range strings.Split(*idsArg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	// Cancel at the next window boundary on SIGINT/SIGTERM; the items
	// already in flight finish first.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.SetComponent(ctx, "backfill")

	switch *target {
	case "embeddings":
		runEmbeddings(ctx, cfg, db, appLogger, *kindsArg, *batch, *limit, ids)
	case "qr":
		runQR(ctx, cfg, db, appLogger, *mode, *limit, ids)
	default:
		appLogger.Fatalf("Unknown target %q, expected embeddings or qr", *target)
	}
}

func runEmbeddings(ctx context.Context, cfg *config.Config, db *gorm.DB, appLogger *logger.Logger, kindsArg string, batch, limit int, ids []string) {
	var kinds []domain.EntityKind
	if kindsArg != "" {
		for _, s := range strings.Split(kindsArg, ",") {
			kind, ok := domain.ParseKind(strings.TrimSpace(s))
			if !ok {
				appLogger.Fatalf("Unknown kind %q", s)
			}
			kinds = append(kinds, kind)
		}
	}

	artistRepo := repository.NewArtistRepository(db)
	artworkRepo := repository.NewArtworkRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)

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

	stats, err := backfill.Run(ctx, service.BackfillOptions{
		Kinds: kinds,
		Batch: batch,
		Limit: limit,
		IDs:   ids,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Backfill failed")
	}

	for kind, ks := range stats.PerKind {
		appLogger.WithFields(logger.Fields{
			logger.FieldKind: string(kind),
			"attempted":      ks.Attempted,
			"completed":      ks.Completed,
			"skipped":        ks.Skipped,
			"failed":         ks.Failed,
		}).Info("Backfill kind summary")
	}
	// Item failures are not fatal; they stay missing for the next run.
	if failed := stats.Failed(); failed > 0 {
		appLogger.WithField("failed", failed).Warn("Backfill finished with failures")
	}
}

func runQR(ctx context.Context, cfg *config.Config, db *gorm.DB, appLogger *logger.Logger, modeArg string, limit int, ids []string) {
	mode, ok := service.ParseQRMode(modeArg)
	if !ok {
		appLogger.Fatalf("Unknown mode %q, expected regenerate or link", modeArg)
	}

	objectStorage, err := storage.NewS3Storage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	artworkRepo := repository.NewArtworkRepository(db)
	qrService := service.NewQRService(artworkRepo, objectStorage, &service.QRServiceConfig{
		TargetBase: cfg.QR.TargetBase,
		Size:       cfg.QR.Size,
	}, appLogger)

	stats, err := qrService.Backfill(ctx, mode, limit, ids)
	if err != nil {
		appLogger.WithError(err).Fatal("QR backfill failed")
	}

	appLogger.WithFields(logger.Fields{
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"failed":  stats.Failed,
	}).Info("QR backfill summary")
}
