package service

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/storage"
)

// QRMode selects the backfill behavior for QR artifacts.
type QRMode string

const (
	// QRModeRegenerate renders a fresh QR PNG and uploads it.
	QRModeRegenerate QRMode = "regenerate"
	// QRModeLink only recomputes and stores the public URL, assuming the
	// object already exists in the bucket.
	QRModeLink QRMode = "link"
)

// ParseQRMode validates a mode string.
func ParseQRMode(s string) (QRMode, bool) {
	switch QRMode(s) {
	case QRModeRegenerate, QRModeLink:
		return QRMode(s), true
	}
	return "", false
}

// QRService maintains the per-artwork QR code artifact: a PNG in object
// storage pointing visitors at the public artwork page.
type QRService struct {
	artworks   *repository.ArtworkRepository
	storage    storage.ObjectStorage
	targetBase string
	size       int
	logger     *logger.Logger
}

// QRServiceConfig holds configuration for the QR artifact service.
type QRServiceConfig struct {
	TargetBase string
	Size       int
}

// NewQRService creates a QRService.
func NewQRService(artworks *repository.ArtworkRepository, objectStorage storage.ObjectStorage, cfg *QRServiceConfig, log *logger.Logger) *QRService {
	size := cfg.Size
	if size <= 0 {
		size = 512
	}
	return &QRService{
		artworks:   artworks,
		storage:    objectStorage,
		targetBase: cfg.TargetBase,
		size:       size,
		logger:     log,
	}
}

// QRStats summarizes a QR backfill run.
type QRStats struct {
	Scanned int
	Updated int
	Failed  int
}

func (s *QRService) objectKey(artworkID string) string {
	return fmt.Sprintf("qr/artworks/%s.png", artworkID)
}

// targetURL builds the public viewer URL encoded into the QR code.
func (s *QRService) targetURL(artworkID string) (string, error) {
	u, err := url.Parse(s.targetBase)
	if err != nil {
		return "", fmt.Errorf("invalid QR target base %q: %w", s.targetBase, err)
	}
	q := u.Query()
	q.Set("aid", artworkID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Generate renders, uploads, and records the QR artifact for one artwork.
func (s *QRService) Generate(ctx context.Context, artworkID string) (string, error) {
	target, err := s.targetURL(artworkID)
	if err != nil {
		return "", err
	}

	png, err := qrcode.Encode(target, qrcode.Medium, s.size)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	key := s.objectKey(artworkID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(png), int64(len(png)), "image/png"); err != nil {
		return "", err
	}

	publicURL := s.storage.GetURL(key)
	if err := s.artworks.SetQRCodeURL(ctx, artworkID, publicURL); err != nil {
		return "", err
	}
	return publicURL, nil
}

// link recomputes the public URL without rendering or uploading.
func (s *QRService) link(ctx context.Context, artworkID string) (string, error) {
	publicURL := s.storage.GetURL(s.objectKey(artworkID))
	if err := s.artworks.SetQRCodeURL(ctx, artworkID, publicURL); err != nil {
		return "", err
	}
	return publicURL, nil
}

// GenerateAsync dispatches best-effort QR generation after an artwork
// create has committed.
func (s *QRService) GenerateAsync(artworkID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField(logger.FieldEntityID, artworkID).
					Errorf("Panic during async QR generation: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := s.Generate(ctx, artworkID); err != nil {
			s.logger.WithField(logger.FieldEntityID, artworkID).
				WithError(err).Warn("Async QR generation failed")
		}
	}()
}

// Backfill repairs QR artifacts for artworks missing one. When ids is
// non-empty the run is restricted to that list regardless of current
// state. Items are processed sequentially with per-item failure isolation.
func (s *QRService) Backfill(ctx context.Context, mode QRMode, limit int, ids []string) (*QRStats, error) {
	var targets []string
	if len(ids) > 0 {
		targets = ids
	} else {
		artworks, err := s.artworks.ListMissingQR(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("QR backfill discovery failed: %w", err)
		}
		for _, aw := range artworks {
			targets = append(targets, aw.ID)
		}
	}

	log := logger.FromContext(ctx)
	log.WithFields(logger.Fields{
		"mode":            string(mode),
		logger.FieldCount: len(targets),
	}).Info("QR backfill starting")

	stats := &QRStats{Scanned: len(targets)}
	for _, id := range targets {
		if ctx.Err() != nil {
			break
		}

		var err error
		if mode == QRModeLink {
			_, err = s.link(ctx, id)
		} else {
			_, err = s.Generate(ctx, id)
		}
		if err != nil {
			stats.Failed++
			log.WithField(logger.FieldEntityID, id).WithError(err).Error("QR backfill item failed")
			continue
		}
		stats.Updated++
	}

	log.WithFields(logger.Fields{
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"failed":  stats.Failed,
	}).Info("QR backfill completed")

	return stats, nil
}
