package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
)

// Reindexer is the unit of idempotent embedding work: look up the entity,
// canonicalize or resolve the image URL, call the provider, upsert into the
// vector store. Both the inline path (business mutations) and the backfill
// converge here, so the semantics are identical either way.
type Reindexer struct {
	artworks   *repository.ArtworkRepository
	embeddings *repository.EmbeddingRepository
	canonical  *Canonicalizer
	text       TextEmbedder
	image      ImageEmbedder
	logger     *logger.Logger

	asyncTimeout time.Duration
	async        sync.WaitGroup
}

// NewReindexer creates a Reindexer over the given collaborators.
func NewReindexer(
	artworks *repository.ArtworkRepository,
	embeddings *repository.EmbeddingRepository,
	canonical *Canonicalizer,
	text TextEmbedder,
	image ImageEmbedder,
	log *logger.Logger,
) *Reindexer {
	return &Reindexer{
		artworks:     artworks,
		embeddings:   embeddings,
		canonical:    canonical,
		text:         text,
		image:        image,
		logger:       log,
		asyncTimeout: 2 * time.Minute,
	}
}

func (s *Reindexer) log(ctx context.Context) *logger.Logger {
	if ctx != nil {
		return logger.FromContext(ctx)
	}
	return s.logger
}

// Reindex produces and stores the embedding record for one entity. On
// success exactly one upsert happens; an entity that canonicalizes to empty
// text is a successful no-op with no provider call and no store write.
// domain.ErrNotFound and provider errors propagate to the caller, which
// decides whether they are fatal.
func (s *Reindexer) Reindex(ctx context.Context, id string, kind domain.EntityKind) error {
	switch kind {
	case domain.KindArtist, domain.KindArtworkText:
		return s.reindexText(ctx, id, kind)
	case domain.KindArtworkImage:
		return s.reindexImage(ctx, id)
	}
	return fmt.Errorf("unknown entity kind %q", kind)
}

func (s *Reindexer) reindexText(ctx context.Context, id string, kind domain.EntityKind) error {
	text, err := s.canonical.BuildText(ctx, id, kind)
	if err != nil {
		return err
	}
	if text == "" {
		// Nothing to embed. A valid terminal state, not a failure.
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldEntityID: id,
			logger.FieldKind:     string(kind),
		}).Debug("Canonical text empty, skipping embedding")
		return nil
	}

	vector, err := s.text.EmbedText(ctx, text)
	if err != nil {
		return err
	}

	switch kind {
	case domain.KindArtist:
		err = s.embeddings.UpsertArtistText(ctx, id, s.text.Model(), text, vector)
	case domain.KindArtworkText:
		err = s.embeddings.UpsertArtworkText(ctx, id, s.text.Model(), text, vector)
	}
	return err
}

func (s *Reindexer) reindexImage(ctx context.Context, imageID string) error {
	img, err := s.artworks.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if img.URL == "" {
		return nil
	}

	vector, err := s.image.EmbedImage(ctx, img.URL)
	if err != nil {
		return err
	}

	return s.embeddings.UpsertArtworkImage(ctx, img.ID, img.ArtworkID, s.image.Model(), vector)
}

// ReindexArtwork refreshes the artwork's text embedding and every image
// embedding. The operations are independent: one image failing does not
// stop the others. The joined error carries every individual failure.
func (s *Reindexer) ReindexArtwork(ctx context.Context, artworkID string) error {
	var errs []error

	if err := s.Reindex(ctx, artworkID, domain.KindArtworkText); err != nil {
		errs = append(errs, fmt.Errorf("artwork %s text: %w", artworkID, err))
	}

	images, err := s.artworks.ListImages(ctx, artworkID)
	if err != nil {
		errs = append(errs, fmt.Errorf("artwork %s images: %w", artworkID, err))
		return errors.Join(errs...)
	}
	for _, img := range images {
		if err := s.Reindex(ctx, img.ID, domain.KindArtworkImage); err != nil {
			errs = append(errs, fmt.Errorf("image %s: %w", img.ID, err))
		}
	}

	return errors.Join(errs...)
}

// ReindexAsync dispatches a best-effort reindex after the primary mutation
// has committed. It runs on its own context so no request transaction is
// held across provider calls, and every failure ends in a log line, never
// in the caller's response.
func (s *Reindexer) ReindexAsync(id string, kind domain.EntityKind) {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logger.Fields{
					logger.FieldEntityID: id,
					logger.FieldKind:     string(kind),
				}).Errorf("Panic during async reindex: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
		defer cancel()

		if err := s.Reindex(ctx, id, kind); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return
			}
			s.logger.WithFields(logger.Fields{
				logger.FieldEntityID: id,
				logger.FieldKind:     string(kind),
			}).WithError(err).Warn("Async reindex failed")
		}
	}()
}

// ReindexArtworkAsync is ReindexAsync for the whole artwork (text + every
// image).
func (s *Reindexer) ReindexArtworkAsync(artworkID string) {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField(logger.FieldEntityID, artworkID).
					Errorf("Panic during async artwork reindex: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
		defer cancel()

		if err := s.ReindexArtwork(ctx, artworkID); err != nil {
			s.logger.WithField(logger.FieldEntityID, artworkID).
				WithError(err).Warn("Async artwork reindex failed")
		}
	}()
}

// WaitAsync blocks until all in-flight async reindexes finish. Used on
// shutdown and in tests.
func (s *Reindexer) WaitAsync() {
	s.async.Wait()
}
