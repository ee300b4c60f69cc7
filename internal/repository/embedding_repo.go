package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/sofia/artdex/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmbeddingRepository is the vector store adapter. Every write is a single
// atomic insert-or-update keyed by entity id, never read-then-write, so a
// live edit racing a backfill item resolves via last-write-wins without
// locking.
type EmbeddingRepository struct {
	db *gorm.DB
}

// NewEmbeddingRepository creates a new EmbeddingRepository bound to db.
func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// UpsertArtistText writes or overwrites the text embedding record for an
// artist. The vector is bound through the driver's native vector type, not
// interpolated into SQL.
func (r *EmbeddingRepository) UpsertArtistText(ctx context.Context, artistID, model, text string, vector []float32) error {
	record := &domain.ArtistTextEmbedding{
		ArtistID:  artistID,
		Model:     model,
		Text:      text,
		Embedding: pgvector.NewVector(vector),
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model", "text", "embedding", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert artist text embedding: %w", err)
	}
	return nil
}

// UpsertArtworkText writes or overwrites the text embedding record for an
// artwork.
func (r *EmbeddingRepository) UpsertArtworkText(ctx context.Context, artworkID, model, text string, vector []float32) error {
	record := &domain.ArtworkTextEmbedding{
		ArtworkID: artworkID,
		Model:     model,
		Text:      text,
		Embedding: pgvector.NewVector(vector),
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artwork_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model", "text", "embedding", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert artwork text embedding: %w", err)
	}
	return nil
}

// UpsertArtworkImage writes or overwrites the embedding record for a single
// artwork image, keyed by the image id.
func (r *EmbeddingRepository) UpsertArtworkImage(ctx context.Context, imageID, artworkID, model string, vector []float32) error {
	record := &domain.ArtworkImageEmbedding{
		ArtworkImageID: imageID,
		ArtworkID:      artworkID,
		Model:          model,
		Embedding:      pgvector.NewVector(vector),
		UpdatedAt:      time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artwork_image_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"artwork_id", "model", "embedding", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert artwork image embedding: %w", err)
	}
	return nil
}

// Delete removes the embedding record for the given entity. Deleting a
// record that does not exist is not an error.
func (r *EmbeddingRepository) Delete(ctx context.Context, id string, kind domain.EntityKind) error {
	switch kind {
	case domain.KindArtist:
		return r.db.WithContext(ctx).Delete(&domain.ArtistTextEmbedding{}, "artist_id = ?", id).Error
	case domain.KindArtworkText:
		return r.db.WithContext(ctx).Delete(&domain.ArtworkTextEmbedding{}, "artwork_id = ?", id).Error
	case domain.KindArtworkImage:
		return r.db.WithContext(ctx).Delete(&domain.ArtworkImageEmbedding{}, "artwork_image_id = ?", id).Error
	}
	return fmt.Errorf("unknown entity kind %q", kind)
}

// DeleteByArtwork removes every embedding record owned by an artwork: its
// text record and one record per image.
func (r *EmbeddingRepository) DeleteByArtwork(ctx context.Context, artworkID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.ArtworkImageEmbedding{}, "artwork_id = ?", artworkID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ArtworkTextEmbedding{}, "artwork_id = ?", artworkID).Error
	})
}

// FindMissing returns the ids of every entity of the given kind that has no
// embedding record, oldest backlog first. For the image kind discovery is
// per image id: an artwork with three images and one missing embedding
// yields exactly that one image id. limit <= 0 means unbounded. This is a
// pure anti-join with no cursor state; re-running it restarts discovery.
func (r *EmbeddingRepository) FindMissing(ctx context.Context, kind domain.EntityKind, limit int) ([]string, error) {
	var query string
	switch kind {
	case domain.KindArtist:
		query = `
			SELECT a.id FROM artists a
			LEFT JOIN artist_text_embeddings e ON e.artist_id = a.id
			WHERE e.artist_id IS NULL
			ORDER BY a.created_at ASC`
	case domain.KindArtworkText:
		query = `
			SELECT aw.id FROM artworks aw
			LEFT JOIN artwork_text_embeddings e ON e.artwork_id = aw.id
			WHERE e.artwork_id IS NULL
			ORDER BY aw.created_at ASC`
	case domain.KindArtworkImage:
		query = `
			SELECT im.id FROM artwork_images im
			LEFT JOIN artwork_image_embeddings e ON e.artwork_image_id = im.id
			WHERE e.artwork_image_id IS NULL
			ORDER BY im.created_at ASC`
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var ids []string
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to discover missing %s embeddings: %w", kind, err)
	}
	return ids, nil
}

// CountMissing reports the remaining backlog for a kind. Used by the
// backfill summary and the admin stats endpoint.
func (r *EmbeddingRepository) CountMissing(ctx context.Context, kind domain.EntityKind) (int64, error) {
	ids, err := r.FindMissing(ctx, kind, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// GetArtistText retrieves the embedding record for an artist.
func (r *EmbeddingRepository) GetArtistText(ctx context.Context, artistID string) (*domain.ArtistTextEmbedding, error) {
	var record domain.ArtistTextEmbedding
	if err := r.db.WithContext(ctx).First(&record, "artist_id = ?", artistID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetArtworkText retrieves the embedding record for an artwork's text.
func (r *EmbeddingRepository) GetArtworkText(ctx context.Context, artworkID string) (*domain.ArtworkTextEmbedding, error) {
	var record domain.ArtworkTextEmbedding
	if err := r.db.WithContext(ctx).First(&record, "artwork_id = ?", artworkID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetArtworkImage retrieves the embedding record for a single image.
func (r *EmbeddingRepository) GetArtworkImage(ctx context.Context, imageID string) (*domain.ArtworkImageEmbedding, error) {
	var record domain.ArtworkImageEmbedding
	if err := r.db.WithContext(ctx).First(&record, "artwork_image_id = ?", imageID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CountByArtwork counts image embedding records owned by an artwork.
func (r *EmbeddingRepository) CountByArtwork(ctx context.Context, artworkID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ArtworkImageEmbedding{}).
		Where("artwork_id = ?", artworkID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
