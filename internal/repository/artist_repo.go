package repository

import (
	"context"
	"errors"

	"github.com/sofia/artdex/internal/domain"
	"gorm.io/gorm"
)

// ArtistRepository handles artist data operations.
type ArtistRepository struct {
	db *gorm.DB
}

// NewArtistRepository creates a new ArtistRepository bound to db.
func NewArtistRepository(db *gorm.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new artist record.
func (r *ArtistRepository) Create(ctx context.Context, artist *domain.Artist) error {
	return r.db.WithContext(ctx).Create(artist).Error
}

// Update persists changes to an existing artist record.
func (r *ArtistRepository) Update(ctx context.Context, artist *domain.Artist) error {
	return r.db.WithContext(ctx).Save(artist).Error
}

// GetByID retrieves an artist by id, mapping a missing row to
// domain.ErrNotFound.
func (r *ArtistRepository) GetByID(ctx context.Context, id string) (*domain.Artist, error) {
	var artist domain.Artist
	if err := r.db.WithContext(ctx).First(&artist, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &artist, nil
}

// List retrieves artists ordered by creation time with pagination.
func (r *ArtistRepository) List(ctx context.Context, limit, offset int) ([]domain.Artist, error) {
	var artists []domain.Artist
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&artists).Error; err != nil {
		return nil, err
	}
	return artists, nil
}

// Delete removes an artist and its text embedding record in one
// transaction. Artworks referencing the artist are left untouched; their
// canonical text simply loses the artist lines on the next reindex.
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.ArtistTextEmbedding{}, "artist_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Artist{}, "id = ?", id).Error
	})
}
