package repository

import (
	"context"
	"errors"

	"github.com/sofia/artdex/internal/domain"
	"gorm.io/gorm"
)

// ArtworkRepository handles artwork and artwork-image data operations.
type ArtworkRepository struct {
	db *gorm.DB
}

// NewArtworkRepository creates a new ArtworkRepository bound to db.
func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// Create inserts a new artwork together with its images.
func (r *ArtworkRepository) Create(ctx context.Context, artwork *domain.Artwork) error {
	return r.db.WithContext(ctx).Create(artwork).Error
}

// Update persists changes to an existing artwork record. Images are managed
// separately via AddImage/DeleteImage.
func (r *ArtworkRepository) Update(ctx context.Context, artwork *domain.Artwork) error {
	return r.db.WithContext(ctx).Omit("Images", "Artist", "Category").Save(artwork).Error
}

// GetByID retrieves an artwork by id, mapping a missing row to
// domain.ErrNotFound.
func (r *ArtworkRepository) GetByID(ctx context.Context, id string) (*domain.Artwork, error) {
	var artwork domain.Artwork
	if err := r.db.WithContext(ctx).First(&artwork, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &artwork, nil
}

// GetWithRelations retrieves an artwork with artist, category and images
// preloaded. Canonicalization reads through this path.
func (r *ArtworkRepository) GetWithRelations(ctx context.Context, id string) (*domain.Artwork, error) {
	var artwork domain.Artwork
	if err := r.db.WithContext(ctx).
		Preload("Artist").
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		First(&artwork, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &artwork, nil
}

// List retrieves artworks ordered by creation time with pagination.
func (r *ArtworkRepository) List(ctx context.Context, limit, offset int) ([]domain.Artwork, error) {
	var artworks []domain.Artwork
	query := r.db.WithContext(ctx).Preload("Images").Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&artworks).Error; err != nil {
		return nil, err
	}
	return artworks, nil
}

// GetImage retrieves a single artwork image by its id.
func (r *ArtworkRepository) GetImage(ctx context.Context, imageID string) (*domain.ArtworkImage, error) {
	var img domain.ArtworkImage
	if err := r.db.WithContext(ctx).First(&img, "id = ?", imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListImages retrieves all images of an artwork in display order.
func (r *ArtworkRepository) ListImages(ctx context.Context, artworkID string) ([]domain.ArtworkImage, error) {
	var images []domain.ArtworkImage
	if err := r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Order("position ASC, created_at ASC").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// AddImage attaches a new image to an artwork.
func (r *ArtworkRepository) AddImage(ctx context.Context, img *domain.ArtworkImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

// DeleteImage removes an image and its embedding record in one
// transaction. The image owns its embedding record's lifecycle.
func (r *ArtworkRepository) DeleteImage(ctx context.Context, imageID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.ArtworkImageEmbedding{}, "artwork_image_id = ?", imageID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ArtworkImage{}, "id = ?", imageID).Error
	})
}

// Delete removes an artwork, its images, and every embedding record the
// artwork owns (text plus one per image) in one transaction.
func (r *ArtworkRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.ArtworkImageEmbedding{}, "artwork_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.ArtworkTextEmbedding{}, "artwork_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.ArtworkImage{}, "artwork_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Artwork{}, "id = ?", id).Error
	})
}

// ListMissingQR retrieves artworks lacking a QR artifact, oldest first.
func (r *ArtworkRepository) ListMissingQR(ctx context.Context, limit int) ([]domain.Artwork, error) {
	var artworks []domain.Artwork
	query := r.db.WithContext(ctx).
		Where("qr_code_url IS NULL OR qr_code_url = ''").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&artworks).Error; err != nil {
		return nil, err
	}
	return artworks, nil
}

// SetQRCodeURL updates only the QR artifact URL of an artwork.
func (r *ArtworkRepository) SetQRCodeURL(ctx context.Context, id, url string) error {
	return r.db.WithContext(ctx).Model(&domain.Artwork{}).
		Where("id = ?", id).
		Update("qr_code_url", url).Error
}
