package domain

import "time"

// Artwork represents a single artwork with its images.
type Artwork struct {
	ID          string         `gorm:"type:text;primaryKey" json:"id"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	ArtistID    string         `gorm:"type:text;not null;index:idx_artworks_artist" json:"artist_id"`
	CategoryID  string         `gorm:"type:text;index:idx_artworks_category" json:"category_id"`
	Published   bool           `gorm:"default:false" json:"published"`
	QRCodeURL   string         `gorm:"type:text" json:"qr_code_url,omitempty"`
	CreatedAt   time.Time      `gorm:"index:idx_artworks_created" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Artist      *Artist        `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	Category    *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Images      []ArtworkImage `gorm:"foreignKey:ArtworkID" json:"images,omitempty"`
}

// TableName returns the database table name for Artwork.
func (Artwork) TableName() string {
	return "artworks"
}

// ArtworkImage is one uploaded image of an artwork. An artwork may carry
// several images; each one is embedded independently, keyed by image id.
type ArtworkImage struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	ArtworkID string    `gorm:"type:text;not null;index:idx_artwork_images_artwork" json:"artwork_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"index:idx_artwork_images_created" json:"created_at"`
}

// TableName returns the database table name for ArtworkImage.
func (ArtworkImage) TableName() string {
	return "artwork_images"
}
