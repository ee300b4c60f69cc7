package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EntityKind identifies which entity an embedding record belongs to.
type EntityKind string

const (
	KindArtist       EntityKind = "artist"
	KindArtworkText  EntityKind = "artwork_text"
	KindArtworkImage EntityKind = "artwork_image"
)

// AllKinds lists every embedding kind in backfill processing order.
// Artists come first because artwork canonical text includes artist fields.
func AllKinds() []EntityKind {
	return []EntityKind{KindArtist, KindArtworkText, KindArtworkImage}
}

// ParseKind validates a kind string.
func ParseKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case KindArtist, KindArtworkText, KindArtworkImage:
		return EntityKind(s), true
	}
	return "", false
}

// ArtistTextEmbedding stores the text embedding derived from an artist's
// canonical text. At most one record per artist; the row is rewritten in
// place on every successful re-embed.
type ArtistTextEmbedding struct {
	ArtistID  string          `gorm:"type:text;primaryKey" json:"artist_id"`
	Model     string          `gorm:"type:text;not null" json:"model"`
	Text      string          `gorm:"type:text;not null" json:"text"`
	Embedding pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for ArtistTextEmbedding.
func (ArtistTextEmbedding) TableName() string {
	return "artist_text_embeddings"
}

// ArtworkTextEmbedding stores the text embedding of an artwork's canonical
// text (title, description, artist fields, category).
type ArtworkTextEmbedding struct {
	ArtworkID string          `gorm:"type:text;primaryKey" json:"artwork_id"`
	Model     string          `gorm:"type:text;not null" json:"model"`
	Text      string          `gorm:"type:text;not null" json:"text"`
	Embedding pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for ArtworkTextEmbedding.
func (ArtworkTextEmbedding) TableName() string {
	return "artwork_text_embeddings"
}

// ArtworkImageEmbedding stores the image embedding of a single artwork
// image. Keyed by image id, not artwork id: an artwork with N images owns N
// independent records. ArtworkID is a back-reference used for cascade
// deletes when the whole artwork goes away.
type ArtworkImageEmbedding struct {
	ArtworkImageID string          `gorm:"type:text;primaryKey" json:"artwork_image_id"`
	ArtworkID      string          `gorm:"type:text;not null;index:idx_image_embeddings_artwork" json:"artwork_id"`
	Model          string          `gorm:"type:text;not null" json:"model"`
	Embedding      pgvector.Vector `gorm:"type:vector(512)" json:"-"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName returns the database table name for ArtworkImageEmbedding.
func (ArtworkImageEmbedding) TableName() string {
	return "artwork_image_embeddings"
}
