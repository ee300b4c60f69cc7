package domain

import "time"

// Artist represents an artist profile managed by the platform.
type Artist struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio"`
	CreatedAt time.Time `gorm:"index:idx_artists_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Artist.
func (Artist) TableName() string {
	return "artists"
}
