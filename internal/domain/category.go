package domain

import "time"

// Category is an artwork category (painting, sculpture, ...).
type Category struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_categories_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string {
	return "categories"
}
