package entities

import (
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Post represents a content item that can be scheduled for publication
type Post struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Text      string    `json:"text" db:"text"`
	Image     *string   `json:"image,omitempty" db:"image"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// PostSchema defines the database schema for posts
var PostSchema = &interfaces.Schema{
	TableName: "posts",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       interfaces.TypeInt64,
			PrimaryKey: true,
		},
		"title": {
			Type: interfaces.TypeString,
		},
		"text": {
			Type: interfaces.TypeString,
		},
		"image": {
			Type:     interfaces.TypeString,
			Nullable: true,
		},
		"created_at": {
			Type: interfaces.TypeTime,
		},
		"updated_at": {
			Type: interfaces.TypeTime,
		},
	},
}
