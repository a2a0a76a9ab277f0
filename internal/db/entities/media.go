package entities

import (
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Media represents a social-media channel a post can be published on.
type Media struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// MediaSchema defines the database schema for medias
var MediaSchema = &interfaces.Schema{
	TableName: "medias",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       interfaces.TypeInt64,
			PrimaryKey: true,
		},
		"title": {
			Type: interfaces.TypeString,
		},
		"username": {
			Type: interfaces.TypeString,
		},
		"created_at": {
			Type: interfaces.TypeTime,
		},
		"updated_at": {
			Type: interfaces.TypeTime,
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_medias_title_username",
			Columns: []string{"title", "username"},
			Unique:  true,
		},
	},
}
