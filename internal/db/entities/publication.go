package entities

import (
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Publication links a post to a media at a date. It is published once the
// date has been reached and scheduled before that.
type Publication struct {
	ID        int64     `json:"id" db:"id"`
	MediaID   int64     `json:"mediaId" db:"media_id"`
	PostID    int64     `json:"postId" db:"post_id"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// IsPublished reports whether the publication date is at or before now.
func (p *Publication) IsPublished(now time.Time) bool {
	return !p.Date.After(now)
}

// PublicationSchema defines the database schema for publications
var PublicationSchema = &interfaces.Schema{
	TableName: "publications",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       interfaces.TypeInt64,
			PrimaryKey: true,
		},
		"media_id": {
			Type: interfaces.TypeInt64,
			ForeignKey: &interfaces.ForeignKey{
				Table:    "medias",
				Column:   "id",
				OnDelete: "RESTRICT",
			},
		},
		"post_id": {
			Type: interfaces.TypeInt64,
			ForeignKey: &interfaces.ForeignKey{
				Table:    "posts",
				Column:   "id",
				OnDelete: "RESTRICT",
			},
		},
		"date": {
			Type: interfaces.TypeTime,
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
			Name:    "idx_publications_media",
			Columns: []string{"media_id"},
		},
		{
			Name:    "idx_publications_post",
			Columns: []string{"post_id"},
		},
		{
			Name:    "idx_publications_date",
			Columns: []string{"date"},
		},
	},
}
