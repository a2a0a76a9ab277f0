package db

import (
	"context"
	"fmt"

	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// MediaFixtures provides the default channels for seeding
var MediaFixtures = []map[string]interface{}{
	{"title": "instagram", "username": "https://www.instagram.com/USERNAME"},
	{"title": "wapp", "username": "https://www.wapp.com/USERNAME"},
	{"title": "telegram", "username": "https://www.telegram.com/USERNAME"},
	{"title": "facebook", "username": "https://www.facebook.com/USERNAME"},
}

// PostFixtures provides sample posts for seeding; half of them carry an image
var PostFixtures = []map[string]interface{}{
	{"title": "Why you should have a guinea pig?", "text": "https://www.guineapigs.com/why-you-should-guinea"},
	{"title": "Guinea pig diet basics", "text": "https://www.guineapigs.com/diet", "image": "https://picsum.photos/200"},
	{"title": "Building a guinea pig cage", "text": "https://www.guineapigs.com/cages"},
	{"title": "Guinea pig breeds", "text": "https://www.guineapigs.com/breeds", "image": "https://picsum.photos/200"},
}

// AllSchemas returns all entity schemas for migration, referenced tables first
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		entities.MediaSchema,
		entities.PostSchema,
		entities.PublicationSchema,
	}
}

// SeedFixtures inserts the media and post fixtures. Publications are not
// seeded since their dates must lie in the future when created.
func SeedFixtures(ctx context.Context, db interfaces.Database) error {
	if err := db.Seed(ctx, entities.MediaSchema, MediaFixtures); err != nil {
		return fmt.Errorf("failed to seed medias: %w", err)
	}
	if err := db.Seed(ctx, entities.PostSchema, PostFixtures); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	return nil
}
