package posts

import (
	"context"
	"fmt"

	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Repository reads and writes posts through the database gateway
type Repository struct {
	repo interfaces.Repository
}

func NewRepository(db interfaces.Database) *Repository {
	return &Repository{repo: db.Repository(entities.PostSchema)}
}

func postData(title, text string, image *string) map[string]interface{} {
	data := map[string]interface{}{
		"title": title,
		"text":  text,
		"image": nil,
	}
	if image != nil {
		data["image"] = *image
	}
	return data
}

func (r *Repository) Create(ctx context.Context, title, text string, image *string) (*entities.Post, error) {
	rec, err := r.repo.Create(ctx, postData(title, text, image))
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return entities.PostFromRecord(rec)
}

func (r *Repository) FindAll(ctx context.Context) ([]entities.Post, error) {
	page, err := r.repo.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "id", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]entities.Post, 0, len(page.Data))
	for _, rec := range page.Data {
		p, err := entities.PostFromRecord(rec)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// GetByID returns interfaces.ErrNotFound when no post has the id
func (r *Repository) GetByID(ctx context.Context, id int64) (*entities.Post, error) {
	rec, err := r.repo.GetByID(ctx, interfaces.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return entities.PostFromRecord(rec)
}

// Update overwrites every field; a nil image clears the stored one
func (r *Repository) Update(ctx context.Context, id int64, title, text string, image *string) (*entities.Post, error) {
	rec, err := r.repo.Update(ctx, interfaces.ID(id), postData(title, text, image))
	if err != nil {
		return nil, fmt.Errorf("failed to update post %d: %w", id, err)
	}
	return entities.PostFromRecord(rec)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, interfaces.ID(id)); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return nil
}
