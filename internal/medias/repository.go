package medias

import (
	"context"
	"fmt"

	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Repository reads and writes medias through the database gateway
type Repository struct {
	repo interfaces.Repository
}

func NewRepository(db interfaces.Database) *Repository {
	return &Repository{repo: db.Repository(entities.MediaSchema)}
}

func (r *Repository) Create(ctx context.Context, title, username string) (*entities.Media, error) {
	rec, err := r.repo.Create(ctx, map[string]interface{}{
		"title":    title,
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}
	return entities.MediaFromRecord(rec)
}

func (r *Repository) FindAll(ctx context.Context) ([]entities.Media, error) {
	page, err := r.repo.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "id", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list medias: %w", err)
	}

	medias := make([]entities.Media, 0, len(page.Data))
	for _, rec := range page.Data {
		m, err := entities.MediaFromRecord(rec)
		if err != nil {
			return nil, err
		}
		medias = append(medias, *m)
	}
	return medias, nil
}

// GetByID returns interfaces.ErrNotFound when no media has the id
func (r *Repository) GetByID(ctx context.Context, id int64) (*entities.Media, error) {
	rec, err := r.repo.GetByID(ctx, interfaces.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return entities.MediaFromRecord(rec)
}

// FindByTitleAndUsername returns interfaces.ErrNotFound when the pair is free
func (r *Repository) FindByTitleAndUsername(ctx context.Context, title, username string) (*entities.Media, error) {
	rec, err := r.repo.FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(
			interfaces.Eq("title", title),
			interfaces.Eq("username", username),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return entities.MediaFromRecord(rec)
}

func (r *Repository) Update(ctx context.Context, id int64, title, username string) (*entities.Media, error) {
	rec, err := r.repo.Update(ctx, interfaces.ID(id), map[string]interface{}{
		"title":    title,
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update media %d: %w", id, err)
	}
	return entities.MediaFromRecord(rec)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, interfaces.ID(id)); err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	return nil
}
