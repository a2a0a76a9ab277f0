package publications

import (
	"context"
	"fmt"
	"time"

	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Repository reads and writes publications through the database gateway.
// It also answers the reference checks of the medias and posts services.
type Repository struct {
	repo interfaces.Repository
}

func NewRepository(db interfaces.Database) *Repository {
	return &Repository{repo: db.Repository(entities.PublicationSchema)}
}

func publicationData(mediaID, postID int64, date time.Time) map[string]interface{} {
	return map[string]interface{}{
		"media_id": mediaID,
		"post_id":  postID,
		"date":     date.UTC(),
	}
}

func (r *Repository) Create(ctx context.Context, mediaID, postID int64, date time.Time) (*entities.Publication, error) {
	rec, err := r.repo.Create(ctx, publicationData(mediaID, postID, date))
	if err != nil {
		return nil, fmt.Errorf("failed to create publication: %w", err)
	}
	return entities.PublicationFromRecord(rec)
}

func (r *Repository) FindMany(ctx context.Context, where *interfaces.Filters) ([]entities.Publication, error) {
	page, err := r.repo.FindMany(ctx, &interfaces.Query{
		Where:   where,
		OrderBy: []interfaces.OrderBy{{Field: "id", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	pubs := make([]entities.Publication, 0, len(page.Data))
	for _, rec := range page.Data {
		p, err := entities.PublicationFromRecord(rec)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, *p)
	}
	return pubs, nil
}

// GetByID returns interfaces.ErrNotFound when no publication has the id
func (r *Repository) GetByID(ctx context.Context, id int64) (*entities.Publication, error) {
	rec, err := r.repo.GetByID(ctx, interfaces.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get publication %d: %w", id, err)
	}
	return entities.PublicationFromRecord(rec)
}

func (r *Repository) Update(ctx context.Context, id, mediaID, postID int64, date time.Time) (*entities.Publication, error) {
	rec, err := r.repo.Update(ctx, interfaces.ID(id), publicationData(mediaID, postID, date))
	if err != nil {
		return nil, fmt.Errorf("failed to update publication %d: %w", id, err)
	}
	return entities.PublicationFromRecord(rec)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, interfaces.ID(id)); err != nil {
		return fmt.Errorf("failed to delete publication %d: %w", id, err)
	}
	return nil
}

// ExistsByMediaID reports whether any publication, past or future, uses the media
func (r *Repository) ExistsByMediaID(ctx context.Context, mediaID int64) (bool, error) {
	return r.exists(ctx, "media_id", mediaID)
}

// ExistsByPostID reports whether any publication, past or future, uses the post
func (r *Repository) ExistsByPostID(ctx context.Context, postID int64) (bool, error) {
	return r.exists(ctx, "post_id", postID)
}

func (r *Repository) exists(ctx context.Context, field string, id int64) (bool, error) {
	n, err := r.repo.Count(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq(field, id))})
	if err != nil {
		return false, fmt.Errorf("failed to count publications by %s: %w", field, err)
	}
	return n > 0, nil
}
