// Package publications schedules posts on medias. A publication is
// scheduled while its date lies ahead and published once the date is
// reached; only scheduled publications can be edited.
package publications

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// MediaGetter resolves media ids
type MediaGetter interface {
	GetByID(ctx context.Context, id int64) (*entities.Media, error)
}

// PostGetter resolves post ids
type PostGetter interface {
	GetByID(ctx context.Context, id int64) (*entities.Post, error)
}

type Service struct {
	db     interfaces.Database
	repo   *Repository
	medias MediaGetter
	posts  PostGetter
	now    func() time.Time
	logger *zap.SugaredLogger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(db interfaces.Database, repo *Repository, medias MediaGetter, posts PostGetter, logger *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		repo:   repo,
		medias: medias,
		posts:  posts,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Health() string {
	return "Publications online!"
}

// Create schedules a post on a media. Both must exist and the date must
// not have passed.
func (s *Service) Create(ctx context.Context, mediaID, postID int64, date time.Time) (*entities.Publication, error) {
	var created *entities.Publication
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.ensureTargets(ctx, mediaID, postID); err != nil {
			return err
		}
		if date.Before(s.now()) {
			return dateInPast(date)
		}

		p, err := s.repo.Create(ctx, mediaID, postID, date)
		if errors.Is(err, interfaces.ErrForeignKeyConstraint) {
			return apperr.NotFound("media %d or post %d not found", mediaID, postID).Wrap(err)
		}
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Publication %d created", created.ID)
	return created, nil
}

// List returns the publications matching f, ordered by id
func (s *Service) List(ctx context.Context, f Filter) ([]entities.Publication, error) {
	return s.repo.FindMany(ctx, f.where(s.now()))
}

func (s *Service) GetByID(ctx context.Context, id int64) (*entities.Publication, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.NotFound("publication %d not found", id)
	}
	return p, err
}

// Update reschedules a publication that has not been published yet
func (s *Service) Update(ctx context.Context, id, mediaID, postID int64, date time.Time) (*entities.Publication, error) {
	var updated *entities.Publication
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		existing, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if date.Before(now) {
			return dateInPast(date)
		}
		if existing.IsPublished(now) {
			return apperr.Forbidden("publication %d is already published", id)
		}
		if err := s.ensureTargets(ctx, mediaID, postID); err != nil {
			return err
		}

		p, err := s.repo.Update(ctx, id, mediaID, postID, date)
		switch {
		case errors.Is(err, interfaces.ErrForeignKeyConstraint):
			return apperr.NotFound("media %d or post %d not found", mediaID, postID).Wrap(err)
		case errors.Is(err, interfaces.ErrNotFound):
			return apperr.NotFound("publication %d not found", id)
		case err != nil:
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Publication %d updated", id)
	return updated, nil
}

// Delete removes a publication whether or not it is published
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		return apperr.NotFound("publication %d not found", id)
	}
	if err != nil {
		return err
	}

	s.logger.Infof("Publication %d deleted", id)
	return nil
}

func (s *Service) ensureTargets(ctx context.Context, mediaID, postID int64) error {
	if _, err := s.medias.GetByID(ctx, mediaID); err != nil {
		return err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return err
	}
	return nil
}

func dateInPast(date time.Time) error {
	return apperr.Forbidden("date %s has already passed", date.UTC().Format(time.RFC3339))
}
