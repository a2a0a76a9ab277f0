// Package medias manages the social-media channels posts are published on.
package medias

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// ReferenceChecker reports whether any publication points at a media
type ReferenceChecker interface {
	ExistsByMediaID(ctx context.Context, mediaID int64) (bool, error)
}

type Service struct {
	db     interfaces.Database
	repo   *Repository
	refs   ReferenceChecker
	logger *zap.SugaredLogger
}

func NewService(db interfaces.Database, refs ReferenceChecker, logger *zap.SugaredLogger) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		refs:   refs,
		logger: logger,
	}
}

func (s *Service) Health() string {
	return "Medias online!"
}

// Create inserts a media unless its (title, username) pair is taken
func (s *Service) Create(ctx context.Context, title, username string) (*entities.Media, error) {
	var created *entities.Media
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.ensurePairFree(ctx, title, username, 0); err != nil {
			return err
		}

		m, err := s.repo.Create(ctx, title, username)
		if err != nil {
			return s.translate(err, title, username)
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Media created", "id", created.ID)
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]entities.Media, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*entities.Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.NotFound("media %d not found", id)
	}
	return m, err
}

// Update overwrites title and username. The media itself does not count as
// a duplicate of its own pair.
func (s *Service) Update(ctx context.Context, id int64, title, username string) (*entities.Media, error) {
	var updated *entities.Media
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.ensurePairFree(ctx, title, username, id); err != nil {
			return err
		}

		m, err := s.repo.Update(ctx, id, title, username)
		if err != nil {
			return s.translate(err, title, username)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Media updated", "id", id)
	return updated, nil
}

// Delete removes a media that no publication references
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}

		referenced, err := s.refs.ExistsByMediaID(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperr.Forbidden("media %d is used by a publication", id)
		}

		err = s.repo.Delete(ctx, id)
		switch {
		case errors.Is(err, interfaces.ErrForeignKeyConstraint):
			return apperr.Forbidden("media %d is used by a publication", id).Wrap(err)
		case errors.Is(err, interfaces.ErrNotFound):
			return apperr.NotFound("media %d not found", id)
		}
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Media deleted", "id", id)
	return nil
}

func (s *Service) ensurePairFree(ctx context.Context, title, username string, selfID int64) error {
	existing, err := s.repo.FindByTitleAndUsername(ctx, title, username)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return apperr.Conflict("media with title %q and username %q already exists", title, username)
}

func (s *Service) translate(err error, title, username string) error {
	if errors.Is(err, interfaces.ErrUniqueConstraint) {
		return apperr.Conflict("media with title %q and username %q already exists", title, username).Wrap(err)
	}
	return err
}
