// Package posts manages the content items that get scheduled on medias.
package posts

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// ReferenceChecker reports whether any publication points at a post
type ReferenceChecker interface {
	ExistsByPostID(ctx context.Context, postID int64) (bool, error)
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
	return "Posts online!"
}

func (s *Service) Create(ctx context.Context, title, text string, image *string) (*entities.Post, error) {
	p, err := s.repo.Create(ctx, title, text, image)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Post created", "id", p.ID)
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]entities.Post, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*entities.Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.NotFound("post %d not found", id)
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, id int64, title, text string, image *string) (*entities.Post, error) {
	p, err := s.repo.Update(ctx, id, title, text, image)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.NotFound("post %d not found", id)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Post updated", "id", id)
	return p, nil
}

// Delete removes a post that no publication references
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}

		referenced, err := s.refs.ExistsByPostID(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperr.Forbidden("post %d is used by a publication", id)
		}

		err = s.repo.Delete(ctx, id)
		switch {
		case errors.Is(err, interfaces.ErrForeignKeyConstraint):
			return apperr.Forbidden("post %d is used by a publication", id).Wrap(err)
		case errors.Is(err, interfaces.ErrNotFound):
			return apperr.NotFound("post %d not found", id)
		}
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Post deleted", "id", id)
	return nil
}
