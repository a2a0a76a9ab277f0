package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/medias"
	"github.com/howjmay/publicator/internal/posts"
	"github.com/howjmay/publicator/internal/publications"
)

// unreferenced answers every reference check with "no publication", so
// deletes reach the storage constraints.
type unreferenced struct{}

func (unreferenced) ExistsByMediaID(context.Context, int64) (bool, error) { return false, nil }
func (unreferenced) ExistsByPostID(context.Context, int64) (bool, error)  { return false, nil }

// RunServiceTests checks that storage-level constraint violations reach the
// resource services as the right error kinds.
func RunServiceTests(t *testing.T, factory DatabaseFactory) {
	t.Run("RestrictedDeletes", func(t *testing.T) {
		testRestrictedDeletes(t, factory(t))
	})
}

func testRestrictedDeletes(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	mediaSvc := medias.NewService(db, unreferenced{}, logger)
	postSvc := posts.NewService(db, unreferenced{}, logger)
	pubRepo := publications.NewRepository(db)

	m, err := mediaSvc.Create(ctx, "instagram", "@pigs")
	require.NoError(t, err)
	p, err := postSvc.Create(ctx, "Guinea pigs", "All about them", nil)
	require.NoError(t, err)
	pub, err := pubRepo.Create(ctx, m.ID, p.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = mediaSvc.Delete(ctx, m.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "err: %v", err)
	err = postSvc.Delete(ctx, p.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "err: %v", err)

	_, err = mediaSvc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	_, err = postSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, pubRepo.Delete(ctx, pub.ID))
	assert.NoError(t, mediaSvc.Delete(ctx, m.ID))
	assert.NoError(t, postSvc.Delete(ctx, p.ID))
}
