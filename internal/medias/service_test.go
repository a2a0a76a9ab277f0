package medias

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/backends/memory"
	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

type MockReferences struct {
	mock.Mock
}

func (m *MockReferences) ExistsByMediaID(ctx context.Context, mediaID int64) (bool, error) {
	args := m.Called(ctx, mediaID)
	return args.Bool(0), args.Error(1)
}

func newTestService(t *testing.T, refs ReferenceChecker) *Service {
	t.Helper()
	ctx := context.Background()

	db := memory.NewDatabase(nil)
	require.NoError(t, db.Connect(ctx))
	require.NoError(t, db.Migrate(ctx, []*interfaces.Schema{entities.MediaSchema, entities.PostSchema, entities.PublicationSchema}))
	t.Cleanup(func() { db.Disconnect(ctx) })

	return NewService(db, refs, zap.NewNop().Sugar())
}

func TestHealth(t *testing.T) {
	assert.Equal(t, "Medias online!", newTestService(t, &MockReferences{}).Health())
}

func TestCreateAndList(t *testing.T) {
	svc := newTestService(t, &MockReferences{})
	ctx := context.Background()

	first, err := svc.Create(ctx, "instagram", "alice")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "instagram", "bob")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestCreateRejectsDuplicatePair(t *testing.T) {
	svc := newTestService(t, &MockReferences{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "instagram", "alice")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "instagram", "alice")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Uniqueness is on the pair and is case sensitive
	_, err = svc.Create(ctx, "Instagram", "alice")
	assert.NoError(t, err)
	_, err = svc.Create(ctx, "telegram", "alice")
	assert.NoError(t, err)
}

func TestConcurrentCreatesOfSamePair(t *testing.T) {
	svc := newTestService(t, &MockReferences{})
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "wapp", "carol")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if apperr.KindOf(err) == apperr.KindConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 15, conflicts)
}

func TestUpdate(t *testing.T) {
	svc := newTestService(t, &MockReferences{})
	ctx := context.Background()

	m, err := svc.Create(ctx, "instagram", "alice")
	require.NoError(t, err)
	other, err := svc.Create(ctx, "telegram", "alice")
	require.NoError(t, err)

	// Keeping its own pair is not a conflict
	updated, err := svc.Update(ctx, m.ID, "instagram", "alice")
	require.NoError(t, err)
	assert.Equal(t, m.ID, updated.ID)

	updated, err = svc.Update(ctx, m.ID, "facebook", "alice")
	require.NoError(t, err)
	assert.Equal(t, "facebook", updated.Title)

	_, err = svc.Update(ctx, other.ID, "facebook", "alice")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Update(ctx, 999, "x", "y")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	refs := &MockReferences{}
	svc := newTestService(t, refs)
	ctx := context.Background()

	used, err := svc.Create(ctx, "instagram", "alice")
	require.NoError(t, err)
	free, err := svc.Create(ctx, "telegram", "alice")
	require.NoError(t, err)

	refs.On("ExistsByMediaID", mock.Anything, used.ID).Return(true, nil)
	refs.On("ExistsByMediaID", mock.Anything, free.ID).Return(false, nil)

	err = svc.Delete(ctx, used.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = svc.GetByID(ctx, used.ID)
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, free.ID))
	_, err = svc.GetByID(ctx, free.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(ctx, free.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	refs.AssertExpectations(t)
}

func TestDeletePropagatesReferenceErrors(t *testing.T) {
	refs := &MockReferences{}
	svc := newTestService(t, refs)
	ctx := context.Background()

	m, err := svc.Create(ctx, "instagram", "alice")
	require.NoError(t, err)

	boom := errors.New("boom")
	refs.On("ExistsByMediaID", mock.Anything, m.ID).Return(false, boom)

	err = svc.Delete(ctx, m.ID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(err))
}
