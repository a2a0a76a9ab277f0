package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howjmay/publicator/internal/db/dbtest"
	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	db := NewDatabase(nil)
	require.NoError(t, db.Connect(ctx))
	require.NoError(t, db.Migrate(ctx, []*interfaces.Schema{
		entities.MediaSchema,
		entities.PostSchema,
		entities.PublicationSchema,
	}))
	t.Cleanup(func() { db.Disconnect(ctx) })
	return db
}

func testFactory(t *testing.T) interfaces.Database {
	return newTestDatabase(t)
}

func TestMemoryDatabase(t *testing.T) {
	dbtest.RunConformanceTests(t, testFactory)
}

func TestMemoryServices(t *testing.T) {
	dbtest.RunServiceTests(t, testFactory)
}

func TestTablesAndClear(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	assert.Equal(t, []string{"medias", "posts", "publications"}, db.Tables())

	repo := db.Repository(entities.MediaSchema)
	_, err := repo.Create(ctx, map[string]interface{}{"title": "a", "username": "b"})
	require.NoError(t, err)

	db.Clear()

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Sequences restart after Clear
	rec, err := repo.Create(ctx, map[string]interface{}{"title": "a", "username": "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])
}

func TestIDsAreNotReused(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := db.Repository(entities.PostSchema)

	first, err := repo.Create(ctx, map[string]interface{}{"title": "t", "text": "x"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, interfaces.ID(first["id"].(int64))))

	second, err := repo.Create(ctx, map[string]interface{}{"title": "t", "text": "x"})
	require.NoError(t, err)
	assert.Greater(t, second["id"].(int64), first["id"].(int64))
}

func TestRecordsAreCopies(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	rec, err := repo.Create(ctx, map[string]interface{}{"title": "a", "username": "b"})
	require.NoError(t, err)
	rec["title"] = "changed"

	got, err := repo.GetByID(ctx, interfaces.ID(rec["id"].(int64)))
	require.NoError(t, err)
	assert.Equal(t, "a", got["title"])
}

func TestConcurrentCheckThenCreate(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
				n, err := repo.Count(ctx, &interfaces.Query{
					Where: interfaces.Where(interfaces.Eq("title", "a"), interfaces.Eq("username", "b")),
				})
				if err != nil || n > 0 {
					return err
				}
				if _, err := repo.Create(ctx, map[string]interface{}{"title": "a", "username": "b"}); err != nil {
					return err
				}
				mu.Lock()
				created++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCascadeDelete(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	parent := &interfaces.Schema{
		TableName: "parents",
		Fields: map[string]interfaces.FieldSchema{
			"id":   {Type: interfaces.TypeInt64, PrimaryKey: true},
			"name": {Type: interfaces.TypeString},
		},
	}
	child := &interfaces.Schema{
		TableName: "children",
		Fields: map[string]interfaces.FieldSchema{
			"id": {Type: interfaces.TypeInt64, PrimaryKey: true},
			"parent_id": {
				Type:       interfaces.TypeInt64,
				ForeignKey: &interfaces.ForeignKey{Table: "parents", Column: "id", OnDelete: "CASCADE"},
			},
		},
	}
	require.NoError(t, db.Migrate(ctx, []*interfaces.Schema{parent, child}))

	parents := db.Repository(parent)
	children := db.Repository(child)

	p, err := parents.Create(ctx, map[string]interface{}{"name": "p"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := children.Create(ctx, map[string]interface{}{"parent_id": p["id"]})
		require.NoError(t, err)
	}

	require.NoError(t, parents.Delete(ctx, interfaces.ID(p["id"].(int64))))

	n, err := children.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReadsOutsideTransactionAreUncommitted(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)
	rollback := errors.New("rollback")

	var id interfaces.ID
	err := db.Transaction(ctx, func(txCtx context.Context, _ interfaces.Transaction) error {
		rec, err := repo.Create(txCtx, map[string]interface{}{"title": "a", "username": "b"})
		require.NoError(t, err)
		id = interfaces.ID(rec["id"].(int64))

		// A reader outside the transaction already sees the row
		_, err = repo.GetByID(ctx, id)
		assert.NoError(t, err)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
