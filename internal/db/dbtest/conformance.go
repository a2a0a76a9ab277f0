// Package dbtest provides conformance tests for interfaces.Database
// implementations
package dbtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howjmay/publicator/internal/db/entities"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// DatabaseFactory returns a connected, migrated and empty database. The
// factory is responsible for cleaning it up.
type DatabaseFactory func(t *testing.T) interfaces.Database

// RunConformanceTests runs all conformance tests against a Database implementation
func RunConformanceTests(t *testing.T, factory DatabaseFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, db interfaces.Database)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"Update", testUpdate},
		{"Delete", testDelete},
		{"MissingRecords", testMissingRecords},
		{"FindMany", testFindMany},
		{"NullableFields", testNullableFields},
		{"TimeFilters", testTimeFilters},
		{"UniqueIndex", testUniqueIndex},
		{"ForeignKeys", testForeignKeys},
		{"InvalidData", testInvalidData},
		{"TransactionCommit", testTransactionCommit},
		{"TransactionRollback", testTransactionRollback},
		{"NestedTransaction", testNestedTransaction},
		{"CompletedTransaction", testCompletedTransaction},
		{"Seed", testSeed},
		{"Health", testHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.test(t, factory(t))
		})
	}
}

func media(title, username string) map[string]interface{} {
	return map[string]interface{}{"title": title, "username": username}
}

func post(title, text string, image interface{}) map[string]interface{} {
	data := map[string]interface{}{"title": title, "text": text}
	if image != nil {
		data["image"] = image
	}
	return data
}

func publication(mediaID, postID interface{}, date time.Time) map[string]interface{} {
	return map[string]interface{}{"media_id": mediaID, "post_id": postID, "date": date}
}

func mustCreate(t *testing.T, repo interfaces.Repository, data map[string]interface{}) map[string]interface{} {
	t.Helper()
	rec, err := repo.Create(context.Background(), data)
	require.NoError(t, err)
	return rec
}

func testCreateAndGet(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	first := mustCreate(t, repo, media("instagram", "@pigs"))
	second := mustCreate(t, repo, media("telegram", "@pigs"))

	firstID, ok := first["id"].(int64)
	require.True(t, ok, "id should be an int64, got %T", first["id"])
	assert.Positive(t, firstID)
	assert.Greater(t, second["id"].(int64), firstID)
	assert.IsType(t, time.Time{}, first["created_at"])

	got, err := repo.GetByID(ctx, interfaces.ID(firstID))
	require.NoError(t, err)
	assert.Equal(t, "instagram", got["title"])
	assert.Equal(t, "@pigs", got["username"])

	m, err := entities.MediaFromRecord(got)
	require.NoError(t, err)
	assert.Equal(t, firstID, m.ID)
}

func testUpdate(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	created := mustCreate(t, repo, media("instagram", "@pigs"))
	id := interfaces.ID(created["id"].(int64))

	updated, err := repo.Update(ctx, id, map[string]interface{}{"username": "@guineapigs"})
	require.NoError(t, err)
	assert.Equal(t, "instagram", updated["title"])
	assert.Equal(t, "@guineapigs", updated["username"])
	assert.Equal(t, created["id"], updated["id"])

	_, err = repo.Update(ctx, id, map[string]interface{}{"id": int64(99)})
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
}

func testDelete(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.PostSchema)

	created := mustCreate(t, repo, post("t", "x", nil))
	id := interfaces.ID(created["id"].(int64))

	require.NoError(t, repo.Delete(ctx, id))

	_, err := repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testMissingRecords(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	_, err := repo.GetByID(ctx, 4242)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = repo.Update(ctx, 4242, media("a", "b"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 4242), interfaces.ErrNotFound)

	_, err = repo.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("title", "nope"))})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func testFindMany(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	for _, title := range []string{"b", "a", "d", "c"} {
		mustCreate(t, repo, media(title, "@pigs"))
	}
	mustCreate(t, repo, media("a", "@cats"))

	page, err := repo.FindMany(ctx, nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 5)
	assert.Equal(t, int64(5), page.Total)
	for i := 1; i < len(page.Data); i++ {
		assert.Less(t, page.Data[i-1]["id"].(int64), page.Data[i]["id"].(int64), "default order is by id")
	}

	limit, offset := 2, 1
	page, err = repo.FindMany(ctx, &interfaces.Query{
		Where:   interfaces.Where(interfaces.Eq("username", "@pigs")),
		OrderBy: []interfaces.OrderBy{{Field: "title", Direction: "desc"}},
		Limit:   &limit,
		Offset:  &offset,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "c", page.Data[0]["title"])
	assert.Equal(t, "b", page.Data[1]["title"])

	page, err = repo.FindMany(ctx, &interfaces.Query{Offset: &[]int{4}[0]})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	page, err = repo.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{OR: []*interfaces.Filters{
			interfaces.Where(interfaces.Eq("title", "a")),
			interfaces.Where(interfaces.Eq("title", "d")),
		}},
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)

	n, err := repo.Count(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Filter{
			Field:    "title",
			Operator: &interfaces.FilterOperator{In: []interface{}{"a", "b"}},
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	one, err := repo.FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Eq("title", "a"), interfaces.Eq("username", "@cats")),
	})
	require.NoError(t, err)
	assert.Equal(t, "@cats", one["username"])

	_, err = repo.FindMany(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("nope", 1))})
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)

	_, err = repo.FindMany(ctx, &interfaces.Query{OrderBy: []interfaces.OrderBy{{Field: "nope"}}})
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
}

func testNullableFields(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.PostSchema)

	plain := mustCreate(t, repo, post("t", "x", nil))
	withImage := mustCreate(t, repo, post("t", "x", "https://picsum.photos/200"))

	assert.Nil(t, plain["image"])
	assert.Equal(t, "https://picsum.photos/200", withImage["image"])

	n, err := repo.Count(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("image", nil))})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Clearing the image
	cleared, err := repo.Update(ctx, interfaces.ID(withImage["id"].(int64)), map[string]interface{}{"image": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared["image"])

	p, err := entities.PostFromRecord(cleared)
	require.NoError(t, err)
	assert.Nil(t, p.Image)

	_, err = repo.Create(ctx, map[string]interface{}{"title": nil, "text": "x"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
}

func testTimeFilters(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	m := mustCreate(t, db.Repository(entities.MediaSchema), media("a", "b"))
	p := mustCreate(t, db.Repository(entities.PostSchema), post("t", "x", nil))
	repo := db.Repository(entities.PublicationSchema)

	base := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		mustCreate(t, repo, publication(m["id"], p["id"], base.Add(time.Duration(i)*time.Hour)))
	}

	count := func(op *interfaces.FilterOperator) int64 {
		n, err := repo.Count(ctx, &interfaces.Query{
			Where: interfaces.Where(interfaces.Filter{Field: "date", Operator: op}),
		})
		require.NoError(t, err)
		return n
	}

	pivot := base.Add(time.Hour)
	assert.Equal(t, int64(2), count(&interfaces.FilterOperator{Lte: pivot}))
	assert.Equal(t, int64(2), count(&interfaces.FilterOperator{Gt: pivot}))
	assert.Equal(t, int64(1), count(&interfaces.FilterOperator{Gt: pivot, Lte: base.Add(2 * time.Hour)}))
	assert.Equal(t, int64(1), count(&interfaces.FilterOperator{Lt: pivot}))
	assert.Equal(t, int64(3), count(&interfaces.FilterOperator{Gte: pivot}))

	// Times in other zones compare by instant
	local := pivot.In(time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, int64(2), count(&interfaces.FilterOperator{Lte: local}))

	page, err := repo.FindMany(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Eq("date", pivot)),
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	pub, err := entities.PublicationFromRecord(page.Data[0])
	require.NoError(t, err)
	assert.True(t, pub.Date.Equal(pivot), "got %s", pub.Date)
	assert.Equal(t, time.UTC, pub.Date.Location())
}

func testUniqueIndex(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	mustCreate(t, repo, media("instagram", "@pigs"))
	other := mustCreate(t, repo, media("instagram", "@cats"))

	_, err := repo.Create(ctx, media("instagram", "@pigs"))
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	// Case matters
	mustCreate(t, repo, media("Instagram", "@pigs"))

	_, err = repo.Update(ctx, interfaces.ID(other["id"].(int64)), map[string]interface{}{"username": "@pigs"})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	// Re-saving a row's own pair is fine
	_, err = repo.Update(ctx, interfaces.ID(other["id"].(int64)), media("instagram", "@cats"))
	assert.NoError(t, err)
}

func testForeignKeys(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	medias := db.Repository(entities.MediaSchema)
	posts := db.Repository(entities.PostSchema)
	pubs := db.Repository(entities.PublicationSchema)

	m := mustCreate(t, medias, media("a", "b"))
	p := mustCreate(t, posts, post("t", "x", nil))
	date := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := pubs.Create(ctx, publication(int64(4242), p["id"], date))
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	_, err = pubs.Create(ctx, publication(m["id"], int64(4242), date))
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	pub := mustCreate(t, pubs, publication(m["id"], p["id"], date))

	_, err = pubs.Update(ctx, interfaces.ID(pub["id"].(int64)), map[string]interface{}{"post_id": int64(4242)})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	err = medias.Delete(ctx, interfaces.ID(m["id"].(int64)))
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
	err = posts.Delete(ctx, interfaces.ID(p["id"].(int64)))
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	// Still there after the refused deletes
	_, err = medias.GetByID(ctx, interfaces.ID(m["id"].(int64)))
	require.NoError(t, err)

	require.NoError(t, pubs.Delete(ctx, interfaces.ID(pub["id"].(int64))))
	assert.NoError(t, medias.Delete(ctx, interfaces.ID(m["id"].(int64))))
	assert.NoError(t, posts.Delete(ctx, interfaces.ID(p["id"].(int64))))
}

func testInvalidData(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"missing field", map[string]interface{}{"title": "a"}},
		{"unknown field", map[string]interface{}{"title": "a", "username": "b", "extra": 1}},
		{"wrong type", map[string]interface{}{"title": 1, "username": "b"}},
		{"explicit id", map[string]interface{}{"id": int64(1), "title": "a", "username": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.data)
			assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
		})
	}
}

func testTransactionCommit(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		_, err := repo.Create(ctx, media("a", "b"))
		if err != nil {
			return err
		}
		_, err = repo.Create(ctx, media("c", "d"))
		return err
	})
	require.NoError(t, err)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testTransactionRollback(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)
	mustCreate(t, repo, media("kept", "b"))

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if _, err := repo.Create(ctx, media("a", "b")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// A failing statement rolls back the writes before it
	err = db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if _, err := repo.Create(ctx, media("c", "d")); err != nil {
			return err
		}
		_, err := repo.Create(ctx, media("kept", "b"))
		return err
	})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	page, err := repo.FindMany(ctx, nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "kept", page.Data[0]["title"])
}

func testNestedTransaction(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.MediaSchema)

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(ctx context.Context, outer interfaces.Transaction) error {
		if _, err := repo.Create(ctx, media("a", "b")); err != nil {
			return err
		}
		err := db.Transaction(ctx, func(ctx context.Context, inner interfaces.Transaction) error {
			assert.Same(t, outer, inner)
			_, err := repo.Create(ctx, media("c", "d"))
			return err
		})
		if err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "inner writes roll back with the outer transaction")
}

func testCompletedTransaction(t *testing.T, db interfaces.Database) {
	ctx := context.Background()

	var txCtx context.Context
	var tx interfaces.Transaction
	err := db.Transaction(ctx, func(ctx context.Context, inner interfaces.Transaction) error {
		txCtx, tx = ctx, inner
		return nil
	})
	require.NoError(t, err)
	assert.True(t, tx.IsCompleted())

	assert.ErrorIs(t, tx.Commit(ctx), interfaces.ErrTransactionCompleted)
	assert.ErrorIs(t, tx.Rollback(ctx), interfaces.ErrTransactionCompleted)

	err = db.Transaction(txCtx, func(ctx context.Context, _ interfaces.Transaction) error {
		return nil
	})
	assert.ErrorIs(t, err, interfaces.ErrTransactionCompleted)
}

func testSeed(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	data := []map[string]interface{}{media("a", "b"), media("c", "d")}

	require.NoError(t, db.Seed(ctx, entities.MediaSchema, data))
	require.NoError(t, db.Seed(ctx, entities.MediaSchema, data))

	n, err := db.Repository(entities.MediaSchema).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "seeding a populated table is a no-op")
}

func testHealth(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	assert.True(t, db.IsHealthy(ctx))

	require.NoError(t, db.Disconnect(ctx))
	assert.False(t, db.IsHealthy(ctx))

	_, err := db.Repository(entities.MediaSchema).GetByID(ctx, 1)
	assert.ErrorIs(t, err, interfaces.ErrDatabaseNotConnected)
}
