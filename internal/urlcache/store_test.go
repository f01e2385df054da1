// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package urlcache

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.Local)

func testStore(t *testing.T) *Store {
	t.Helper()
	old := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFunc = old })

	store, err := NewStore(filepath.Join(t.TempDir(), "cache", "url_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func daysAgo(n int) string {
	return fixedNow.AddDate(0, 0, -n).Format(DateLayout)
}

func TestNewStore_CreatesParentDirectory(t *testing.T) {
	store := testStore(t)
	assert.FileExists(t, store.Path())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewStore_ReopenKeepsRows(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.InsertIfNew(ctx, "https://example.com/a", daysAgo(0))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(store.Path())
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewStore_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE articles (id INTEGER PRIMARY KEY, url TEXT, seen TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewStore(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestInsertIfNew_SameDayIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today := store.Today()

	for i := 0; i < 3; i++ {
		ok, err := store.InsertIfNew(ctx, "https://example.com/a", today)
		require.NoError(t, err)
		assert.True(t, ok, "insert %d", i)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertIfNew_CrossDayRepeat(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	ok, err := store.InsertIfNew(ctx, "https://example.com/a", daysAgo(1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.InsertIfNew(ctx, "https://example.com/a", store.Today())
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := store.Exists(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsertIfNew_NeverUpdatesDate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.InsertIfNew(ctx, "https://example.com/a", store.Today())
	require.NoError(t, err)
	_, err = store.InsertIfNew(ctx, "https://example.com/a", daysAgo(3))
	require.NoError(t, err)

	exists, err := store.Exists(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, exists, "first insertion date must be kept")
}

func TestInsertIfNew_InvalidDate(t *testing.T) {
	store := testStore(t)
	_, err := store.InsertIfNew(context.Background(), "https://example.com/a", "14/03/2025")
	assert.Error(t, err)
}

func TestInsertIfNew_Concurrent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today := store.Today()

	var wg sync.WaitGroup
	results := make([]bool, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.InsertIfNew(ctx, "https://example.com/race", today)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExists(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "https://example.com/missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.InsertIfNew(ctx, "https://example.com/today", store.Today())
	require.NoError(t, err)
	exists, err = store.Exists(ctx, "https://example.com/today")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.InsertIfNew(ctx, "https://example.com/old", daysAgo(2))
	require.NoError(t, err)
	exists, err = store.Exists(ctx, "https://example.com/old")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsertManyIfNew_IntraBatchAndCrossDay(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today, yday := store.Today(), daysAgo(1)

	got, err := store.InsertManyIfNew(ctx, []Entry{
		{URL: "a1", Date: yday},
		{URL: "a2", Date: today},
		{URL: "a1", Date: today},
		{URL: "a3", Date: today},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, true}, got)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err = store.InsertManyIfNew(ctx, []Entry{
		{URL: "a4", Date: today},
		{URL: "a1", Date: yday},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestInsertManyIfNew_RepeatWithinBatch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today, yday := store.Today(), daysAgo(1)

	got, err := store.InsertManyIfNew(ctx, []Entry{
		{URL: "a2", Date: today},
		{URL: "a2", Date: today},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)

	got, err = store.InsertManyIfNew(ctx, []Entry{
		{URL: "a4", Date: today},
		{URL: "a1", Date: yday},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, got)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInsertManyIfNew_SameDayRerun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today := store.Today()
	batch := []Entry{{URL: "a", Date: today}, {URL: "b", Date: today}}

	first, err := store.InsertManyIfNew(ctx, batch)
	require.NoError(t, err)
	second, err := store.InsertManyIfNew(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInsertManyIfNew_Empty(t *testing.T) {
	store := testStore(t)
	got, err := store.InsertManyIfNew(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertManyIfNew_LargeBatch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	today := store.Today()

	entries := make([]Entry, 3*maxRowsPerStatement+7)
	for i := range entries {
		entries[i] = Entry{URL: fmt.Sprintf("https://example.com/%d", i), Date: today}
	}
	got, err := store.InsertManyIfNew(ctx, entries)
	require.NoError(t, err)
	for i, ok := range got {
		assert.True(t, ok, "entry %d", i)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(entries), n)
}

func TestInsertManyIfNew_InvalidDateWritesNothing(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.InsertManyIfNew(ctx, []Entry{
		{URL: "a", Date: store.Today()},
		{URL: "b", Date: "yesterday"},
	})
	require.Error(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPurgeOlderThan(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i, age := range []int{1, 5, 10, 15} {
		_, err := store.InsertIfNew(ctx, fmt.Sprintf("https://example.com/%d", i), daysAgo(age))
		require.NoError(t, err)
	}

	removed, err := store.PurgeOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, err = store.PurgeOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestPurgeOlderThan_ZeroKeepsToday(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.InsertIfNew(ctx, "https://example.com/today", store.Today())
	require.NoError(t, err)
	_, err = store.InsertIfNew(ctx, "https://example.com/old", daysAgo(1))
	require.NoError(t, err)

	removed, err := store.PurgeOlderThan(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestPurgeOlderThan_Negative(t *testing.T) {
	store := testStore(t)
	_, err := store.PurgeOlderThan(context.Background(), -1)
	assert.Error(t, err)
}

func TestRemoveAll(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.InsertIfNew(ctx, "https://example.com/a", store.Today())
	require.NoError(t, err)
	require.NoError(t, store.RemoveAll(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
