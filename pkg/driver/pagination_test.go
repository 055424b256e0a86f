package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetPages builds a PageFunc serving records in fixed-size pages from a
// static dataset, counting fetches.
func offsetPages(records []driver.Record, pageSize int, fetches *int) driver.PageFunc {
	return func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		if fetches != nil {
			*fetches++
		}

		start := cursor.Offset
		if start >= len(records) {
			return nil, cursor, false, nil
		}

		end := start + pageSize
		if end > len(records) {
			end = len(records)
		}

		next := driver.Cursor{Offset: end}

		return records[start:end], next, end < len(records), nil
	}
}

func makeRecords(n int) []driver.Record {
	records := make([]driver.Record, n)
	for i := range records {
		records[i] = driver.Record{"id": string(rune('a' + i))}
	}

	return records
}

func TestNewBatchIterator_NilFetch(t *testing.T) {
	t.Parallel()

	_, err := driver.NewBatchIterator(nil, driver.Cursor{})
	require.ErrorIs(t, err, driver.ErrNilPageFunc)
}

func TestBatchIterator_Next(t *testing.T) {
	t.Parallel()

	records := makeRecords(5)

	it, err := driver.NewBatchIterator(offsetPages(records, 2, nil), driver.Cursor{})
	require.NoError(t, err)

	var batches [][]driver.Record

	for it.HasNext() {
		batch, err := it.Next(context.Background())
		if errors.Is(err, driver.ErrNoMoreBatches) {
			break
		}

		require.NoError(t, err)
		batches = append(batches, batch)
	}

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)

	// Exhausted iterator keeps reporting ErrNoMoreBatches.
	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, driver.ErrNoMoreBatches)
}

func TestBatchIterator_EmptyResultSet(t *testing.T) {
	t.Parallel()

	it, err := driver.NewBatchIterator(offsetPages(nil, 10, nil), driver.Cursor{})
	require.NoError(t, err)

	assert.True(t, it.HasNext())

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, driver.ErrNoMoreBatches)
	assert.False(t, it.HasNext())
}

func TestBatchIterator_Lazy(t *testing.T) {
	t.Parallel()

	fetches := 0

	it, err := driver.NewBatchIterator(offsetPages(makeRecords(10), 2, &fetches), driver.Cursor{})
	require.NoError(t, err)

	assert.Equal(t, 0, fetches)

	_, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
}

func TestBatchIterator_Reset(t *testing.T) {
	t.Parallel()

	records := makeRecords(4)

	it, err := driver.NewBatchIterator(offsetPages(records, 2, nil), driver.Cursor{})
	require.NoError(t, err)

	first, err := it.All(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 4)

	it.Reset()

	second, err := it.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBatchIterator_All(t *testing.T) {
	t.Parallel()

	records := makeRecords(7)

	it, err := driver.NewBatchIterator(offsetPages(records, 3, nil), driver.Cursor{})
	require.NoError(t, err)

	all, err := it.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, all)
}

func TestBatchIterator_ForEach(t *testing.T) {
	t.Parallel()

	t.Run("visits every batch", func(t *testing.T) {
		t.Parallel()

		it, err := driver.NewBatchIterator(offsetPages(makeRecords(5), 2, nil), driver.Cursor{})
		require.NoError(t, err)

		total := 0
		err = it.ForEach(context.Background(), func(batch []driver.Record) error {
			total += len(batch)

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
	})

	t.Run("stops on callback error", func(t *testing.T) {
		t.Parallel()

		it, err := driver.NewBatchIterator(offsetPages(makeRecords(6), 2, nil), driver.Cursor{})
		require.NoError(t, err)

		errStop := errors.New("stop")
		calls := 0
		err = it.ForEach(context.Background(), func(batch []driver.Record) error {
			calls++

			return errStop
		})
		require.ErrorIs(t, err, errStop)
		assert.Equal(t, 1, calls)
	})
}

func TestBatchIterator_Stream(t *testing.T) {
	t.Parallel()

	it, err := driver.NewBatchIterator(offsetPages(makeRecords(5), 2, nil), driver.Cursor{})
	require.NoError(t, err)

	batches, errs := it.Stream(context.Background())

	total := 0
	for batch := range batches {
		total += len(batch)
	}

	require.NoError(t, <-errs)
	assert.Equal(t, 5, total)
}

func TestBatchIterator_FetchError(t *testing.T) {
	t.Parallel()

	errFetch := errors.New("boom")
	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		return nil, cursor, false, errFetch
	}

	it, err := driver.NewBatchIterator(fetch, driver.Cursor{})
	require.NoError(t, err)

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, errFetch)
}

func TestBatchIterator_TokenCursor(t *testing.T) {
	t.Parallel()

	// Token-based paging: each page names the next with an opaque token.
	pages := map[string][]driver.Record{
		"":   {{"id": "1"}, {"id": "2"}},
		"t1": {{"id": "3"}},
	}
	next := map[string]string{"": "t1", "t1": ""}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		batch := pages[cursor.Token]
		token := next[cursor.Token]

		return batch, driver.Cursor{Token: token}, token != "", nil
	}

	it, err := driver.NewBatchIterator(fetch, driver.Cursor{})
	require.NoError(t, err)

	all, err := it.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
