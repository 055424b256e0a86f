package driver

import (
	"context"
	"errors"
	"fmt"
)

// Cursor carries pagination state between batch fetches. Exactly one of the
// fields is meaningful per vendor: Offset for offset/limit APIs, Page for
// page-number APIs, Token for opaque continuation tokens.
type Cursor struct {
	Offset int
	Page   int
	Token  string
}

// PageFunc fetches one batch of records at the given cursor. It returns the
// batch, the cursor for the next batch, and whether more batches remain.
type PageFunc func(ctx context.Context, cursor Cursor) ([]Record, Cursor, bool, error)

// BatchIterator walks a paginated result set one batch at a time. It is
// lazy: nothing is fetched until Next is called, and consumed batches are
// not retained. Iteration is finite and restartable via Reset.
//
// A BatchIterator is not safe for concurrent use.
type BatchIterator struct {
	fetch   PageFunc
	start   Cursor
	cursor  Cursor
	hasMore bool
	started bool
}

// NewBatchIterator creates an iterator starting at the given cursor.
func NewBatchIterator(fetch PageFunc, start Cursor) (*BatchIterator, error) {
	if fetch == nil {
		return nil, ErrNilPageFunc
	}

	return &BatchIterator{
		fetch:  fetch,
		start:  start,
		cursor: start,
	}, nil
}

// HasNext reports whether another batch may be available. It is optimistic
// before the first fetch; the final Next call may still return an empty
// batch with ErrNoMoreBatches.
func (it *BatchIterator) HasNext() bool {
	return !it.started || it.hasMore
}

// Next fetches the next batch. It returns ErrNoMoreBatches once the result
// set is exhausted.
func (it *BatchIterator) Next(ctx context.Context) ([]Record, error) {
	if it.started && !it.hasMore {
		return nil, ErrNoMoreBatches
	}

	batch, next, more, err := it.fetch(ctx, it.cursor)
	if err != nil {
		return nil, fmt.Errorf("fetching batch: %w", err)
	}

	it.started = true
	it.cursor = next
	it.hasMore = more

	if len(batch) == 0 && !more {
		return nil, ErrNoMoreBatches
	}

	return batch, nil
}

// Reset rewinds the iterator to its starting cursor so the result set can
// be walked again.
func (it *BatchIterator) Reset() {
	it.cursor = it.start
	it.started = false
	it.hasMore = false
}

// All drains the iterator and returns every remaining record. Prefer Next
// or ForEach for large result sets.
func (it *BatchIterator) All(ctx context.Context) ([]Record, error) {
	var all []Record

	for it.HasNext() {
		batch, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreBatches) {
				break
			}

			return nil, err
		}

		all = append(all, batch...)
	}

	return all, nil
}

// ForEach calls fn for each remaining batch. Iteration stops on the first
// error from fn or from the fetch.
func (it *BatchIterator) ForEach(ctx context.Context, fn func(batch []Record) error) error {
	for it.HasNext() {
		batch, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreBatches) {
				return nil
			}

			return err
		}

		if err := fn(batch); err != nil {
			return err
		}
	}

	return nil
}

// Stream sends batches on the returned channel until the result set is
// exhausted, an error occurs, or ctx is cancelled. The error channel
// receives at most one error. Both channels are closed when done.
func (it *BatchIterator) Stream(ctx context.Context) (<-chan []Record, <-chan error) {
	batches := make(chan []Record)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		for it.HasNext() {
			batch, err := it.Next(ctx)
			if err != nil {
				if !errors.Is(err, ErrNoMoreBatches) {
					errs <- err
				}

				return
			}

			select {
			case batches <- batch:
			case <-ctx.Done():
				errs <- ctx.Err()

				return
			}
		}
	}()

	return batches, errs
}
