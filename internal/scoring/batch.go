package scoring

import (
	"fmt"
	"iter"
)

// Batch accumulates items up to a fixed size before they are scored together
type Batch[T any] struct {
	items []T
	size  int
}

// NewBatch creates a batch holding at most size items
func NewBatch[T any](size int) (*Batch[T], error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	return &Batch[T]{items: make([]T, 0, size), size: size}, nil
}

// Add appends an item and reports whether the batch is now full.
// Adding to a full batch is a programming error and panics.
func (b *Batch[T]) Add(item T) bool {
	if len(b.items) >= b.size {
		panic("scoring: add to full batch")
	}
	b.items = append(b.items, item)
	return b.Full()
}

// Full reports whether the batch reached its configured size
func (b *Batch[T]) Full() bool {
	return len(b.items) >= b.size
}

// Len returns the number of pending items
func (b *Batch[T]) Len() int {
	return len(b.items)
}

// Flush returns the pending items and clears the batch
func (b *Batch[T]) Flush() []T {
	out := b.items
	b.items = make([]T, 0, b.size)
	return out
}

// Batches drains seq into batches of at most size items and calls fn for each.
// The trailing partial batch is always flushed. Iteration stops at the first
// error from seq or fn.
func Batches[T any](seq iter.Seq2[T, error], size int, fn func([]T) error) error {
	batch, err := NewBatch[T](size)
	if err != nil {
		return err
	}

	for item, err := range seq {
		if err != nil {
			return err
		}
		if !batch.Add(item) {
			continue
		}
		if err := fn(batch.Flush()); err != nil {
			return err
		}
	}

	if batch.Len() > 0 {
		return fn(batch.Flush())
	}
	return nil
}
