package scoring

import "errors"

var (
	// ErrDimensionMismatch is returned when image and text vectors disagree on
	// embedding dimensionality, or a raw buffer does not hold whole float32s.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyBatch is returned when a scorer is handed zero image vectors.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrNoImagesProcessed is returned by Counter.Report when nothing was recorded.
	ErrNoImagesProcessed = errors.New("no images processed")
)
