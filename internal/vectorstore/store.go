package vectorstore

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Store reads image embeddings produced by the indexing backend
type Store interface {
	// ImageVectorsByDir lazily yields every live image below dir
	ImageVectorsByDir(ctx context.Context, dir string) iter.Seq2[ImageRecord, error]

	// CountByDir returns how many live images ImageVectorsByDir would yield
	CountByDir(ctx context.Context, dir string) (int, error)

	// Dimensions returns the vector size recorded by the indexer, or 0 if unknown
	Dimensions() int

	// Close releases the underlying handle
	Close() error
}

// ImageRecord pairs an image path with its raw embedding buffer
// (little-endian float32 values, as written by the indexer)
type ImageRecord struct {
	Filepath string
	Vector   []byte
}

// dirPrefix returns the path prefix shared by every file below dir
func dirPrefix(dir string) string {
	dir = filepath.Clean(dir)
	if strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// likePattern turns dir into a LIKE pattern matching everything below it.
// Use with ESCAPE '\'.
func likePattern(dir string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(dirPrefix(dir)) + "%"
}
