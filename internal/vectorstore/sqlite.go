package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// DBFileName is the index file the backend keeps inside its data directory
const DBFileName = "db.sqlite3"

// SQLiteStore reads an rclip-compatible image index
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	dims   int
}

// OpenSQLiteStore opens an existing index read-only. The backend owns the
// file, so a missing metadata table only leaves the dimensions unknown.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("index does not exist: %s", dbPath)
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index path: %w", err)
	}
	path := filepath.ToSlash(abs)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}
	store.loadDimensions()

	return store, nil
}

func (s *SQLiteStore) loadDimensions() {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'dimensions'`).Scan(&value)
	if err != nil {
		return
	}
	if dims, err := strconv.Atoi(value); err == nil {
		s.dims = dims
	}
}

// ImageVectorsByDir yields the live images below dir in index order
func (s *SQLiteStore) ImageVectorsByDir(ctx context.Context, dir string) iter.Seq2[ImageRecord, error] {
	prefix := dirPrefix(dir)
	return func(yield func(ImageRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT filepath, vector FROM images
			WHERE substr(filepath, 1, length(?)) = ? AND deleted IS NULL
			ORDER BY id
		`, prefix, prefix)
		if err != nil {
			yield(ImageRecord{}, fmt.Errorf("failed to query images: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec ImageRecord
			if err := rows.Scan(&rec.Filepath, &rec.Vector); err != nil {
				yield(ImageRecord{}, fmt.Errorf("failed to scan image row: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(ImageRecord{}, fmt.Errorf("failed to read images: %w", err))
		}
	}
}

// CountByDir returns the number of live images below dir
func (s *SQLiteStore) CountByDir(ctx context.Context, dir string) (int, error) {
	prefix := dirPrefix(dir)

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images
		WHERE substr(filepath, 1, length(?)) = ? AND deleted IS NULL
	`, prefix, prefix).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// Dimensions returns the vector size recorded in the index metadata
func (s *SQLiteStore) Dimensions() int {
	return s.dims
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
