package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresStore reads an image index kept in Postgres, for backends that
// share one index between machines
type PostgresStore struct {
	db   *sql.DB
	dims int
}

// IsPostgresDSN reports whether dsn points at a Postgres server
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewPostgresStore connects to dsn and ensures the schema exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM index_metadata WHERE key = 'dimensions'`).Scan(&value)
	if err == nil {
		store.dims, _ = strconv.Atoi(value)
	}

	return store, nil
}

func (p *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id BIGSERIAL PRIMARY KEY,
		deleted BOOLEAN,
		filepath TEXT NOT NULL UNIQUE,
		vector BYTEA NOT NULL
	);

	CREATE TABLE IF NOT EXISTS index_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// ImageVectorsByDir yields the live images below dir in index order
func (p *PostgresStore) ImageVectorsByDir(ctx context.Context, dir string) iter.Seq2[ImageRecord, error] {
	return func(yield func(ImageRecord, error) bool) {
		rows, err := p.db.QueryContext(ctx, `
			SELECT filepath, vector FROM images
			WHERE filepath LIKE $1 ESCAPE '\' AND deleted IS NULL
			ORDER BY id
		`, likePattern(dir))
		if err != nil {
			yield(ImageRecord{}, fmt.Errorf("query images: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec ImageRecord
			if err := rows.Scan(&rec.Filepath, &rec.Vector); err != nil {
				yield(ImageRecord{}, fmt.Errorf("scan image: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(ImageRecord{}, fmt.Errorf("read images: %w", err))
		}
	}
}

// CountByDir returns the number of live images below dir
func (p *PostgresStore) CountByDir(ctx context.Context, dir string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images WHERE filepath LIKE $1 ESCAPE '\' AND deleted IS NULL
	`, likePattern(dir)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

// Dimensions returns the vector size recorded in the index metadata
func (p *PostgresStore) Dimensions() int {
	return p.dims
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
