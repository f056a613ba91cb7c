package embeddings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iishyfishyy/rtag/internal/scoring"
	_ "modernc.org/sqlite"
)

// CachedModel keeps text features on disk so a vocabulary is embedded once per model
type CachedModel struct {
	model  Model
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
	debug  bool
}

// NewCachedModel wraps model with a SQLite cache at dbPath
func NewCachedModel(model Model, dbPath string) (*CachedModel, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS text_features (
		model TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (model, text)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &CachedModel{model: model, db: db, dbPath: dbPath}, nil
}

// ComputeTextFeatures serves cached vectors and embeds only the missing texts
func (c *CachedModel) ComputeTextFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.model.Name()
	out := make([][]float32, len(texts))

	var missing []string
	missingIdx := make(map[string][]int)
	for i, text := range texts {
		vec, err := c.lookup(ctx, name, text)
		if err != nil {
			return nil, err
		}
		if vec != nil {
			out[i] = vec
			continue
		}
		if _, seen := missingIdx[text]; !seen {
			missing = append(missing, text)
		}
		missingIdx[text] = append(missingIdx[text], i)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Embeddings: text cache %d hits, %d misses (%s)\n",
			len(texts)-countIndices(missingIdx), len(missing), c.dbPath)
	}

	if len(missing) == 0 {
		return out, nil
	}

	features, err := c.model.ComputeTextFeatures(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(features) != len(missing) {
		return nil, fmt.Errorf("model returned %d vectors for %d texts", len(features), len(missing))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cache tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for i, text := range missing {
		for _, idx := range missingIdx[text] {
			out[idx] = features[i]
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO text_features (model, text, vector, created_at)
			VALUES (?, ?, ?, ?)
		`, name, text, scoring.EncodeVector(features[i]), now); err != nil {
			return nil, fmt.Errorf("failed to cache text features: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cache tx: %w", err)
	}

	return out, nil
}

func (c *CachedModel) lookup(ctx context.Context, name, text string) ([]float32, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT vector FROM text_features WHERE model = ? AND text = ?`, name, text).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read text cache: %w", err)
	}
	return scoring.DecodeVector(blob, 0)
}

// Clear drops every cached vector
func (c *CachedModel) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM text_features`)
	return err
}

// Name returns the wrapped model's name
func (c *CachedModel) Name() string {
	return c.model.Name()
}

// Close closes the cache database
func (c *CachedModel) Close() error {
	return c.db.Close()
}

func countIndices(m map[string][]int) int {
	n := 0
	for _, idx := range m {
		n += len(idx)
	}
	return n
}
