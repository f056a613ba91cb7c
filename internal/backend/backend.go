// Package backend wires the embedding model and the image index together.
// Feature extraction and indexing live in the CLIP service; this package only
// connects to it and opens the index it maintains.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/iishyfishyy/rtag/internal/embeddings"
	"github.com/iishyfishyy/rtag/internal/vectorstore"
)

// DataDirEnv overrides where the index lives
const DataDirEnv = "RCLIP_DATADIR"

// Options configures Initialize
type Options struct {
	Dir          string
	BatchSize    int
	Device       string
	ExcludeDirs  []string
	SkipIndexing bool

	// DataDir holds the SQLite index; defaults to DefaultDataDir()
	DataDir string
	// IndexDSN selects a Postgres index instead of the SQLite one
	IndexDSN string

	ServiceURL    string
	Model         string
	TextCachePath string

	Debug bool
}

// Backend bundles the model and the vector store for one run
type Backend struct {
	Model  embeddings.Model
	Store  vectorstore.Store
	client *embeddings.Client
	cache  *embeddings.CachedModel
}

// Initialize connects to the CLIP service, refreshes the index of opts.Dir
// unless SkipIndexing is set, and opens the index
func Initialize(ctx context.Context, opts Options) (*Backend, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("indexing batch size must be positive, got %d", opts.BatchSize)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}

	client, model, err := embeddings.NewModel(ctx, embeddings.Config{
		BaseURL:   opts.ServiceURL,
		Model:     opts.Model,
		Device:    opts.Device,
		CachePath: opts.TextCachePath,
		Debug:     opts.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to embedding backend: %w", err)
	}

	b := &Backend{Model: model, client: client}
	if cached, ok := model.(*embeddings.CachedModel); ok {
		b.cache = cached
	}

	if !opts.SkipIndexing {
		req := embeddings.IndexRequest{
			Directory:   opts.Dir,
			DataDir:     dataDir,
			BatchSize:   opts.BatchSize,
			Device:      opts.Device,
			ExcludeDirs: opts.ExcludeDirs,
		}
		// the service must refresh the index this run reads from
		if vectorstore.IsPostgresDSN(opts.IndexDSN) {
			req.IndexDSN = opts.IndexDSN
		}
		res, err := client.UpdateIndex(ctx, req)
		if err != nil {
			b.Close()
			return nil, err
		}
		if opts.Debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Backend: index updated (indexed=%d, removed=%d)\n", res.Indexed, res.Removed)
		}
	} else if opts.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Backend: skipping index update\n")
	}

	store, err := openStore(ctx, dataDir, opts.IndexDSN)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Store = store

	if opts.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Backend: model=%s, datadir=%s, dims=%d\n", model.Name(), dataDir, store.Dimensions())
	}

	return b, nil
}

func openStore(ctx context.Context, dataDir, dsn string) (vectorstore.Store, error) {
	if vectorstore.IsPostgresDSN(dsn) {
		return vectorstore.NewPostgresStore(ctx, dsn)
	}

	store, err := vectorstore.OpenSQLiteStore(filepath.Join(dataDir, vectorstore.DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open image index (run without --no-indexing first?): %w", err)
	}
	return store, nil
}

// Close releases the store and the text feature cache
func (b *Backend) Close() error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	if b.cache != nil {
		errs = append(errs, b.cache.Close())
	}
	return errors.Join(errs...)
}

// DefaultDataDir returns the index location, honouring RCLIP_DATADIR
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "rclip"), nil
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "rclip"), nil
		}
		return filepath.Join(home, "AppData", "Local", "rclip"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "rclip"), nil
		}
		return filepath.Join(home, ".local", "share", "rclip"), nil
	}
}
