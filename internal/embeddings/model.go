package embeddings

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Model turns text into vectors living in the same space as the indexed images
type Model interface {
	// ComputeTextFeatures returns one vector per text, in input order
	ComputeTextFeatures(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the name/model of this backend
	Name() string
}

// Config holds configuration for creating a model client
type Config struct {
	// BaseURL of the CLIP service
	BaseURL string

	// Model served by the CLIP service
	Model string

	// Device the service should run inference on (cpu, mps, cuda)
	Device string

	// CachePath enables the on-disk text feature cache when non-empty
	CachePath string

	Debug bool
}

// NewModel creates a service client, wrapped in a feature cache when configured
func NewModel(ctx context.Context, cfg Config) (*Client, Model, error) {
	client, err := NewClient(ctx, cfg.BaseURL, cfg.Model, cfg.Device)
	if err != nil {
		return nil, nil, err
	}
	client.SetDebug(cfg.Debug)

	if cfg.CachePath == "" {
		return client, client, nil
	}

	cached, err := NewCachedModel(client, cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	cached.debug = cfg.Debug
	return client, cached, nil
}

// NormalizeText applies NFKC normalisation and strips control characters
// before a label is sent to the text encoder
func NormalizeText(text string) string {
	normed := strings.TrimSpace(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
