package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where a locally running CLIP service listens
	DefaultBaseURL = "http://localhost:7860"

	// DefaultModel is the CLIP checkpoint the service loads when none is given
	DefaultModel = "ViT-B-32-quickgelu"

	// maxTextsPerRequest bounds a single text-features request
	maxTextsPerRequest = 256
)

// Client talks to the CLIP service that owns feature extraction and indexing
type Client struct {
	baseURL string
	model   string
	device  string
	client  *http.Client
	debug   bool
}

// NewClient creates a new CLIP service client and checks that the service is up
func NewClient(ctx context.Context, baseURL, model, device string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if device == "" {
		device = "cpu"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	// Indexing a large directory can take a while, requests carry their own context
	client := &http.Client{Timeout: 30 * time.Minute}

	// Test connection
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("CLIP service not running at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CLIP service returned status %d", resp.StatusCode)
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		device:  device,
		client:  client,
	}, nil
}

// SetDebug enables debug logging to stderr
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// ComputeTextFeatures embeds texts, splitting large vocabularies across requests
func (c *Client) ComputeTextFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	features := make([][]float32, 0, len(texts))
	dims := -1

	for start := 0; start < len(texts); start += maxTextsPerRequest {
		end := min(start+maxTextsPerRequest, len(texts))
		chunk := make([]string, end-start)
		for i, t := range texts[start:end] {
			chunk[i] = NormalizeText(t)
		}

		if c.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Embeddings: requesting text features %d-%d of %d\n", start, end, len(texts))
		}

		var result struct {
			Features [][]float32 `json:"features"`
		}
		reqBody := map[string]interface{}{
			"model":  c.model,
			"device": c.device,
			"texts":  chunk,
		}
		if err := c.post(ctx, "/v1/text-features", reqBody, &result); err != nil {
			return nil, err
		}

		if len(result.Features) != len(chunk) {
			return nil, fmt.Errorf("CLIP service returned %d vectors for %d texts", len(result.Features), len(chunk))
		}
		for i, f := range result.Features {
			if dims == -1 {
				dims = len(f)
			}
			if len(f) == 0 || len(f) != dims {
				return nil, fmt.Errorf("CLIP service returned a %d-value vector for text %d, expected %d", len(f), start+i, dims)
			}
		}

		features = append(features, result.Features...)
	}

	return features, nil
}

// IndexRequest asks the service to bring its index of a directory up to date
type IndexRequest struct {
	Directory   string   `json:"directory"`
	DataDir     string   `json:"datadir,omitempty"`
	IndexDSN    string   `json:"index_dsn,omitempty"`
	BatchSize   int      `json:"batch_size"`
	Device      string   `json:"device"`
	Model       string   `json:"model"`
	ExcludeDirs []string `json:"exclude_dirs,omitempty"`
}

// IndexResult summarises an index update
type IndexResult struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

// UpdateIndex asks the service to index new or changed images below a directory.
// Scanning, change detection and feature extraction all happen on the service side.
func (c *Client) UpdateIndex(ctx context.Context, req IndexRequest) (IndexResult, error) {
	req.Model = c.model
	if req.Device == "" {
		req.Device = c.device
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Embeddings: updating index of %s (batch_size=%d, exclude=%v)\n",
			req.Directory, req.BatchSize, req.ExcludeDirs)
	}

	var result IndexResult
	if err := c.post(ctx, "/v1/index", req, &result); err != nil {
		return IndexResult{}, fmt.Errorf("failed to update index: %w", err)
	}
	return result, nil
}

// Name returns the model name
func (c *Client) Name() string {
	return fmt.Sprintf("clip/%s", c.model)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("CLIP service error (status %d): %s", resp.StatusCode, errResp.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
