package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	HistoryFileName = "history.json"

	// MaxEntries bounds the history file; older runs are dropped first
	MaxEntries = 200
)

// TaggedFile records the keywords written to one image
type TaggedFile struct {
	Path     string   `json:"path"`
	Keywords []string `json:"keywords"`
}

// FailedFile records an image whose metadata could not be updated
type FailedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Entry represents a single tagging run
type Entry struct {
	Timestamp time.Time    `json:"timestamp"`
	Directory string       `json:"directory"`
	Mode      string       `json:"mode"`
	Threshold float32      `json:"threshold"`
	DryRun    bool         `json:"dry_run"`
	Tagged    []TaggedFile `json:"tagged,omitempty"`
	Failures  []FailedFile `json:"failures,omitempty"`
}

// History manages the log of tagging runs
type History struct {
	Entries []Entry `json:"entries"`
	path    string
}

// GetHistoryPath returns the path to the history file
func GetHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rtag", HistoryFileName), nil
}

// Load reads the history from disk
func Load() (*History, error) {
	historyPath, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(historyPath)
}

// LoadFrom reads the history at path; a missing file yields an empty history
func LoadFrom(historyPath string) (*History, error) {
	// If history doesn't exist, return empty history
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		return &History{Entries: []Entry{}, path: historyPath}, nil
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var hist History
	if err := json.Unmarshal(data, &hist); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	hist.path = historyPath

	return &hist, nil
}

// Save writes the history back to where it was loaded from
func (h *History) Save() error {
	// Ensure directory exists
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// AddEntry adds a new entry to the history
func (h *History) AddEntry(entry Entry) {
	h.Entries = append(h.Entries, entry)
	if over := len(h.Entries) - MaxEntries; over > 0 {
		h.Entries = h.Entries[over:]
	}
}

// NewEntry creates a new history entry for a run over dir
func NewEntry(dir, mode string, threshold float32, dryRun bool) Entry {
	return Entry{
		Timestamp: time.Now(),
		Directory: dir,
		Mode:      mode,
		Threshold: threshold,
		DryRun:    dryRun,
	}
}

// RecordTagged notes that keywords were written to path
func (e *Entry) RecordTagged(path string, keywords []string) {
	e.Tagged = append(e.Tagged, TaggedFile{Path: path, Keywords: keywords})
}

// RecordFailure notes that path could not be updated
func (e *Entry) RecordFailure(path string, err error) {
	e.Failures = append(e.Failures, FailedFile{Path: path, Error: err.Error()})
}
