// Package metadata reads and writes the keyword tags stored in image files.
package metadata

import (
	"errors"
	"fmt"
	"slices"

	"github.com/iishyfishyy/rtag/internal/config"
)

var (
	// ErrOpen is returned when a file's metadata cannot be read
	ErrOpen = errors.New("cannot read image metadata")

	// ErrWrite is returned when updated metadata cannot be saved
	ErrWrite = errors.New("cannot write image metadata")
)

// Editor opens the metadata of image files
type Editor interface {
	Open(path string) (*Metadata, error)
	Close() error
}

// SaveFunc persists the keywords of one file
type SaveFunc func(path string, keywords []string) error

// Metadata is the keyword view of one image file
type Metadata struct {
	path     string
	original []string
	keywords []string
	save     SaveFunc
}

// NewMetadata wraps the keywords read from path; save is called by Save when
// the keywords changed
func NewMetadata(path string, keywords []string, save SaveFunc) *Metadata {
	return &Metadata{
		path:     path,
		original: slices.Clone(keywords),
		keywords: slices.Clone(keywords),
		save:     save,
	}
}

// Keywords returns the current keywords
func (m *Metadata) Keywords() []string {
	return slices.Clone(m.keywords)
}

// SetKeywords replaces the keywords; nothing is written until Save
func (m *Metadata) SetKeywords(keywords []string) {
	m.keywords = slices.Clone(keywords)
}

// Changed reports whether Save would write anything
func (m *Metadata) Changed() bool {
	return !slices.Equal(m.original, m.keywords)
}

// Save writes the keywords back to the file
func (m *Metadata) Save() error {
	if !m.Changed() {
		return nil
	}
	if err := m.save(m.path, m.keywords); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, m.path, err)
	}
	m.original = slices.Clone(m.keywords)
	return nil
}

// Merge combines the keywords already in a file with newly selected tags.
// Append keeps existing keywords first, then new ones in first-seen order;
// overwrite keeps only the new tags. Duplicates are dropped in both modes.
func Merge(mode config.Mode, existing, tags []string) ([]string, error) {
	switch mode {
	case config.ModeAppend:
		return dedupe(existing, tags), nil
	case config.ModeOverwrite:
		return dedupe(tags), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMode, mode)
	}
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, kw := range list {
			if seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}
