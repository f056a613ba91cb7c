// Package benchmark measures tagging accuracy against the ObjectNet dataset
// (https://objectnet.dev/). ObjectNet shows objects from unusual viewpoints on
// unusual backgrounds, so its scores are closer to real-world performance than
// ImageNet's.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v2"

	"github.com/iishyfishyy/rtag/internal/embeddings"
	"github.com/iishyfishyy/rtag/internal/scoring"
	"github.com/iishyfishyy/rtag/internal/vectorstore"
	"github.com/iishyfishyy/rtag/internal/vocab"
)

var (
	// ErrDatasetNotFound is returned when the dataset directory does not exist
	ErrDatasetNotFound = errors.New("ObjectNet dataset not found")

	// ErrUnknownFolder is returned for an image whose folder has no label
	ErrUnknownFolder = errors.New("image folder has no label mapping")

	// ErrInvalidTemplate is returned for a prompt template without a single %s
	ErrInvalidTemplate = errors.New("prompt template must contain exactly one %s")
)

// MappingFile is the folder -> label mapping, relative to the dataset directory
var MappingFile = filepath.Join("mappings", "folder_to_objectnet_label.json")

// CheckDataset verifies that dir is an existing directory
func CheckDataset(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w at %s", ErrDatasetNotFound, dir)
		}
		return fmt.Errorf("failed to access dataset: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w at %s: not a directory", ErrDatasetNotFound, dir)
	}
	return nil
}

// LoadLabels reads the dataset's folder -> label mapping
func LoadLabels(dir string) (*vocab.FolderLabels, error) {
	return vocab.LoadFolderLabels(filepath.Join(dir, MappingFile))
}

// ValidateTemplate checks a prompt template such as "photo of %s"
func ValidateTemplate(tmpl string) error {
	if tmpl == "" {
		return nil
	}
	if strings.Count(tmpl, "%s") != 1 || strings.Count(tmpl, "%") != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, tmpl)
	}
	return nil
}

// Benchmark scores every indexed dataset image against the dataset labels
type Benchmark struct {
	Model  embeddings.Model
	Store  vectorstore.Store
	Labels *vocab.FolderLabels

	DatasetDir string
	BatchSize  int

	// PromptTemplate wraps each label before it is embedded; empty uses the bare label
	PromptTemplate string

	// Progress receives the progress bar; nil disables it
	Progress io.Writer

	Debug bool
}

// Run processes the images in batches and returns the accuracy report
func (b *Benchmark) Run(ctx context.Context) (scoring.Report, error) {
	if err := ValidateTemplate(b.PromptTemplate); err != nil {
		return scoring.Report{}, err
	}

	tags := b.Labels.Tags()
	texts := make([]string, len(tags))
	for i, tag := range tags {
		texts[i] = tag
		if b.PromptTemplate != "" {
			texts[i] = fmt.Sprintf(b.PromptTemplate, tag)
		}
	}

	if b.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Benchmark: computing text features for %d labels with %s\n", len(texts), b.Model.Name())
	}
	features, err := b.Model.ComputeTextFeatures(ctx, texts)
	if err != nil {
		return scoring.Report{}, fmt.Errorf("failed to compute text features: %w", err)
	}
	if len(features) != len(tags) || len(features) == 0 {
		return scoring.Report{}, fmt.Errorf("model returned %d vectors for %d labels", len(features), len(tags))
	}
	dims := len(features[0])

	var bar *progressbar.ProgressBar
	if b.Progress != nil {
		total, err := b.Store.CountByDir(ctx, b.DatasetDir)
		if err != nil {
			return scoring.Report{}, fmt.Errorf("failed to count indexed images: %w", err)
		}
		bar = progressbar.NewOptions(total, progressbar.OptionSetWriter(b.Progress))
	}

	var counter scoring.Counter
	err = scoring.Batches(b.Store.ImageVectorsByDir(ctx, b.DatasetDir), b.BatchSize, func(batch []vectorstore.ImageRecord) error {
		results, err := b.processBatch(batch, tags, features, dims)
		if err != nil {
			return err
		}
		counter.RecordAll(results)

		if b.Debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Benchmark: processed batch of %d (total %d)\n", len(batch), counter.Processed())
		}
		if bar != nil {
			bar.Add(len(batch))
		}
		return nil
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return scoring.Report{}, err
	}

	return counter.Report()
}

func (b *Benchmark) processBatch(batch []vectorstore.ImageRecord, tags []string, features [][]float32, dims int) ([]scoring.MatchResult, error) {
	images := make([][]float32, len(batch))
	truths := make([]string, len(batch))

	for i, rec := range batch {
		vec, err := scoring.DecodeVector(rec.Vector, dims)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Filepath, err)
		}
		images[i] = vec

		folder := filepath.Base(filepath.Dir(rec.Filepath))
		label, ok := b.Labels.Label(folder)
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownFolder, folder, rec.Filepath)
		}
		truths[i] = label
	}

	sims, err := scoring.Similarities(images, features)
	if err != nil {
		return nil, err
	}

	results := make([]scoring.MatchResult, len(batch))
	for i, row := range sims {
		if results[i], err = scoring.Match(row, tags, truths[i]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// FormatReport renders the final summary lines
func FormatReport(r scoring.Report) string {
	return fmt.Sprintf("Processed: %d\nTop-1 accuracy: %v\nTop-5 accuracy: %v\n",
		r.Processed, r.Top1Accuracy, r.Top5Accuracy)
}
