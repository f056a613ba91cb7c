// Package tagger selects vocabulary tags for indexed images and writes them
// into the images' keyword metadata.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v2"

	"github.com/iishyfishyy/rtag/internal/config"
	"github.com/iishyfishyy/rtag/internal/embeddings"
	"github.com/iishyfishyy/rtag/internal/history"
	"github.com/iishyfishyy/rtag/internal/metadata"
	"github.com/iishyfishyy/rtag/internal/scoring"
	"github.com/iishyfishyy/rtag/internal/ui"
	"github.com/iishyfishyy/rtag/internal/vectorstore"
)

var (
	// ErrEmptyVocabulary is returned when there are no tags to choose from
	ErrEmptyVocabulary = errors.New("tag vocabulary is empty")

	// ErrFilesFailed is returned after a --continue-on-error run in which
	// some files could not be updated
	ErrFilesFailed = errors.New("some images could not be tagged")
)

// Tagger runs one tagging pass over the images indexed below Options.Dir
type Tagger struct {
	Model   embeddings.Model
	Store   vectorstore.Store
	Editor  metadata.Editor
	Options config.Options

	// Out receives dry-run output
	Out io.Writer

	// Progress receives the progress bar; nil disables it
	Progress io.Writer
}

// Result summarises a run
type Result struct {
	Processed int
	Entry     history.Entry
}

// Run scores every image against tags and, unless this is a dry run, writes
// the tags above the threshold into the image metadata
func (t *Tagger) Run(ctx context.Context, tags []string) (*Result, error) {
	opts := t.Options
	if len(tags) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if !opts.DryRun && t.Editor == nil {
		return nil, fmt.Errorf("no metadata editor configured")
	}
	out := t.Out
	if out == nil {
		out = os.Stdout
	}

	if opts.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Tagger: computing text features for %d tags with %s\n", len(tags), t.Model.Name())
	}
	features, err := t.Model.ComputeTextFeatures(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("failed to compute text features: %w", err)
	}
	if len(features) != len(tags) {
		return nil, fmt.Errorf("model returned %d vectors for %d tags", len(features), len(tags))
	}
	dims := len(features[0])

	bar, err := t.progressBar(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Entry: history.NewEntry(opts.Dir, string(opts.Mode), opts.Threshold, opts.DryRun),
	}

	for rec, err := range t.Store.ImageVectorsByDir(ctx, opts.Dir) {
		if err != nil {
			return result, fmt.Errorf("failed to read image index: %w", err)
		}

		vec, err := scoring.DecodeVector(rec.Vector, dims)
		if err != nil {
			return result, fmt.Errorf("%s: %w", rec.Filepath, err)
		}
		sims, err := scoring.Similarities([][]float32{vec}, features)
		if err != nil {
			return result, fmt.Errorf("%s: %w", rec.Filepath, err)
		}
		row := sims[0]

		selected := scoring.AboveThreshold(row, opts.Threshold)
		newTags := make([]string, len(selected))
		for i, idx := range selected {
			newTags[i] = tags[idx]
		}

		if opts.DryRun {
			fmt.Fprintf(out, "\n%s\n", rec.Filepath)
			for _, idx := range selected {
				fmt.Fprintf(out, "- %s: %.3f\n", tags[idx], row[idx])
			}
		} else if len(newTags) > 0 {
			keywords, err := t.write(rec.Filepath, newTags)
			if err != nil {
				if !opts.ContinueOnError {
					result.Entry.RecordFailure(rec.Filepath, err)
					return result, err
				}
				ui.ShowWarning(err.Error())
				result.Entry.RecordFailure(rec.Filepath, err)
			} else {
				result.Entry.RecordTagged(rec.Filepath, keywords)
			}
		}

		result.Processed++
		if bar != nil {
			bar.Add(1)
		}
	}

	if bar != nil {
		bar.Finish()
	}

	if n := len(result.Entry.Failures); n > 0 {
		return result, fmt.Errorf("%w: %d of %d", ErrFilesFailed, n, result.Processed)
	}
	return result, nil
}

// write merges newTags into the file's keywords and saves them
func (t *Tagger) write(path string, newTags []string) ([]string, error) {
	md, err := t.Editor.Open(path)
	if err != nil {
		return nil, err
	}

	keywords, err := metadata.Merge(t.Options.Mode, md.Keywords(), newTags)
	if err != nil {
		return nil, err
	}
	md.SetKeywords(keywords)

	if t.Options.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Tagger: %s -> %v\n", path, keywords)
	}

	if err := md.Save(); err != nil {
		return nil, err
	}
	return keywords, nil
}

func (t *Tagger) progressBar(ctx context.Context) (*progressbar.ProgressBar, error) {
	if t.Progress == nil {
		return nil, nil
	}
	total, err := t.Store.CountByDir(ctx, t.Options.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to count indexed images: %w", err)
	}
	return progressbar.NewOptions(total, progressbar.OptionSetWriter(t.Progress)), nil
}
