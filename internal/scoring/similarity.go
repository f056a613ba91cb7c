// Package scoring matches image embeddings against tag embeddings.
//
// Vectors are expected to be normalised by the embedding backend, so a plain
// dot product stands in for cosine similarity. Nothing here renormalises.
package scoring

import (
	"fmt"
	"sort"
)

// Similarities computes the len(images) x len(texts) matrix of dot products
func Similarities(images, texts [][]float32) ([][]float32, error) {
	if len(images) == 0 {
		return nil, ErrEmptyBatch
	}

	dim := -1
	for i, t := range texts {
		if dim == -1 {
			dim = len(t)
			continue
		}
		if len(t) != dim {
			return nil, fmt.Errorf("%w: text vector %d has %d values, expected %d", ErrDimensionMismatch, i, len(t), dim)
		}
	}

	out := make([][]float32, len(images))
	for i, img := range images {
		if dim != -1 && len(img) != dim {
			return nil, fmt.Errorf("%w: image vector %d has %d values, text vectors have %d", ErrDimensionMismatch, i, len(img), dim)
		}

		row := make([]float32, len(texts))
		for j, t := range texts {
			score, err := Dot(img, t)
			if err != nil {
				return nil, err
			}
			row[j] = score
		}
		out[i] = row
	}

	return out, nil
}

// Rank returns column indices ordered by descending score.
// Equal scores keep vocabulary order, so the ranking is deterministic.
func Rank(row []float32) []int {
	idx := make([]int, len(row))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return row[idx[a]] > row[idx[b]]
	})
	return idx
}

// TopK returns the indices of the k highest scores, best first
func TopK(row []float32, k int) []int {
	ranked := Rank(row)
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// AboveThreshold returns, in vocabulary order, the indices whose score is strictly greater than threshold
func AboveThreshold(row []float32, threshold float32) []int {
	var selected []int
	for i, score := range row {
		if score > threshold {
			selected = append(selected, i)
		}
	}
	return selected
}

// MatchResult records whether the ground-truth label ranked first or within the first five
type MatchResult struct {
	Top1 bool
	Top5 bool
}

// Match compares the ranked labels of one similarity row with the expected label.
// Labels are compared as strings, so duplicate vocabulary entries count as one label.
func Match(row []float32, tags []string, truth string) (MatchResult, error) {
	if len(row) != len(tags) {
		return MatchResult{}, fmt.Errorf("%w: %d scores for %d tags", ErrDimensionMismatch, len(row), len(tags))
	}

	var res MatchResult
	for pos, i := range TopK(row, 5) {
		if tags[i] != truth {
			continue
		}
		if pos == 0 {
			res.Top1 = true
		}
		res.Top5 = true
		break
	}
	return res, nil
}
