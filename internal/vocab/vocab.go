// Package vocab loads the candidate tag vocabularies scored against images.
package vocab

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

//go:embed data/imagenet-labels.txt
var imagenetLabels []byte

var (
	// ErrNotFound is returned when a vocabulary file does not exist
	ErrNotFound = errors.New("vocabulary not found")

	// ErrParse is returned when a vocabulary file cannot be decoded
	ErrParse = errors.New("failed to parse vocabulary")
)

// Default returns the bundled ImageNet-1k label set
func Default() []string {
	tags, err := readLines(bytes.NewReader(imagenetLabels))
	if err != nil {
		// the embedded file is plain text, scanning it cannot fail
		panic(fmt.Sprintf("vocab: bundled labels: %v", err))
	}
	return tags
}

// LoadFile reads newline-separated tags from path.
// Order is preserved and duplicates are kept.
func LoadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open tags file: %w", err)
	}
	defer file.Close()

	tags, err := readLines(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags file %s: %w", path, err)
	}
	return tags, nil
}

// maxLineSize bounds a single tag line
const maxLineSize = 1 << 20

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line longer than %d bytes", ErrParse, maxLineSize)
		}
		return nil, err
	}
	return lines, nil
}
