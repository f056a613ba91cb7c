package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FolderLabels maps dataset folder names to human-readable labels,
// keeping the key order of the source document.
type FolderLabels struct {
	folders []string
	labels  map[string]string
}

// LoadFolderLabels reads a JSON object of folder name -> label
func LoadFolderLabels(path string) (*FolderLabels, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open label mapping: %w", err)
	}
	defer file.Close()

	fl, err := decodeFolderLabels(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return fl, nil
}

// decodeFolderLabels walks the token stream so insertion order survives decoding
func decodeFolderLabels(r io.Reader) (*FolderLabels, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	fl := &FolderLabels{labels: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		folder, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}

		var label string
		if err := dec.Decode(&label); err != nil {
			return nil, fmt.Errorf("label for %q: %w", folder, err)
		}

		if _, seen := fl.labels[folder]; !seen {
			fl.folders = append(fl.folders, folder)
		}
		fl.labels[folder] = label
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	return fl, nil
}

// Tags returns the labels in document order. Labels shared by several
// folders appear once per folder.
func (f *FolderLabels) Tags() []string {
	tags := make([]string, len(f.folders))
	for i, folder := range f.folders {
		tags[i] = f.labels[folder]
	}
	return tags
}

// Label returns the label of a folder
func (f *FolderLabels) Label(folder string) (string, bool) {
	label, ok := f.labels[folder]
	return label, ok
}

// Len returns the number of folders in the mapping
func (f *FolderLabels) Len() int {
	return len(f.folders)
}
