package metadata

import (
	"fmt"
	"os"

	"github.com/barasher/go-exiftool"
)

// keywordsTag is the IPTC field holding image keywords
const keywordsTag = "Keywords"

// ExifEditor edits keywords through a long-running exiftool process
type ExifEditor struct {
	et    *exiftool.Exiftool
	debug bool
}

// NewExifEditor starts exiftool. binaryPath may be empty to use exiftool from PATH.
func NewExifEditor(binaryPath string) (*ExifEditor, error) {
	var opts []func(*exiftool.Exiftool) error
	if binaryPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binaryPath))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool (is it installed?): %w", err)
	}
	return &ExifEditor{et: et}, nil
}

// SetDebug enables debug logging to stderr
func (e *ExifEditor) SetDebug(debug bool) {
	e.debug = debug
}

// Open reads the keywords of path
func (e *ExifEditor) Open(path string) (*Metadata, error) {
	fms := e.et.ExtractMetadata(path)
	if len(fms) != 1 {
		return nil, fmt.Errorf("%w: %s: exiftool returned %d results", ErrOpen, path, len(fms))
	}
	fm := fms[0]
	if fm.Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, fm.Err)
	}

	keywords := keywordsFromField(fm.Fields[keywordsTag])
	if e.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Metadata: %s has keywords %v\n", path, keywords)
	}

	return NewMetadata(path, keywords, e.write), nil
}

func (e *ExifEditor) write(path string, keywords []string) error {
	fm := exiftool.FileMetadata{File: path, Fields: map[string]interface{}{}}
	fm.SetStrings(keywordsTag, keywords)

	if e.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Metadata: writing %d keywords to %s\n", len(keywords), path)
	}

	fms := []exiftool.FileMetadata{fm}
	e.et.WriteMetadata(fms)
	return fms[0].Err
}

// Close stops the exiftool process
func (e *ExifEditor) Close() error {
	return e.et.Close()
}

// keywordsFromField normalises the shapes exiftool uses for a list tag:
// absent, a single value, or an array
func keywordsFromField(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return val
	default:
		// numeric keywords such as "2024" come back as numbers
		return []string{fmt.Sprint(val)}
	}
}
