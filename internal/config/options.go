package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"
)

var (
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidBatchSize = errors.New("invalid batch size")
	ErrInvalidDevice    = errors.New("invalid device")
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Mode decides how new tags combine with the keywords already in a file
type Mode string

const (
	ModeAppend    Mode = "append"
	ModeOverwrite Mode = "overwrite"
)

const (
	DefaultThreshold         = 0.25
	DefaultIndexingBatchSize = 8
)

// DefaultExcludeDirs are skipped while indexing unless --exclude-dir is given
var DefaultExcludeDirs = []string{"@eaDir", "node_modules", ".git"}

// ParseMode validates a mode name. Names are case-sensitive.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAppend, ModeOverwrite:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (expected append or overwrite)", ErrInvalidMode, s)
	}
}

// SupportedDevices lists the inference devices the tagger may request on this platform
func SupportedDevices() []string {
	if runtime.GOOS == "darwin" {
		return []string{"cpu", "mps"}
	}
	return []string{"cpu"}
}

// DefaultDevice is mps on macOS and cpu elsewhere
func DefaultDevice() string {
	devices := SupportedDevices()
	return devices[len(devices)-1]
}

// Options holds the settings of a single tagging run. It is built once from
// the command line and passed by value.
type Options struct {
	Dir               string
	DryRun            bool
	Yes               bool
	Mode              Mode
	Threshold         float32
	TagsFilepath      string
	NoIndexing        bool
	IndexingBatchSize int
	ExcludeDirs       []string
	Device            string
	ContinueOnError   bool
	Debug             bool
}

// Validate rejects options that would fail later, before any backend work starts
func (o Options) Validate() error {
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.IndexingBatchSize < 1 {
		return fmt.Errorf("%w: indexing batch size should be >0, got %d", ErrInvalidBatchSize, o.IndexingBatchSize)
	}
	if devices := SupportedDevices(); !slices.Contains(devices, o.Device) {
		return fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidDevice, o.Device, strings.Join(devices, ", "))
	}
	if math.IsNaN(float64(o.Threshold)) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidThreshold)
	}
	return nil
}

// WithDefaults returns a copy with unset fields filled in
func (o Options) WithDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeAppend
	}
	if o.IndexingBatchSize == 0 {
		o.IndexingBatchSize = DefaultIndexingBatchSize
	}
	if o.Device == "" {
		o.Device = DefaultDevice()
	}
	if o.ExcludeDirs == nil {
		o.ExcludeDirs = slices.Clone(DefaultExcludeDirs)
	} else {
		o.ExcludeDirs = slices.Clone(o.ExcludeDirs)
	}
	return o
}
