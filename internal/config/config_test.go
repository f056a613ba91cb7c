package config

import (
	"errors"
	"math"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("LoadFrom() = %+v, want zero config", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := &Config{
		ServiceURL:   "http://localhost:7860",
		Model:        "ViT-L-14",
		ExiftoolPath: "/opt/bin/exiftool",
		IndexDSN:     "postgres://rtag@localhost/rtag",
		TextCache:    true,
	}

	if err := SaveTo(want, path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if *got != *want {
		t.Errorf("LoadFrom() = %+v, want %+v", got, want)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if runtime.GOOS != "windows" && path != "/home/tester/.rtag/config.yaml" {
		t.Errorf("GetConfigPath() = %q", path)
	}
}

func TestExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	if ok, err := Exists(); err != nil || ok {
		t.Fatalf("Exists() before Save = %v, %v", ok, err)
	}
	if err := Save(&Config{Model: "ViT-B-32"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ok, err := Exists(); err != nil || !ok {
		t.Errorf("Exists() after Save = %v, %v", ok, err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"append", ModeAppend, false},
		{"overwrite", ModeOverwrite, false},
		{"Overwrite", "", true},
		{"APPEND", "", true},
		{"merge", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseMode(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := Options{}.WithDefaults()

	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr error
	}{
		{"defaults", func(o *Options) {}, nil},
		{"overwrite", func(o *Options) { o.Mode = ModeOverwrite }, nil},
		{"bad mode", func(o *Options) { o.Mode = "merge" }, ErrInvalidMode},
		{"zero batch", func(o *Options) { o.IndexingBatchSize = 0 }, ErrInvalidBatchSize},
		{"negative batch", func(o *Options) { o.IndexingBatchSize = -3 }, ErrInvalidBatchSize},
		{"bad device", func(o *Options) { o.Device = "tpu" }, ErrInvalidDevice},
		{"nan threshold", func(o *Options) { o.Threshold = float32(math.NaN()) }, ErrInvalidThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()

	if opts.Mode != ModeAppend {
		t.Errorf("Mode = %q, want append", opts.Mode)
	}
	if opts.IndexingBatchSize != DefaultIndexingBatchSize {
		t.Errorf("IndexingBatchSize = %d", opts.IndexingBatchSize)
	}
	if len(opts.ExcludeDirs) != 3 {
		t.Errorf("ExcludeDirs = %v", opts.ExcludeDirs)
	}

	// the defaults must not be shared with callers
	opts.ExcludeDirs[0] = "changed"
	if DefaultExcludeDirs[0] != "@eaDir" {
		t.Error("WithDefaults() leaked DefaultExcludeDirs")
	}

	want := "cpu"
	if runtime.GOOS == "darwin" {
		want = "mps"
	}
	if opts.Device != want {
		t.Errorf("Device = %q, want %q", opts.Device, want)
	}
}

func TestLoadBenchmarkEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("OBJECTNET_DIR", "")
		t.Setenv("BATCH_SIZE", "")
		t.Setenv("DEVICE", "")

		env, err := LoadBenchmarkEnv()
		if err != nil {
			t.Fatalf("LoadBenchmarkEnv() error = %v", err)
		}
		want := BenchmarkEnv{DatasetDir: DefaultObjectNetDir, BatchSize: 256, Device: "cpu"}
		if env != want {
			t.Errorf("LoadBenchmarkEnv() = %+v, want %+v", env, want)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("OBJECTNET_DIR", "/data/objectnet")
		t.Setenv("BATCH_SIZE", "32")
		t.Setenv("DEVICE", "cuda")

		env, err := LoadBenchmarkEnv()
		if err != nil {
			t.Fatalf("LoadBenchmarkEnv() error = %v", err)
		}
		want := BenchmarkEnv{DatasetDir: "/data/objectnet", BatchSize: 32, Device: "cuda"}
		if env != want {
			t.Errorf("LoadBenchmarkEnv() = %+v, want %+v", env, want)
		}
	})

	for _, bad := range []string{"0", "-1", "many"} {
		t.Run("batch "+bad, func(t *testing.T) {
			t.Setenv("BATCH_SIZE", bad)
			if _, err := LoadBenchmarkEnv(); !errors.Is(err, ErrInvalidBatchSize) {
				t.Errorf("LoadBenchmarkEnv() error = %v, want ErrInvalidBatchSize", err)
			}
		})
	}
}
