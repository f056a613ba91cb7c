package metadata

import (
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/iishyfishyy/rtag/internal/config"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		mode     config.Mode
		existing []string
		tags     []string
		want     []string
	}{
		{"append to empty", config.ModeAppend, nil, []string{"dog", "car"}, []string{"dog", "car"}},
		{"append keeps existing first", config.ModeAppend, []string{"animal"}, []string{"dog", "animal"}, []string{"animal", "dog"}},
		{"append drops existing duplicates", config.ModeAppend, []string{"a", "a", "b"}, []string{"b", "c"}, []string{"a", "b", "c"}},
		{"append nothing new", config.ModeAppend, []string{"cat"}, []string{"cat"}, []string{"cat"}},
		{"overwrite", config.ModeOverwrite, []string{"animal", "old"}, []string{"dog"}, []string{"dog"}},
		{"overwrite duplicate labels", config.ModeOverwrite, nil, []string{"missile", "dog", "missile"}, []string{"missile", "dog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.mode, tt.existing, tt.tags)
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeInvalidMode(t *testing.T) {
	_, err := Merge("merge", nil, []string{"dog"})
	if !errors.Is(err, config.ErrInvalidMode) {
		t.Errorf("Merge() error = %v, want ErrInvalidMode", err)
	}
}

func TestMergeAppendIsUnion(t *testing.T) {
	sets := [][]string{
		{},
		{"animal"},
		{"dog", "animal"},
		{"cat", "dog", "car"},
		{"car", "car"},
	}

	for _, e := range sets {
		for _, n := range sets {
			forward, _ := Merge(config.ModeAppend, e, n)
			backward, _ := Merge(config.ModeAppend, n, e)

			union := map[string]bool{}
			for _, kw := range append(slices.Clone(e), n...) {
				union[kw] = true
			}
			if len(forward) != len(union) {
				t.Errorf("Merge(%v, %v) = %v, want %d distinct keywords", e, n, forward, len(union))
			}

			sort.Strings(forward)
			sort.Strings(backward)
			if !slices.Equal(forward, backward) {
				t.Errorf("Merge(%v, %v) and Merge(%v, %v) differ as sets", e, n, n, e)
			}
		}
	}
}

func TestOverwriteIsIdempotent(t *testing.T) {
	tags := []string{"dog", "car"}
	first, _ := Merge(config.ModeOverwrite, []string{"animal"}, tags)
	second, _ := Merge(config.ModeOverwrite, first, tags)
	if !slices.Equal(first, second) {
		t.Errorf("second overwrite = %v, first = %v", second, first)
	}
}

func TestMetadataSave(t *testing.T) {
	var writes [][]string
	save := func(path string, keywords []string) error {
		writes = append(writes, keywords)
		return nil
	}

	md := NewMetadata("/photos/cat.jpg", []string{"animal"}, save)

	if err := md.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(writes) != 0 {
		t.Errorf("unchanged metadata was written %d times", len(writes))
	}

	md.SetKeywords([]string{"animal", "cat"})
	if !md.Changed() {
		t.Error("Changed() = false after SetKeywords")
	}
	if err := md.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(writes) != 1 || !slices.Equal(writes[0], []string{"animal", "cat"}) {
		t.Errorf("writes = %v", writes)
	}
	if md.Changed() {
		t.Error("Changed() = true after Save")
	}
}

func TestMetadataSaveError(t *testing.T) {
	diskFull := errors.New("no space left on device")
	md := NewMetadata("/photos/cat.jpg", nil, func(string, []string) error { return diskFull })
	md.SetKeywords([]string{"cat"})

	err := md.Save()
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Save() error = %v, want ErrWrite", err)
	}
	if !errors.Is(err, diskFull) {
		t.Errorf("Save() error = %v, want wrapped cause", err)
	}
}

func TestKeywordsAreCopied(t *testing.T) {
	existing := []string{"animal"}
	md := NewMetadata("/photos/cat.jpg", existing, nil)

	kws := md.Keywords()
	kws[0] = "changed"
	existing[0] = "changed"

	if got := md.Keywords(); got[0] != "animal" {
		t.Errorf("Keywords() = %v, want [animal]", got)
	}
}

func TestKeywordsFromField(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"absent", nil, nil},
		{"empty string", "", nil},
		{"single", "sunset", []string{"sunset"}},
		{"list", []interface{}{"beach", "sunset"}, []string{"beach", "sunset"}},
		{"numeric in list", []interface{}{"trip", float64(2024)}, []string{"trip", "2024"}},
		{"numeric", float64(2024), []string{"2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordsFromField(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("keywordsFromField(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
