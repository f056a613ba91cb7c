package vectorstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"testing"
)

// TestStoreInterface ensures implementations satisfy the Store interface
func TestStoreInterface(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
	var _ Store = (*PostgresStore)(nil)
	var _ Store = (*MemoryStore)(nil)
}

func collect(t *testing.T, s Store, dir string) []string {
	t.Helper()
	var paths []string
	for rec, err := range s.ImageVectorsByDir(context.Background(), dir) {
		if err != nil {
			t.Fatalf("ImageVectorsByDir() error = %v", err)
		}
		paths = append(paths, rec.Filepath)
	}
	return paths
}

func sep(parts ...string) string {
	return string(os.PathSeparator) + filepath.Join(parts...)
}

// indexSchema is the layout the indexing backend writes
const indexSchema = `
	CREATE TABLE images (
		id INTEGER PRIMARY KEY,
		deleted BOOLEAN,
		filepath TEXT NOT NULL UNIQUE,
		modified_at DATETIME NOT NULL,
		size INTEGER NOT NULL,
		vector BLOB NOT NULL,
		indexing BOOLEAN
	);
	CREATE INDEX idx_filepath ON images(filepath);`

// writeIndex builds an index at dbPath the way the backend does. A dims of 0
// leaves out the metadata table, as older backends did.
func writeIndex(t *testing.T, dbPath string, dims int, paths []string, deleted ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(indexSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if dims > 0 {
		if _, err := db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
			t.Fatalf("create metadata: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO metadata (key, value) VALUES ('dimensions', ?)`, strconv.Itoa(dims)); err != nil {
			t.Fatalf("write metadata: %v", err)
		}
	}
	for _, p := range paths {
		var del any
		if slices.Contains(deleted, p) {
			del = 1
		}
		_, err := db.Exec(`INSERT INTO images (deleted, filepath, modified_at, size, vector) VALUES (?, ?, '2024-01-01', 0, ?)`,
			del, p, []byte{0, 0, 128, 63})
		if err != nil {
			t.Fatalf("insert %s: %v", p, err)
		}
	}
}

var indexedPaths = []string{
	sep("photos", "a.jpg"),
	sep("photos", "trip", "b.jpg"),
	sep("photos_old", "c.jpg"),
	sep("photos", "100%_d.jpg"),
	sep("Photos", "e.jpg"),
	sep("other", "f.jpg"),
}

func testStore(t *testing.T, s Store, deleted string) {
	want := []string{sep("photos", "trip", "b.jpg"), sep("photos", "100%_d.jpg")}
	if deleted == "" {
		want = append([]string{sep("photos", "a.jpg")}, want...)
	}
	if got := collect(t, s, sep("photos")); !reflect.DeepEqual(got, want) {
		t.Errorf("ImageVectorsByDir() = %v, want %v", got, want)
	}

	// trailing separators do not change the result
	if got := collect(t, s, sep("photos")+string(os.PathSeparator)); !reflect.DeepEqual(got, want) {
		t.Errorf("ImageVectorsByDir() with trailing separator = %v, want %v", got, want)
	}

	count, err := s.CountByDir(context.Background(), sep("photos"))
	if err != nil {
		t.Fatalf("CountByDir() error = %v", err)
	}
	if count != len(want) {
		t.Errorf("CountByDir() = %d, want %d", count, len(want))
	}

	// directory names differing only in case are different directories
	if got := collect(t, s, sep("Photos")); !reflect.DeepEqual(got, []string{sep("Photos", "e.jpg")}) {
		t.Errorf("ImageVectorsByDir(Photos) = %v", got)
	}
	if count, err := s.CountByDir(context.Background(), sep("Photos")); err != nil || count != 1 {
		t.Errorf("CountByDir(Photos) = %d, %v; want 1", count, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DBFileName)
	writeIndex(t, dbPath, 512, indexedPaths, sep("photos", "a.jpg"))

	s, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	testStore(t, s, sep("photos", "a.jpg"))

	if s.Dimensions() != 512 {
		t.Errorf("Dimensions() = %d, want 512", s.Dimensions())
	}
}

func TestOpenSQLiteStoreWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, DBFileName)
	writeIndex(t, dbPath, 0, indexedPaths)

	// the index belongs to the backend; opening it must not write to it
	if err := os.Chmod(dbPath, 0444); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	s, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if s.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d, want 0", s.Dimensions())
	}
	if count, err := s.CountByDir(context.Background(), sep("photos")); err != nil || count != 3 {
		t.Errorf("CountByDir() = %d, %v; want 3", count, err)
	}
}

func TestOpenSQLiteStoreMissing(t *testing.T) {
	if _, err := OpenSQLiteStore(filepath.Join(t.TempDir(), DBFileName)); err == nil {
		t.Error("OpenSQLiteStore() on a missing index should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(1)
	for _, p := range indexedPaths {
		if err := s.Add(context.Background(), ImageRecord{Filepath: p, Vector: []byte{0, 0, 128, 63}}); err != nil {
			t.Fatalf("Add(%s) error = %v", p, err)
		}
	}
	testStore(t, s, "")

	if err := s.Add(context.Background(), ImageRecord{Filepath: sep("x.jpg")}); err == nil {
		t.Error("Add() with empty vector should fail")
	}
}

func TestMemoryStoreStopsEarly(t *testing.T) {
	s := NewMemoryStore(0)
	for _, p := range []string{sep("d", "1.jpg"), sep("d", "2.jpg"), sep("d", "3.jpg")} {
		s.Add(context.Background(), ImageRecord{Filepath: p, Vector: []byte{1, 2, 3, 4}})
	}

	n := 0
	for range s.ImageVectorsByDir(context.Background(), sep("d")) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d records, want 2", n)
	}
}

func TestIsPostgresDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgres://u:p@localhost/rtag", true},
		{"postgresql://localhost/rtag", true},
		{"/home/me/.local/share/rclip", false},
		{"sqlite:///tmp/db.sqlite3", false},
	}
	for _, tt := range tests {
		if got := IsPostgresDSN(tt.dsn); got != tt.want {
			t.Errorf("IsPostgresDSN(%q) = %v, want %v", tt.dsn, got, tt.want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("unix paths")
	}
	if got := likePattern("/data/100%_photos/"); got != `/data/100\%\_photos/%` {
		t.Errorf("likePattern() = %q", got)
	}
}
