package scoring

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeVector(t *testing.T) {
	want := []float32{0.25, -1.5, 3}
	buf := EncodeVector(want)

	if len(buf) != 12 {
		t.Fatalf("EncodeVector() produced %d bytes, want 12", len(buf))
	}

	got, err := DecodeVector(buf, 3)
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeVector() = %v, want %v", got, want)
	}

	// little-endian 1.0
	got, err = DecodeVector([]byte{0x00, 0x00, 0x80, 0x3f}, 0)
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("DecodeVector() = %v, want [1]", got)
	}
}

func TestDecodeVectorErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		dim  int
	}{
		{"partial float", []byte{1, 2, 3, 4, 5}, 0},
		{"wrong dimension", EncodeVector([]float32{1, 2}), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeVector(tt.buf, tt.dim); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("DecodeVector() error = %v, want ErrDimensionMismatch", err)
			}
		})
	}
}

func TestDot(t *testing.T) {
	got, err := Dot([]float32{1, 2, 3}, []float32{4, 5, 6})
	if err != nil {
		t.Fatalf("Dot() error = %v", err)
	}
	if got != 32 {
		t.Errorf("Dot() = %v, want 32", got)
	}

	if _, err := Dot([]float32{1}, []float32{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Dot() error = %v, want ErrDimensionMismatch", err)
	}
}
