package scoring

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const float32Size = 4

// EncodeVector encodes a float32 slice as the little-endian buffer the index stores
func EncodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(v) * float32Size)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// DecodeVector converts a raw little-endian buffer into a float32 vector.
// A dim of 0 accepts any whole number of elements.
func DecodeVector(b []byte, dim int) ([]float32, error) {
	if len(b)%float32Size != 0 {
		return nil, fmt.Errorf("%w: buffer of %d bytes is not a whole number of float32 values", ErrDimensionMismatch, len(b))
	}

	n := len(b) / float32Size
	if dim > 0 && n != dim {
		return nil, fmt.Errorf("%w: got %d values, expected %d", ErrDimensionMismatch, n, dim)
	}

	v := make([]float32, n)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return v, nil
}

// Dot returns the dot product of two equally sized vectors
func Dot(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}
