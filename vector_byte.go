package prism

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
)

// ByteVector is a fixed-length vector of uint8 elements compared with the L1
// (Manhattan) distance. Most quantized visual features (color histograms, DCT
// coefficient blocks) ship in this format.
//
// Formula: sum(|a[i] - b[i]|)
//
// The payload is immutable after construction.
type ByteVector struct {
	keyedObject
	data []byte
}

// NewByteVector creates a ByteVector over data. The vector takes ownership of
// the slice; callers must not modify it afterwards.
func NewByteVector(data []byte) (*ByteVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	return &ByteVector{data: data}, nil
}

// NewRandomByteVector creates a ByteVector of dim elements drawn uniformly
// from [min, max). A degenerate range with max == min fills the vector with
// min. The vector is assigned a fresh random locator so that generated
// datasets remain self-identifying.
func NewRandomByteVector(dim int, min, max byte) (*ByteVector, error) {
	if dim < 0 {
		return nil, errors.New("dimension must be non-negative")
	}
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	data := make([]byte, dim)
	span := int(max) - int(min)
	for i := range data {
		data[i] = min
		if span > 0 {
			data[i] += byte(rand.Intn(span))
		}
	}
	v := &ByteVector{data: data}
	v.key = LocatorKey(NewRandomLocator())
	return v, nil
}

// TypeName returns TypeByteVector.
func (v *ByteVector) TypeName() string {
	return TypeByteVector
}

// Data returns the underlying payload. Callers must not modify it.
func (v *ByteVector) Data() []byte {
	return v.data
}

// Dimensions returns the number of elements.
func (v *ByteVector) Dimensions() int {
	return len(v.data)
}

// Distance computes the L1 distance to another ByteVector. Accumulation stops
// as soon as the running sum exceeds the threshold.
func (v *ByteVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*ByteVector)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.TypeName(), other.TypeName())
	}
	if len(v.data) != len(o.data) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v.data), len(o.data))
	}
	var sum int64
	for i := range v.data {
		d := int64(v.data[i]) - int64(o.data[i])
		if d < 0 {
			d = -d
		}
		sum += d
		if float32(sum) > threshold {
			return float32(sum), nil
		}
	}
	return float32(sum), nil
}

// WriteText writes the elements as one comma-separated line.
func (v *ByteVector) WriteText(w io.Writer) error {
	return writeByteLine(w, v.data)
}

// WriteBinary writes the key followed by the length-prefixed payload.
func (v *ByteVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeByteArray(v.data)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *ByteVector) BinarySize() int {
	return keyBinarySize(v.key) + arrayBinarySize(len(v.data), 1)
}

// DataEquals reports payload equality with another ByteVector, keys ignored.
func (v *ByteVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*ByteVector)
	return ok && bytes.Equal(v.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *ByteVector) Clone() Descriptor {
	data := make([]byte, len(v.data))
	copy(data, v.data)
	c := &ByteVector{data: data}
	c.key = v.key
	return c
}

// CloneRandomlyModify returns a deep copy with up to changes elements redrawn
// uniformly from [min, max). Positions are chosen with replacement, so fewer
// than changes distinct elements may differ. The key is carried over.
func (v *ByteVector) CloneRandomlyModify(changes int, min, max byte) (*ByteVector, error) {
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	c := v.Clone().(*ByteVector)
	if len(c.data) == 0 || changes <= 0 {
		return c, nil
	}
	span := int(max) - int(min)
	for i := 0; i < changes; i++ {
		next := min
		if span > 0 {
			next += byte(rand.Intn(span))
		}
		c.data[rand.Intn(len(c.data))] = next
	}
	return c, nil
}

func parseByteVectorLine(line string) (Descriptor, error) {
	data, err := parseByteLine(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse byte vector: %w", err)
	}
	return &ByteVector{data: data}, nil
}

func readByteVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	data := br.readByteArray()
	if br.err != nil {
		return nil, br.err
	}
	if data == nil {
		return nil, errors.New("byte vector payload missing")
	}
	v := &ByteVector{data: data}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*ByteVector)(nil)
