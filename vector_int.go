package prism

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
)

// IntVector is a fixed-length vector of int32 elements compared with the L1
// (Manhattan) distance. The MPEG-7 scalable color descriptor (a Haar
// transform of a 256-bin histogram) is carried in this format.
type IntVector struct {
	keyedObject
	data []int32
}

// NewIntVector creates an IntVector over data. The vector takes ownership of
// the slice; callers must not modify it afterwards.
func NewIntVector(data []int32) (*IntVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	return &IntVector{data: data}, nil
}

// NewRandomIntVector creates an IntVector of dim elements drawn uniformly
// from [min, max), keyed by a fresh random locator. A degenerate range with
// max == min fills the vector with min.
func NewRandomIntVector(dim int, min, max int32) (*IntVector, error) {
	if dim < 0 {
		return nil, errors.New("dimension must be non-negative")
	}
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	data := make([]int32, dim)
	span := int64(max) - int64(min)
	for i := range data {
		data[i] = min
		if span > 0 {
			data[i] += int32(rand.Int63n(span))
		}
	}
	v := &IntVector{data: data}
	v.key = LocatorKey(NewRandomLocator())
	return v, nil
}

// TypeName returns TypeIntVector.
func (v *IntVector) TypeName() string {
	return TypeIntVector
}

// Data returns the underlying payload. Callers must not modify it.
func (v *IntVector) Data() []int32 {
	return v.data
}

// Dimensions returns the number of elements.
func (v *IntVector) Dimensions() int {
	return len(v.data)
}

// Distance computes the L1 distance to another IntVector. Accumulation stops
// as soon as the running sum exceeds the threshold.
func (v *IntVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*IntVector)
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
func (v *IntVector) WriteText(w io.Writer) error {
	return writeInt32Line(w, v.data)
}

// WriteBinary writes the key followed by the length-prefixed payload.
func (v *IntVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeInt32Array(v.data)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *IntVector) BinarySize() int {
	return keyBinarySize(v.key) + arrayBinarySize(len(v.data), 4)
}

// DataEquals reports payload equality with another IntVector, keys ignored.
func (v *IntVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*IntVector)
	return ok && slices.Equal(v.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *IntVector) Clone() Descriptor {
	data := make([]int32, len(v.data))
	copy(data, v.data)
	c := &IntVector{data: data}
	c.key = v.key
	return c
}

// CloneRandomlyModify returns a deep copy with up to changes elements redrawn
// uniformly from [min, max). The key is carried over.
func (v *IntVector) CloneRandomlyModify(changes int, min, max int32) (*IntVector, error) {
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	c := v.Clone().(*IntVector)
	if len(c.data) == 0 || changes <= 0 {
		return c, nil
	}
	span := int64(max) - int64(min)
	for i := 0; i < changes; i++ {
		next := min
		if span > 0 {
			next += int32(rand.Int63n(span))
		}
		c.data[rand.Intn(len(c.data))] = next
	}
	return c, nil
}

func parseIntVectorLine(line string) (Descriptor, error) {
	data, err := parseInt32Line(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse int vector: %w", err)
	}
	return &IntVector{data: data}, nil
}

func readIntVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	data := br.readInt32Array()
	if br.err != nil {
		return nil, br.err
	}
	if data == nil {
		return nil, errors.New("int vector payload missing")
	}
	v := &IntVector{data: data}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*IntVector)(nil)
