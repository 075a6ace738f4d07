package prism

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
)

// ShortVector is a fixed-length vector of int16 elements compared with the L1
// (Manhattan) distance. The MPEG-7 color structure descriptor is carried in
// this format.
type ShortVector struct {
	keyedObject
	data []int16
}

// NewShortVector creates a ShortVector over data. The vector takes ownership
// of the slice; callers must not modify it afterwards.
func NewShortVector(data []int16) (*ShortVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	return &ShortVector{data: data}, nil
}

// NewRandomShortVector creates a ShortVector of dim elements drawn uniformly
// from [min, max), keyed by a fresh random locator. A degenerate range with
// max == min fills the vector with min.
func NewRandomShortVector(dim int, min, max int16) (*ShortVector, error) {
	if dim < 0 {
		return nil, errors.New("dimension must be non-negative")
	}
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	data := make([]int16, dim)
	span := int(max) - int(min)
	for i := range data {
		data[i] = min
		if span > 0 {
			data[i] += int16(rand.Intn(span))
		}
	}
	v := &ShortVector{data: data}
	v.key = LocatorKey(NewRandomLocator())
	return v, nil
}

// TypeName returns TypeShortVector.
func (v *ShortVector) TypeName() string {
	return TypeShortVector
}

// Data returns the underlying payload. Callers must not modify it.
func (v *ShortVector) Data() []int16 {
	return v.data
}

// Dimensions returns the number of elements.
func (v *ShortVector) Dimensions() int {
	return len(v.data)
}

// Distance computes the L1 distance to another ShortVector. Accumulation
// stops as soon as the running sum exceeds the threshold.
func (v *ShortVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*ShortVector)
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
func (v *ShortVector) WriteText(w io.Writer) error {
	return writeInt16Line(w, v.data)
}

// WriteBinary writes the key followed by the length-prefixed payload.
func (v *ShortVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeInt16Array(v.data)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *ShortVector) BinarySize() int {
	return keyBinarySize(v.key) + arrayBinarySize(len(v.data), 2)
}

// DataEquals reports payload equality with another ShortVector, keys ignored.
func (v *ShortVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*ShortVector)
	return ok && slices.Equal(v.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *ShortVector) Clone() Descriptor {
	data := make([]int16, len(v.data))
	copy(data, v.data)
	c := &ShortVector{data: data}
	c.key = v.key
	return c
}

// CloneRandomlyModify returns a deep copy with up to changes elements redrawn
// uniformly from [min, max). The key is carried over.
func (v *ShortVector) CloneRandomlyModify(changes int, min, max int16) (*ShortVector, error) {
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	c := v.Clone().(*ShortVector)
	if len(c.data) == 0 || changes <= 0 {
		return c, nil
	}
	span := int(max) - int(min)
	for i := 0; i < changes; i++ {
		next := min
		if span > 0 {
			next += int16(rand.Intn(span))
		}
		c.data[rand.Intn(len(c.data))] = next
	}
	return c, nil
}

func parseShortVectorLine(line string) (Descriptor, error) {
	data, err := parseInt16Line(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse short vector: %w", err)
	}
	return &ShortVector{data: data}, nil
}

func readShortVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	data := br.readInt16Array()
	if br.err != nil {
		return nil, br.err
	}
	if data == nil {
		return nil, errors.New("short vector payload missing")
	}
	v := &ShortVector{data: data}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*ShortVector)(nil)
