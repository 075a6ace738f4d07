package prism

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"slices"
)

// FloatVector is a fixed-length vector of float32 elements compared with the
// L2 (Euclidean) distance.
//
// Formula: sqrt(sum((a[i] - b[i])^2))
//
// Early termination compares the running squared sum against the squared
// threshold, so no square root is taken until the loop finishes.
type FloatVector struct {
	keyedObject
	data []float32
}

// NewFloatVector creates a FloatVector over data. The vector takes ownership
// of the slice; callers must not modify it afterwards.
func NewFloatVector(data []float32) (*FloatVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	return &FloatVector{data: data}, nil
}

// NewRandomFloatVector creates a FloatVector of dim elements drawn uniformly
// from [min, max), keyed by a fresh random locator.
func NewRandomFloatVector(dim int, min, max float32) (*FloatVector, error) {
	if dim < 0 {
		return nil, errors.New("dimension must be non-negative")
	}
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	data := make([]float32, dim)
	span := max - min
	for i := range data {
		data[i] = min + span*rand.Float32()
	}
	v := &FloatVector{data: data}
	v.key = LocatorKey(NewRandomLocator())
	return v, nil
}

// TypeName returns TypeFloatVector.
func (v *FloatVector) TypeName() string {
	return TypeFloatVector
}

// Data returns the underlying payload. Callers must not modify it.
func (v *FloatVector) Data() []float32 {
	return v.data
}

// Dimensions returns the number of elements.
func (v *FloatVector) Dimensions() int {
	return len(v.data)
}

// Distance computes the L2 distance to another FloatVector. Accumulation
// stops as soon as the running squared sum exceeds threshold².
func (v *FloatVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*FloatVector)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.TypeName(), other.TypeName())
	}
	if len(v.data) != len(o.data) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v.data), len(o.data))
	}
	return l2Distance(v.data, o.data, threshold), nil
}

// l2Distance is the shared Euclidean kernel with squared-threshold early
// exit. thresholdSq overflows to +Inf for MaxDistance, which disables the
// exit without a special case.
func l2Distance(a, b []float32, threshold float32) float32 {
	thresholdSq := threshold * threshold
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
		if sum > thresholdSq {
			return float32(math.Sqrt(float64(sum)))
		}
	}
	return float32(math.Sqrt(float64(sum)))
}

// WriteText writes the elements as one comma-separated line in the shortest
// exact float32 rendering.
func (v *FloatVector) WriteText(w io.Writer) error {
	return writeFloat32Line(w, v.data)
}

// WriteBinary writes the key followed by the length-prefixed payload.
func (v *FloatVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeFloat32Array(v.data)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *FloatVector) BinarySize() int {
	return keyBinarySize(v.key) + arrayBinarySize(len(v.data), 4)
}

// DataEquals reports payload equality with another FloatVector, keys ignored.
func (v *FloatVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*FloatVector)
	return ok && slices.Equal(v.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *FloatVector) Clone() Descriptor {
	data := make([]float32, len(v.data))
	copy(data, v.data)
	c := &FloatVector{data: data}
	c.key = v.key
	return c
}

// CloneRandomlyModify returns a deep copy with up to changes elements redrawn
// uniformly from [min, max). The key is carried over.
func (v *FloatVector) CloneRandomlyModify(changes int, min, max float32) (*FloatVector, error) {
	if max < min {
		return nil, errors.New("max must not be less than min")
	}
	c := v.Clone().(*FloatVector)
	if len(c.data) == 0 || changes <= 0 {
		return c, nil
	}
	span := max - min
	for i := 0; i < changes; i++ {
		c.data[rand.Intn(len(c.data))] = min + span*rand.Float32()
	}
	return c, nil
}

func parseFloatVectorLine(line string) (Descriptor, error) {
	data, err := parseFloat32Line(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse float vector: %w", err)
	}
	return &FloatVector{data: data}, nil
}

func readFloatVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	data := br.readFloat32Array()
	if br.err != nil {
		return nil, br.err
	}
	if data == nil {
		return nil, errors.New("float vector payload missing")
	}
	v := &FloatVector{data: data}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*FloatVector)(nil)
