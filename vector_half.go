package prism

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/x448/float16"
)

// HalfVector stores a float vector as IEEE 754 half-precision bit patterns,
// halving the storage of FloatVector. Elements are widened to float32 for
// distance computation, which uses the same L2 kernel as FloatVector.
//
// The half-precision bits are the canonical payload: serialization preserves
// them exactly, so values survive a round trip bit for bit even though text
// output renders the widened float32 form.
type HalfVector struct {
	keyedObject
	bits []uint16
}

// NewHalfVector creates a HalfVector over raw half-precision bit patterns.
// The vector takes ownership of the slice.
func NewHalfVector(bits []uint16) (*HalfVector, error) {
	if bits == nil {
		return nil, errors.New("vector data must not be nil")
	}
	return &HalfVector{bits: bits}, nil
}

// NewHalfVectorFromFloats creates a HalfVector by rounding each float32 to
// the nearest representable half-precision value.
func NewHalfVectorFromFloats(data []float32) (*HalfVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	bits := make([]uint16, len(data))
	for i, v := range data {
		bits[i] = float16.Fromfloat32(v).Bits()
	}
	return &HalfVector{bits: bits}, nil
}

// TypeName returns TypeHalfVector.
func (v *HalfVector) TypeName() string {
	return TypeHalfVector
}

// Bits returns the underlying half-precision bit patterns. Callers must not
// modify the slice.
func (v *HalfVector) Bits() []uint16 {
	return v.bits
}

// Floats returns the elements widened to float32. The slice is freshly
// allocated on every call.
func (v *HalfVector) Floats() []float32 {
	out := make([]float32, len(v.bits))
	for i, b := range v.bits {
		out[i] = float16.Frombits(b).Float32()
	}
	return out
}

// Dimensions returns the number of elements.
func (v *HalfVector) Dimensions() int {
	return len(v.bits)
}

// Distance computes the L2 distance to another HalfVector over the widened
// float32 values, with the same squared-threshold early exit as FloatVector.
func (v *HalfVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*HalfVector)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.TypeName(), other.TypeName())
	}
	if len(v.bits) != len(o.bits) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v.bits), len(o.bits))
	}
	return l2Distance(v.Floats(), o.Floats(), threshold), nil
}

// WriteText writes the widened float32 elements as one comma-separated line.
// Half-precision values widen exactly, so parsing the line reproduces the
// original bit patterns.
func (v *HalfVector) WriteText(w io.Writer) error {
	return writeFloat32Line(w, v.Floats())
}

// WriteBinary writes the key followed by the length-prefixed raw bit
// patterns.
func (v *HalfVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeUint16Array(v.bits)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *HalfVector) BinarySize() int {
	return keyBinarySize(v.key) + arrayBinarySize(len(v.bits), 2)
}

// DataEquals reports bit-pattern equality with another HalfVector.
func (v *HalfVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*HalfVector)
	return ok && slices.Equal(v.bits, o.bits)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *HalfVector) Clone() Descriptor {
	bits := make([]uint16, len(v.bits))
	copy(bits, v.bits)
	c := &HalfVector{bits: bits}
	c.key = v.key
	return c
}

func parseHalfVectorLine(line string) (Descriptor, error) {
	data, err := parseFloat32Line(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse half vector: %w", err)
	}
	return NewHalfVectorFromFloats(data)
}

func readHalfVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	bits := br.readUint16Array()
	if br.err != nil {
		return nil, br.err
	}
	if bits == nil {
		return nil, errors.New("half vector payload missing")
	}
	v := &HalfVector{bits: bits}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*HalfVector)(nil)
