package prism

import (
	"errors"
	"fmt"
	"slices"
)

// SortedIntVector is an IntVector whose elements are kept in non-decreasing
// order, giving constant-time access to the minimum and maximum. The distance
// is the same element-wise L1 distance as IntVector; ordering is a storage
// property, not a distance change.
type SortedIntVector struct {
	IntVector
}

// NewSortedIntVector creates a SortedIntVector over data, sorting the slice
// in place. The vector takes ownership of the slice.
func NewSortedIntVector(data []int32) (*SortedIntVector, error) {
	if data == nil {
		return nil, errors.New("vector data must not be nil")
	}
	slices.Sort(data)
	v := &SortedIntVector{}
	v.data = data
	return v, nil
}

// NewRandomSortedIntVector creates a sorted vector of dim elements drawn
// uniformly from [min, max), keyed by a fresh random locator.
func NewRandomSortedIntVector(dim int, min, max int32) (*SortedIntVector, error) {
	base, err := NewRandomIntVector(dim, min, max)
	if err != nil {
		return nil, err
	}
	slices.Sort(base.data)
	v := &SortedIntVector{IntVector: *base}
	return v, nil
}

// TypeName returns TypeSortedIntVector.
func (v *SortedIntVector) TypeName() string {
	return TypeSortedIntVector
}

// Min returns the smallest element. The second result is false for an empty
// vector.
func (v *SortedIntVector) Min() (int32, bool) {
	if len(v.data) == 0 {
		return 0, false
	}
	return v.data[0], true
}

// Max returns the largest element. The second result is false for an empty
// vector.
func (v *SortedIntVector) Max() (int32, bool) {
	if len(v.data) == 0 {
		return 0, false
	}
	return v.data[len(v.data)-1], true
}

// Distance computes the element-wise L1 distance to another SortedIntVector.
func (v *SortedIntVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*SortedIntVector)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.TypeName(), other.TypeName())
	}
	return v.IntVector.Distance(&o.IntVector, threshold)
}

// DataEquals reports payload equality with another SortedIntVector.
func (v *SortedIntVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*SortedIntVector)
	return ok && slices.Equal(v.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (v *SortedIntVector) Clone() Descriptor {
	data := make([]int32, len(v.data))
	copy(data, v.data)
	c := &SortedIntVector{}
	c.data = data
	c.key = v.key
	return c
}

// CloneRandomlyModify returns a deep copy with up to changes elements redrawn
// uniformly from [min, max), re-sorted to restore the order invariant.
func (v *SortedIntVector) CloneRandomlyModify(changes int, min, max int32) (*SortedIntVector, error) {
	base, err := v.IntVector.CloneRandomlyModify(changes, min, max)
	if err != nil {
		return nil, err
	}
	slices.Sort(base.data)
	return &SortedIntVector{IntVector: *base}, nil
}

func parseSortedIntVectorLine(line string) (Descriptor, error) {
	data, err := parseInt32Line(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sorted int vector: %w", err)
	}
	return NewSortedIntVector(data)
}

func readSortedIntVectorBinary(br *binaryReader) (Descriptor, error) {
	d, err := readIntVectorBinary(br)
	if err != nil {
		return nil, err
	}
	base := d.(*IntVector)
	slices.Sort(base.data)
	return &SortedIntVector{IntVector: *base}, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*SortedIntVector)(nil)
