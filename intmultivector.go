package prism

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ============================================================================
// INT MULTI-VECTOR
// ============================================================================
//
// IntMultiVector stores several layers of int32 item identifiers, each layer
// sorted in non-decreasing order. It is the carrier for sparse set-like
// features: keyword identifiers split by origin, territory codes, category
// labels. Duplicates are allowed and meaningful (multiset semantics).
//
// The layers are compared as one merged multiset: SortedIterator walks all
// layers in global sorted order, and the set distances (Jaccard, weighted
// Jaccard, cosine) are built on pairs of such iterators.

// IntMultiVector is a multi-layer sorted multiset of int32 identifiers.
type IntMultiVector struct {
	keyedObject
	layers [][]int32
}

// NewIntMultiVector creates a multi-vector over the given layers, sorting
// each layer in place. At least one layer is required and no layer may be
// nil (empty layers are fine). The multi-vector takes ownership of the
// slices.
func NewIntMultiVector(layers [][]int32) (*IntMultiVector, error) {
	if len(layers) == 0 {
		return nil, errors.New("multi-vector needs at least one layer")
	}
	for i, layer := range layers {
		if layer == nil {
			return nil, fmt.Errorf("multi-vector layer %d must not be nil", i)
		}
		slices.Sort(layer)
	}
	return &IntMultiVector{layers: layers}, nil
}

// TypeName returns TypeIntMultiVector.
func (v *IntMultiVector) TypeName() string {
	return TypeIntMultiVector
}

// LayerCount returns the number of layers.
func (v *IntMultiVector) LayerCount() int {
	return len(v.layers)
}

// Layer returns the i-th sorted layer. Callers must not modify the slice.
func (v *IntMultiVector) Layer(i int) []int32 {
	return v.layers[i]
}

// TotalLength returns the number of items summed over all layers.
func (v *IntMultiVector) TotalLength() int {
	n := 0
	for _, layer := range v.layers {
		n += len(layer)
	}
	return n
}

// Distance computes the unweighted Jaccard distance over the merged
// multisets. The result is bounded by 1, so the threshold is not used for
// early exit.
func (v *IntMultiVector) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*IntMultiVector)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.TypeName(), other.TypeName())
	}
	return JaccardDistance(v, o), nil
}

// WriteText writes one line of semicolon-separated layers, each layer a
// comma-separated identifier list.
func (v *IntMultiVector) WriteText(w io.Writer) error {
	var buf []byte
	for i, layer := range v.layers {
		if i > 0 {
			buf = append(buf, ';')
		}
		buf = appendInt32List(buf, layer)
	}
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// WriteBinary writes the key, the layer count, and each layer as a
// length-prefixed array.
func (v *IntMultiVector) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(v.key)
	bw.writeInt32(int32(len(v.layers)))
	for _, layer := range v.layers {
		bw.writeInt32Array(layer)
	}
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (v *IntMultiVector) BinarySize() int {
	n := keyBinarySize(v.key) + 4
	for _, layer := range v.layers {
		n += arrayBinarySize(len(layer), 4)
	}
	return n
}

// DataEquals reports layer-wise equality with another IntMultiVector.
func (v *IntMultiVector) DataEquals(other Descriptor) bool {
	o, ok := other.(*IntMultiVector)
	if !ok || len(v.layers) != len(o.layers) {
		return false
	}
	for i := range v.layers {
		if !slices.Equal(v.layers[i], o.layers[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing only the immutable key.
func (v *IntMultiVector) Clone() Descriptor {
	layers := make([][]int32, len(v.layers))
	for i, layer := range v.layers {
		layers[i] = make([]int32, len(layer))
		copy(layers[i], layer)
	}
	c := &IntMultiVector{layers: layers}
	c.key = v.key
	return c
}

func parseIntMultiVectorLine(line string) (Descriptor, error) {
	parts := strings.Split(line, ";")
	layers := make([][]int32, len(parts))
	for i, part := range parts {
		layer, err := parseInt32Line(part)
		if err != nil {
			return nil, fmt.Errorf("failed to parse multi-vector layer %d: %w", i, err)
		}
		layers[i] = layer
	}
	return NewIntMultiVector(layers)
}

func readIntMultiVectorBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	count := br.readCount()
	if br.err != nil {
		return nil, br.err
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid multi-vector layer count %d", count)
	}
	layers := make([][]int32, count)
	for i := range layers {
		layers[i] = br.readInt32Array()
		if br.err != nil {
			return nil, br.err
		}
		if layers[i] == nil {
			return nil, fmt.Errorf("multi-vector layer %d missing", i)
		}
	}
	v, err := NewIntMultiVector(layers)
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*IntMultiVector)(nil)

// ============================================================================
// SORTED ITERATOR
// ============================================================================

// SortedIterator walks all layers of an IntMultiVector as one merged
// non-decreasing sequence. After a successful Next (or Intersect), Value,
// Layer and Index describe the current item.
//
// The zero iterator is positioned before the first item.
type SortedIterator struct {
	v     *IntMultiVector
	pos   []int // per-layer cursor: next unconsumed index
	layer int
	idx   int
}

// NewSortedIterator returns an iterator positioned before the first item.
func NewSortedIterator(v *IntMultiVector) *SortedIterator {
	return &SortedIterator{v: v, pos: make([]int, len(v.layers)), layer: -1}
}

// nextLayer returns the layer holding the smallest unconsumed value, or -1
// when the iterator is exhausted. Ties resolve to the lowest layer.
func (it *SortedIterator) nextLayer() int {
	best := -1
	var bestVal int32
	for l, p := range it.pos {
		layer := it.v.layers[l]
		if p >= len(layer) {
			continue
		}
		if best == -1 || layer[p] < bestVal {
			best, bestVal = l, layer[p]
		}
	}
	return best
}

// Next advances to the next item in merged sorted order. It returns false
// when all layers are exhausted.
func (it *SortedIterator) Next() bool {
	l := it.nextLayer()
	if l == -1 {
		return false
	}
	it.layer, it.idx = l, it.pos[l]
	it.pos[l]++
	return true
}

// Value returns the current item. Valid only after Next or Intersect
// returned true.
func (it *SortedIterator) Value() int32 {
	return it.v.layers[it.layer][it.idx]
}

// Layer returns the layer index of the current item.
func (it *SortedIterator) Layer() int {
	return it.layer
}

// Index returns the position of the current item within its layer.
func (it *SortedIterator) Index() int {
	return it.idx
}

// SkipDuplicates consumes every remaining occurrence equal to the current
// value and returns the total occurrence count including the current item.
// The iterator is left on the last consumed occurrence.
func (it *SortedIterator) SkipDuplicates() int {
	n := 1
	cur := it.Value()
	for {
		l := it.nextLayer()
		if l == -1 || it.v.layers[l][it.pos[l]] != cur {
			return n
		}
		it.layer, it.idx = l, it.pos[l]
		it.pos[l]++
		n++
	}
}

// Intersect advances this iterator and other to their next pair of equal
// values. Each call first consumes the previous match, so repeated calls
// enumerate matching occurrence pairs: a value occurring m times here and n
// times in other yields min(m, n) matches.
func (it *SortedIterator) Intersect(other *SortedIterator) bool {
	if !it.Next() || !other.Next() {
		return false
	}
	for {
		a, b := it.Value(), other.Value()
		switch {
		case a == b:
			return true
		case a < b:
			if !it.Next() {
				return false
			}
		default:
			if !other.Next() {
				return false
			}
		}
	}
}
