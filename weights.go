package prism

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/floats"
)

// ============================================================================
// WEIGHT PROVIDERS
// ============================================================================
//
// Weighted set distances factor the weighting policy out of the distance
// kernels. A WeightProvider answers two questions about one operand: the
// weight of the item a SortedIterator currently points at, and the total
// weight of a whole multi-vector. Each operand of a distance brings its own
// provider, so asymmetric weighting (query-side boosts, document-side tf-idf)
// needs no special casing.

// WeightProvider assigns weights to the items of an IntMultiVector.
type WeightProvider interface {
	// Weight returns the weight of the item it currently points at. The
	// iterator exposes the item's value, layer and in-layer position, so
	// providers may weight by identity or by occurrence.
	Weight(it *SortedIterator) float32

	// WeightSum returns the total weight assigned to all items of v.
	WeightSum(v *IntMultiVector) float32
}

// NormProvider extends WeightProvider with the L2 norm of the weighted item
// vector, as needed by CosineDistance.
type NormProvider interface {
	WeightProvider

	// Norm returns sqrt(sum of squared item weights) over v.
	Norm(v *IntMultiVector) float32
}

// ----------------------------------------------------------------------------
// LayerWeights
// ----------------------------------------------------------------------------

// LayerWeights weights every item of a layer equally. It is the classic
// origin weighting for keyword sets: title words count more than body words.
// Layers beyond the configured weights get weight 1.
type LayerWeights struct {
	weights []float32
}

// NewLayerWeights creates a per-layer weighting, first layer first.
func NewLayerWeights(weights ...float32) *LayerWeights {
	return &LayerWeights{weights: weights}
}

func (p *LayerWeights) layerWeight(l int) float32 {
	if l < len(p.weights) {
		return p.weights[l]
	}
	return 1
}

// Weight returns the weight of the current item's layer.
func (p *LayerWeights) Weight(it *SortedIterator) float32 {
	return p.layerWeight(it.Layer())
}

// WeightSum returns the weighted total item count of v.
func (p *LayerWeights) WeightSum(v *IntMultiVector) float32 {
	var sum float64
	for l := 0; l < v.LayerCount(); l++ {
		sum += float64(p.layerWeight(l)) * float64(len(v.Layer(l)))
	}
	return float32(sum)
}

// ----------------------------------------------------------------------------
// ItemWeights
// ----------------------------------------------------------------------------

// ItemWeights carries one explicit weight per stored occurrence, shaped
// exactly like the layers of the multi-vector it was built for. Use it when
// weights arrive precomputed alongside the identifiers (tf-idf dumps).
type ItemWeights struct {
	weights [][]float64
}

// NewItemWeights creates an occurrence-level weighting for v. The weights
// must mirror v's layer shape.
func NewItemWeights(v *IntMultiVector, weights [][]float64) (*ItemWeights, error) {
	if len(weights) != v.LayerCount() {
		return nil, fmt.Errorf("weights have %d layers, vector has %d", len(weights), v.LayerCount())
	}
	for l, row := range weights {
		if len(row) != len(v.Layer(l)) {
			return nil, fmt.Errorf("weight layer %d has %d entries, vector layer has %d", l, len(row), len(v.Layer(l)))
		}
	}
	return &ItemWeights{weights: weights}, nil
}

// Weight returns the weight stored for the current occurrence.
func (p *ItemWeights) Weight(it *SortedIterator) float32 {
	return float32(p.weights[it.Layer()][it.Index()])
}

// WeightSum returns the sum of all stored weights.
func (p *ItemWeights) WeightSum(v *IntMultiVector) float32 {
	var sum float64
	for _, row := range p.weights {
		sum += floats.Sum(row)
	}
	return float32(sum)
}

// Norm returns the L2 norm of all stored weights.
func (p *ItemWeights) Norm(v *IntMultiVector) float32 {
	var sq float64
	for _, row := range p.weights {
		n := floats.Norm(row, 2)
		sq += n * n
	}
	return float32(math.Sqrt(sq))
}

// ----------------------------------------------------------------------------
// MapWeights
// ----------------------------------------------------------------------------

// MapWeights weights items by identifier through a lookup table, with a
// default for identifiers missing from the table. This is the natural shape
// for corpus-level statistics (idf tables).
type MapWeights struct {
	weights       map[int32]float64
	defaultWeight float64
}

// NewMapWeights creates an identifier-keyed weighting. The map is used as
// given; callers must not modify it afterwards.
func NewMapWeights(weights map[int32]float64, defaultWeight float64) *MapWeights {
	return &MapWeights{weights: weights, defaultWeight: defaultWeight}
}

func (p *MapWeights) weightOf(id int32) float64 {
	if w, ok := p.weights[id]; ok {
		return w
	}
	return p.defaultWeight
}

// Weight returns the table weight of the current item's identifier.
func (p *MapWeights) Weight(it *SortedIterator) float32 {
	return float32(p.weightOf(it.Value()))
}

// WeightSum returns the total table weight over all items of v.
func (p *MapWeights) WeightSum(v *IntMultiVector) float32 {
	var sum float64
	for l := 0; l < v.LayerCount(); l++ {
		for _, id := range v.Layer(l) {
			sum += p.weightOf(id)
		}
	}
	return float32(sum)
}

// Norm returns the L2 norm of the table weights over all items of v.
func (p *MapWeights) Norm(v *IntMultiVector) float32 {
	var sq float64
	for l := 0; l < v.LayerCount(); l++ {
		for _, id := range v.Layer(l) {
			w := p.weightOf(id)
			sq += w * w
		}
	}
	return float32(math.Sqrt(sq))
}

// ----------------------------------------------------------------------------
// IgnoreWeights
// ----------------------------------------------------------------------------

// IgnoreWeights wraps another provider and overrides the weight of a fixed
// identifier set, typically with 0 to drop stopwords or banned identifiers
// from a distance without rewriting the stored vectors.
type IgnoreWeights struct {
	base          WeightProvider
	ignored       *roaring.Bitmap
	ignoredWeight float32
}

// NewIgnoreWeights creates an overriding provider. Identifiers listed in
// ignoredIDs weigh ignoredWeight; everything else delegates to base.
// Negative identifiers cannot be ignored and are rejected.
func NewIgnoreWeights(base WeightProvider, ignoredIDs []int32, ignoredWeight float32) (*IgnoreWeights, error) {
	if base == nil {
		return nil, errors.New("base weight provider must not be nil")
	}
	bm := roaring.New()
	for _, id := range ignoredIDs {
		if id < 0 {
			return nil, fmt.Errorf("cannot ignore negative identifier %d", id)
		}
		bm.Add(uint32(id))
	}
	return &IgnoreWeights{base: base, ignored: bm, ignoredWeight: ignoredWeight}, nil
}

// Weight returns ignoredWeight for ignored identifiers and the base weight
// otherwise.
func (p *IgnoreWeights) Weight(it *SortedIterator) float32 {
	if id := it.Value(); id >= 0 && p.ignored.Contains(uint32(id)) {
		return p.ignoredWeight
	}
	return p.base.Weight(it)
}

// WeightSum walks v item by item so the overrides are reflected in the
// total.
func (p *IgnoreWeights) WeightSum(v *IntMultiVector) float32 {
	var sum float64
	it := NewSortedIterator(v)
	for it.Next() {
		sum += float64(p.Weight(it))
	}
	return float32(sum)
}

// Verify interface compliance at compile time.
var (
	_ WeightProvider = (*LayerWeights)(nil)
	_ NormProvider   = (*ItemWeights)(nil)
	_ NormProvider   = (*MapWeights)(nil)
	_ WeightProvider = (*IgnoreWeights)(nil)
)
