package prism

// ============================================================================
// SET DISTANCES
// ============================================================================
//
// The distances below operate on pairs of IntMultiVector operands via merged
// sorted iterators, so every variant runs in a single linear pass over both
// operands, without hashing or allocation.
//
// All three are bounded (by 1 for Jaccard, by 2 for cosine in the degenerate
// negative-weight case), so none of them implements threshold early exit.

// JaccardDistance returns the multiset Jaccard distance of the merged layers:
//
//	1 - |A ∩ B| / |A ∪ B|
//
// where intersection and union respect duplicate multiplicities. Two empty
// operands are identical (distance 0); an empty operand against a non-empty
// one is maximally distant (distance 1).
func JaccardDistance(a, b *IntMultiVector) float32 {
	na, nb := a.TotalLength(), b.TotalLength()
	if na == 0 && nb == 0 {
		return 0
	}
	if na == 0 || nb == 0 {
		return 1
	}
	inter := 0
	ita, itb := NewSortedIterator(a), NewSortedIterator(b)
	for ita.Intersect(itb) {
		inter++
	}
	return 1 - float32(inter)/float32(na+nb-inter)
}

// WeightedJaccardDistance generalizes JaccardDistance with per-item weights,
// one provider per operand. Each matched occurrence pair contributes the mean
// of its two weights to the intersection mass; the union mass is the total
// weight of both operands minus the intersection:
//
//	inter = sum over matches of (wa(item) + wb(item)) / 2
//	union = wa(A) + wb(B) - inter
//	d     = 1 - inter/union
//
// With all weights 1 this reduces exactly to JaccardDistance. Operands whose
// total weight is zero are treated like empty sets: 0 against another zero
// weight operand, 1 otherwise. The result is clamped to [0, 1] to absorb
// floating point drift.
func WeightedJaccardDistance(a, b *IntMultiVector, wa, wb WeightProvider) float32 {
	sumA := float64(wa.WeightSum(a))
	sumB := float64(wb.WeightSum(b))
	if sumA == 0 && sumB == 0 {
		return 0
	}
	if sumA <= 0 || sumB <= 0 {
		return 1
	}

	var inter float64
	ita, itb := NewSortedIterator(a), NewSortedIterator(b)
	for ita.Intersect(itb) {
		inter += (float64(wa.Weight(ita)) + float64(wb.Weight(itb))) / 2
	}

	union := sumA + sumB - inter
	if union <= 0 {
		return 0
	}
	d := 1 - inter/union
	if d < 0 {
		d = 0
	} else if d > 1 {
		d = 1
	}
	return float32(d)
}

// CosineDistance returns 1 minus the cosine similarity of the weighted item
// vectors:
//
//	1 - dot(a, b) / (norm(a) * norm(b))
//
// The dot product sums weight products over distinct matching identifiers
// (duplicates are skipped, since the provider weights are per identifier).
// Operands with zero norm are treated like empty sets: 0 against another
// zero-norm operand, 1 otherwise. The similarity is clamped to [-1, 1] before
// conversion to absorb floating point drift.
func CosineDistance(a, b *IntMultiVector, wa, wb NormProvider) float32 {
	na := float64(wa.Norm(a))
	nb := float64(wb.Norm(b))
	if na == 0 || nb == 0 {
		if na == nb {
			return 0
		}
		return 1
	}

	var dot float64
	ita, itb := NewSortedIterator(a), NewSortedIterator(b)
	for ita.Intersect(itb) {
		dot += float64(wa.Weight(ita)) * float64(wb.Weight(itb))
		ita.SkipDuplicates()
		itb.SkipDuplicates()
	}

	sim := dot / (na * nb)
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return float32(1 - sim)
}
