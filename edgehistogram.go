package prism

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ============================================================================
// EDGE HISTOGRAM DESCRIPTOR
// ============================================================================
//
// The MPEG-7 edge histogram descriptor divides an image into a 4x4 grid and
// counts five edge types (vertical, horizontal, 45 degree, 135 degree,
// non-directional) per cell, quantizing each of the 80 resulting bins to a
// 3-bit level. Only those 80 levels are stored and serialized.
//
// Matching uses more than the stored bins. Each histogram is expanded to 150
// dequantized values: 5 global bins (whole-image totals), the 80 local bins,
// and 65 semi-global bins formed by pooling rows, columns, 2x2 quadrants and
// the center of the grid. The distance is the plain L1 distance over the
// expanded arrays, which weights a single-bin difference by every group the
// bin participates in.

// edgeHistogramBins is the stored histogram length: 16 cells x 5 edge types.
const edgeHistogramBins = 80

// edgeHistogramExpanded is the length of the derived matching array.
const edgeHistogramExpanded = 150

// edgeHistogramQuantTable maps a 3-bit quantization level to the bin value it
// represents, one row per edge type. The rows are the reference decision
// tables of the MPEG-7 experimentation model.
var edgeHistogramQuantTable = [5][8]float32{
	{0.010867, 0.057915, 0.099526, 0.144849, 0.195573, 0.260504, 0.358031, 0.530128},
	{0.012266, 0.069934, 0.125879, 0.182307, 0.243396, 0.314563, 0.411728, 0.564319},
	{0.004193, 0.025852, 0.046860, 0.068519, 0.093286, 0.123490, 0.161505, 0.228960},
	{0.004174, 0.025924, 0.046232, 0.067163, 0.089655, 0.115391, 0.151904, 0.217745},
	{0.006778, 0.051667, 0.108650, 0.166257, 0.224226, 0.285691, 0.356375, 0.450972},
}

// EdgeHistogram is the MPEG-7 edge histogram descriptor: 80 quantized bins
// with a multi-resolution L1 distance over the 150-value expansion.
type EdgeHistogram struct {
	keyedObject
	bins []byte

	// expanded is derived from bins at construction and never serialized.
	expanded [edgeHistogramExpanded]float32
}

// NewEdgeHistogram creates an EdgeHistogram from exactly 80 quantization
// levels in the range [0, 7]. The descriptor takes ownership of the slice.
func NewEdgeHistogram(bins []byte) (*EdgeHistogram, error) {
	if len(bins) != edgeHistogramBins {
		return nil, fmt.Errorf("edge histogram needs %d bins, got %d", edgeHistogramBins, len(bins))
	}
	for i, b := range bins {
		if b > 7 {
			return nil, fmt.Errorf("edge histogram bin %d out of range: %d", i, b)
		}
	}
	d := &EdgeHistogram{bins: bins}
	d.expand()
	return d, nil
}

// expand dequantizes the 80 local bins and derives the global and
// semi-global pools.
//
// Layout of the expanded array:
//
//	[0, 5)     global bins, one per edge type, scaled by 5/16
//	[5, 85)    local bins, dequantized
//	[85, 105)  column pools (4 columns x 5 edge types), averaged
//	[105, 125) row pools (4 rows x 5 edge types), averaged
//	[125, 135) upper quadrant pools (2 quadrants x 5 edge types), averaged
//	[135, 145) lower quadrant pools (2 quadrants x 5 edge types), averaged
//	[145, 150) center pool (cells 5, 6, 9, 10), averaged
func (d *EdgeHistogram) expand() {
	h := &d.expanded

	for i, b := range d.bins {
		h[5+i] = edgeHistogramQuantTable[i%5][b]
	}

	for i := 0; i < 5; i++ {
		var sum float32
		for j := 0; j < edgeHistogramBins; j += 5 {
			sum += h[5+i+j]
		}
		h[i] = sum * 5 / 16
	}

	for i := 85; i < 105; i++ {
		j := i - 85
		h[i] = (h[5+j] + h[5+j+20] + h[5+j+40] + h[5+j+60]) / 4
	}
	for i := 105; i < 125; i++ {
		j := i - 105
		base := 5 + 20*(j/5) + j%5
		h[i] = (h[base] + h[base+5] + h[base+10] + h[base+15]) / 4
	}
	for i := 125; i < 135; i++ {
		j := i - 125
		base := 5 + 10*(j/5) + j%5
		h[i] = (h[base] + h[base+5] + h[base+20] + h[base+25]) / 4
	}
	for i := 135; i < 145; i++ {
		j := i - 135
		base := 5 + 10*(j/5) + j%5
		h[i] = (h[base+40] + h[base+45] + h[base+60] + h[base+65]) / 4
	}
	for i := 145; i < 150; i++ {
		j := i - 145
		h[i] = (h[5+25+j] + h[5+30+j] + h[5+45+j] + h[5+50+j]) / 4
	}
}

// TypeName returns TypeEdgeHistogram.
func (d *EdgeHistogram) TypeName() string {
	return TypeEdgeHistogram
}

// Bins returns the stored quantization levels. Callers must not modify the
// slice.
func (d *EdgeHistogram) Bins() []byte {
	return d.bins
}

// Distance computes the L1 distance between the 150-value expansions.
// Accumulation stops as soon as the running sum exceeds the threshold.
func (d *EdgeHistogram) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*EdgeHistogram)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	var sum float32
	for i := range d.expanded {
		diff := d.expanded[i] - o.expanded[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
		if sum > threshold {
			return sum, nil
		}
	}
	return sum, nil
}

// WriteText writes the 80 bin levels as one comma-separated line.
func (d *EdgeHistogram) WriteText(w io.Writer) error {
	return writeByteLine(w, d.bins)
}

// WriteBinary writes the key followed by the length-prefixed bin levels. The
// expansion is recomputed on read.
func (d *EdgeHistogram) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeByteArray(d.bins)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *EdgeHistogram) BinarySize() int {
	return keyBinarySize(d.key) + arrayBinarySize(len(d.bins), 1)
}

// DataEquals reports bin equality with another EdgeHistogram, keys ignored.
func (d *EdgeHistogram) DataEquals(other Descriptor) bool {
	o, ok := other.(*EdgeHistogram)
	return ok && bytes.Equal(d.bins, o.bins)
}

// Clone returns a deep copy sharing only the immutable key.
func (d *EdgeHistogram) Clone() Descriptor {
	bins := make([]byte, len(d.bins))
	copy(bins, d.bins)
	c := &EdgeHistogram{bins: bins, expanded: d.expanded}
	c.key = d.key
	return c
}

func parseEdgeHistogramLine(line string) (Descriptor, error) {
	bins, err := parseByteLine(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge histogram: %w", err)
	}
	return NewEdgeHistogram(bins)
}

func readEdgeHistogramBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	bins := br.readByteArray()
	if br.err != nil {
		return nil, br.err
	}
	if bins == nil {
		return nil, errors.New("edge histogram payload missing")
	}
	d, err := NewEdgeHistogram(bins)
	if err != nil {
		return nil, err
	}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*EdgeHistogram)(nil)
