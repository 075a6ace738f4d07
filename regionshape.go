package prism

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ============================================================================
// REGION SHAPE DESCRIPTOR
// ============================================================================
//
// The MPEG-7 region shape descriptor characterizes the pixel distribution of
// a (possibly disconnected) object region by 35 angular radial transform
// coefficients, each quantized to a 4-bit index. The distance dequantizes
// both operands through the reference inverse quantization table and sums
// absolute differences.

// regionShapeSize is the fixed coefficient count: 12 angular x 3 radial
// functions, the DC term excluded.
const regionShapeSize = 35

// regionShapeIQuantTable maps a 4-bit quantization index to the magnitude it
// represents, per the MPEG-7 experimentation model.
var regionShapeIQuantTable = [16]float32{
	0.001763817, 0.005468893, 0.009438835, 0.013714449,
	0.018346760, 0.023400748, 0.028960940, 0.035140141,
	0.042093649, 0.050043696, 0.059324478, 0.070472849,
	0.084434761, 0.103127662, 0.131506859, 0.192540857,
}

// RegionShape is the MPEG-7 region shape descriptor: 35 quantized ART
// coefficient magnitudes with a dequantized L1 distance.
type RegionShape struct {
	keyedObject
	coeffs []byte
}

// NewRegionShape creates a RegionShape from exactly 35 quantization indices
// in the range [0, 15]. The descriptor takes ownership of the slice.
func NewRegionShape(coeffs []byte) (*RegionShape, error) {
	if len(coeffs) != regionShapeSize {
		return nil, fmt.Errorf("region shape needs %d coefficients, got %d", regionShapeSize, len(coeffs))
	}
	for i, c := range coeffs {
		if c > 15 {
			return nil, fmt.Errorf("region shape coefficient %d out of range: %d", i, c)
		}
	}
	return &RegionShape{coeffs: coeffs}, nil
}

// TypeName returns TypeRegionShape.
func (d *RegionShape) TypeName() string {
	return TypeRegionShape
}

// Coefficients returns the stored quantization indices. Callers must not
// modify the slice.
func (d *RegionShape) Coefficients() []byte {
	return d.coeffs
}

// Distance computes the L1 distance between the dequantized coefficient
// magnitudes. Accumulation stops as soon as the running sum exceeds the
// threshold.
func (d *RegionShape) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*RegionShape)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	var sum float32
	for i := range d.coeffs {
		diff := regionShapeIQuantTable[d.coeffs[i]] - regionShapeIQuantTable[o.coeffs[i]]
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

// WriteText writes the 35 indices as one comma-separated line.
func (d *RegionShape) WriteText(w io.Writer) error {
	return writeByteLine(w, d.coeffs)
}

// WriteBinary writes the key followed by the length-prefixed indices.
func (d *RegionShape) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeByteArray(d.coeffs)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *RegionShape) BinarySize() int {
	return keyBinarySize(d.key) + arrayBinarySize(len(d.coeffs), 1)
}

// DataEquals reports coefficient equality with another RegionShape.
func (d *RegionShape) DataEquals(other Descriptor) bool {
	o, ok := other.(*RegionShape)
	return ok && bytes.Equal(d.coeffs, o.coeffs)
}

// Clone returns a deep copy sharing only the immutable key.
func (d *RegionShape) Clone() Descriptor {
	coeffs := make([]byte, len(d.coeffs))
	copy(coeffs, d.coeffs)
	c := &RegionShape{coeffs: coeffs}
	c.key = d.key
	return c
}

func parseRegionShapeLine(line string) (Descriptor, error) {
	coeffs, err := parseByteLine(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse region shape: %w", err)
	}
	return NewRegionShape(coeffs)
}

func readRegionShapeBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	coeffs := br.readByteArray()
	if br.err != nil {
		return nil, br.err
	}
	if coeffs == nil {
		return nil, errors.New("region shape payload missing")
	}
	d, err := NewRegionShape(coeffs)
	if err != nil {
		return nil, err
	}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*RegionShape)(nil)
