package prism

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ============================================================================
// COLOR LAYOUT DESCRIPTOR
// ============================================================================
//
// The MPEG-7 color layout descriptor captures the spatial color distribution
// of an image: the image is shrunk to an 8x8 grid, converted to YCbCr, and
// each channel is DCT-transformed and zigzag-scanned. The descriptor stores
// the first few quantized coefficients per channel, typically 6 luma (Y) and
// 3 per chroma channel (Cb, Cr).
//
// The distance sums, per channel, the square root of a weighted squared
// coefficient difference. Low-frequency coefficients matter more and carry
// higher weights; coefficients beyond the weight tables count with weight 1.
// Operands may store different coefficient counts; each channel compares only
// the shared prefix.

// Per-coefficient weights of the reference matching method.
var (
	colorLayoutWeightY  = [...]int32{2, 2, 2, 1, 1, 1}
	colorLayoutWeightCb = [...]int32{2, 1, 1}
	colorLayoutWeightCr = [...]int32{4, 2, 2}
)

// ColorLayout is the MPEG-7 color layout descriptor: zigzag-scanned DCT
// coefficients of the Y, Cb and Cr channels.
type ColorLayout struct {
	keyedObject
	y  []byte
	cb []byte
	cr []byte
}

// NewColorLayout creates a ColorLayout from per-channel coefficient arrays.
// The descriptor takes ownership of the slices. All three must be non-nil;
// the usual shape is 6 Y, 3 Cb and 3 Cr coefficients but other counts are
// accepted.
func NewColorLayout(y, cb, cr []byte) (*ColorLayout, error) {
	if y == nil || cb == nil || cr == nil {
		return nil, errors.New("color layout channels must not be nil")
	}
	return &ColorLayout{y: y, cb: cb, cr: cr}, nil
}

// TypeName returns TypeColorLayout.
func (d *ColorLayout) TypeName() string {
	return TypeColorLayout
}

// YCoeff returns the luma coefficients. Callers must not modify the slice.
func (d *ColorLayout) YCoeff() []byte { return d.y }

// CbCoeff returns the blue chroma coefficients. Callers must not modify the
// slice.
func (d *ColorLayout) CbCoeff() []byte { return d.cb }

// CrCoeff returns the red chroma coefficients. Callers must not modify the
// slice.
func (d *ColorLayout) CrCoeff() []byte { return d.cr }

// channelDistance is the per-channel kernel: the square root of the weighted
// squared difference over the shared coefficient prefix.
func channelDistance(a, b []byte, weights []int32) float32 {
	n := min(len(a), len(b))
	var sum int64
	for i := 0; i < n; i++ {
		diff := int64(a[i]) - int64(b[i])
		w := int64(1)
		if i < len(weights) {
			w = int64(weights[i])
		}
		sum += w * diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

// Distance computes the color layout distance: the sum of the three
// per-channel weighted distances. The running sum is checked against the
// threshold between channels.
func (d *ColorLayout) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*ColorLayout)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	sum := channelDistance(d.y, o.y, colorLayoutWeightY[:])
	if sum > threshold {
		return sum, nil
	}
	sum += channelDistance(d.cb, o.cb, colorLayoutWeightCb[:])
	if sum > threshold {
		return sum, nil
	}
	sum += channelDistance(d.cr, o.cr, colorLayoutWeightCr[:])
	return sum, nil
}

// WriteText writes one line of three semicolon-separated channels, each a
// comma-separated coefficient list: "y,...;cb,...;cr,...".
func (d *ColorLayout) WriteText(w io.Writer) error {
	var buf []byte
	buf = appendByteList(buf, d.y)
	buf = append(buf, ';')
	buf = appendByteList(buf, d.cb)
	buf = append(buf, ';')
	buf = appendByteList(buf, d.cr)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// WriteBinary writes the key followed by the three length-prefixed channels.
func (d *ColorLayout) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeByteArray(d.y)
	bw.writeByteArray(d.cb)
	bw.writeByteArray(d.cr)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *ColorLayout) BinarySize() int {
	return keyBinarySize(d.key) +
		arrayBinarySize(len(d.y), 1) +
		arrayBinarySize(len(d.cb), 1) +
		arrayBinarySize(len(d.cr), 1)
}

// DataEquals reports per-channel equality with another ColorLayout.
func (d *ColorLayout) DataEquals(other Descriptor) bool {
	o, ok := other.(*ColorLayout)
	return ok && bytes.Equal(d.y, o.y) && bytes.Equal(d.cb, o.cb) && bytes.Equal(d.cr, o.cr)
}

// Clone returns a deep copy sharing only the immutable key.
func (d *ColorLayout) Clone() Descriptor {
	y := make([]byte, len(d.y))
	copy(y, d.y)
	cb := make([]byte, len(d.cb))
	copy(cb, d.cb)
	cr := make([]byte, len(d.cr))
	copy(cr, d.cr)
	c := &ColorLayout{y: y, cb: cb, cr: cr}
	c.key = d.key
	return c
}

func parseColorLayoutLine(line string) (Descriptor, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("color layout needs 3 channels, got %d", len(parts))
	}
	y, err := parseByteLine(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse Y channel: %w", err)
	}
	cb, err := parseByteLine(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cb channel: %w", err)
	}
	cr, err := parseByteLine(parts[2])
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cr channel: %w", err)
	}
	return &ColorLayout{y: y, cb: cb, cr: cr}, nil
}

func readColorLayoutBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	y := br.readByteArray()
	cb := br.readByteArray()
	cr := br.readByteArray()
	if br.err != nil {
		return nil, br.err
	}
	if y == nil || cb == nil || cr == nil {
		return nil, errors.New("color layout channel missing")
	}
	d := &ColorLayout{y: y, cb: cb, cr: cr}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*ColorLayout)(nil)
