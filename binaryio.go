package prism

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ============================================================================
// BINARY SERIALIZATION PRIMITIVES
// ============================================================================
//
// All binary serializations in this package share one set of conventions:
//
//   - Little-endian byte order throughout.
//   - Variable-length collections are prefixed by an int32 element count.
//   - A nil collection is encoded as count -1; an empty one as count 0.
//     The distinction survives a round trip.
//   - Strings are int32 byte length plus raw bytes (never nil).
//
// binaryWriter and binaryReader implement these conventions with a sticky
// error: after the first failure every subsequent call is a no-op, so
// serialization code reads as a straight-line sequence of writes followed by
// a single error check.

// maxBinaryElements bounds collection counts read from untrusted buffers so a
// corrupt length prefix cannot trigger a huge allocation.
const maxBinaryElements = 1 << 28

type binaryWriter struct {
	w   io.Writer
	n   int64
	err error
}

func newBinaryWriter(w io.Writer) *binaryWriter {
	return &binaryWriter{w: w}
}

// finish returns the total bytes written and the first error encountered.
func (bw *binaryWriter) finish() (int64, error) {
	return bw.n, bw.err
}

// fail records err as the sticky error if none is set yet.
func (bw *binaryWriter) fail(err error) {
	if bw.err == nil {
		bw.err = err
	}
}

func (bw *binaryWriter) writeRaw(b []byte) {
	if bw.err != nil {
		return
	}
	n, err := bw.w.Write(b)
	bw.n += int64(n)
	bw.err = err
}

func (bw *binaryWriter) writeInt8(v int8) {
	bw.writeRaw([]byte{byte(v)})
}

func (bw *binaryWriter) writeUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.writeRaw(b[:])
}

func (bw *binaryWriter) writeInt32(v int32) {
	bw.writeUint32(uint32(v))
}

func (bw *binaryWriter) writeFloat32(v float32) {
	bw.writeUint32(math.Float32bits(v))
}

// writeString writes an int32 byte length followed by the raw bytes.
func (bw *binaryWriter) writeString(s string) {
	bw.writeInt32(int32(len(s)))
	bw.writeRaw([]byte(s))
}

// writeByteArray writes an int32 count followed by the raw bytes. A nil slice
// writes the -1 sentinel and nothing else.
func (bw *binaryWriter) writeByteArray(v []byte) {
	if v == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(len(v)))
	bw.writeRaw(v)
}

func (bw *binaryWriter) writeInt16Array(v []int16) {
	if v == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(len(v)))
	bw.writeSlice(v, 2*len(v))
}

func (bw *binaryWriter) writeInt32Array(v []int32) {
	if v == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(len(v)))
	bw.writeSlice(v, 4*len(v))
}

func (bw *binaryWriter) writeUint16Array(v []uint16) {
	if v == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(len(v)))
	bw.writeSlice(v, 2*len(v))
}

func (bw *binaryWriter) writeFloat32Array(v []float32) {
	if v == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(len(v)))
	bw.writeSlice(v, 4*len(v))
}

// writeSlice delegates to binary.Write for fixed-size element slices. size is
// the encoded byte size, credited only on success.
func (bw *binaryWriter) writeSlice(data any, size int) {
	if bw.err != nil || size == 0 {
		return
	}
	if err := binary.Write(bw.w, binary.LittleEndian, data); err != nil {
		bw.err = err
		return
	}
	bw.n += int64(size)
}

// writeMember writes a nested descriptor prefixed by its body size in bytes,
// or the -1 sentinel for a nil member. The size prefix lets readers skip
// members they do not understand.
func (bw *binaryWriter) writeMember(d Descriptor) {
	if bw.err != nil {
		return
	}
	if d == nil {
		bw.writeInt32(-1)
		return
	}
	bw.writeInt32(int32(d.BinarySize()))
	n, err := d.WriteBinary(bw.w)
	bw.n += n
	if err != nil {
		bw.err = err
	}
}

// memberBinarySize returns the serialized size of a nested descriptor slot,
// size prefix included.
func memberBinarySize(d Descriptor) int {
	if d == nil {
		return 4
	}
	return 4 + d.BinarySize()
}

func stringBinarySize(s string) int {
	return 4 + len(s)
}

// arrayBinarySize returns the serialized size of a collection of n elements
// of elemSize bytes each. It covers the nil case too: the sentinel count of a
// nil slice occupies the same four bytes as a zero count.
func arrayBinarySize(n, elemSize int) int {
	return 4 + n*elemSize
}

// ============================================================================
// BINARY DESERIALIZATION PRIMITIVES
// ============================================================================

type binaryReader struct {
	r   io.Reader
	n   int64
	err error
}

func newBinaryReader(r io.Reader) *binaryReader {
	return &binaryReader{r: r}
}

// fail records err as the sticky error if none is set yet.
func (br *binaryReader) fail(err error) {
	if br.err == nil {
		br.err = err
	}
}

func (br *binaryReader) readRaw(b []byte) {
	if br.err != nil {
		return
	}
	n, err := io.ReadFull(br.r, b)
	br.n += int64(n)
	br.err = err
}

func (br *binaryReader) readInt8() int8 {
	var b [1]byte
	br.readRaw(b[:])
	return int8(b[0])
}

func (br *binaryReader) readUint32() uint32 {
	var b [4]byte
	br.readRaw(b[:])
	if br.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (br *binaryReader) readInt32() int32 {
	return int32(br.readUint32())
}

func (br *binaryReader) readFloat32() float32 {
	return math.Float32frombits(br.readUint32())
}

// readCount reads and validates a collection count prefix. It returns -1 for
// the nil sentinel (and on any sticky error).
func (br *binaryReader) readCount() int {
	n := br.readInt32()
	if br.err != nil {
		return -1
	}
	if n < -1 || n > maxBinaryElements {
		br.fail(fmt.Errorf("invalid collection count %d", n))
		return -1
	}
	return int(n)
}

func (br *binaryReader) readString() string {
	n := br.readCount()
	if br.err != nil || n <= 0 {
		if n < 0 && br.err == nil {
			br.fail(fmt.Errorf("invalid string length %d", n))
		}
		return ""
	}
	b := make([]byte, n)
	br.readRaw(b)
	if br.err != nil {
		return ""
	}
	return string(b)
}

func (br *binaryReader) readByteArray() []byte {
	n := br.readCount()
	if br.err != nil || n < 0 {
		return nil
	}
	v := make([]byte, n)
	br.readRaw(v)
	if br.err != nil {
		return nil
	}
	return v
}

func (br *binaryReader) readInt16Array() []int16 {
	n := br.readCount()
	if br.err != nil || n < 0 {
		return nil
	}
	v := make([]int16, n)
	br.readSlice(v, 2*n)
	if br.err != nil {
		return nil
	}
	return v
}

func (br *binaryReader) readInt32Array() []int32 {
	n := br.readCount()
	if br.err != nil || n < 0 {
		return nil
	}
	v := make([]int32, n)
	br.readSlice(v, 4*n)
	if br.err != nil {
		return nil
	}
	return v
}

func (br *binaryReader) readUint16Array() []uint16 {
	n := br.readCount()
	if br.err != nil || n < 0 {
		return nil
	}
	v := make([]uint16, n)
	br.readSlice(v, 2*n)
	if br.err != nil {
		return nil
	}
	return v
}

func (br *binaryReader) readFloat32Array() []float32 {
	n := br.readCount()
	if br.err != nil || n < 0 {
		return nil
	}
	v := make([]float32, n)
	br.readSlice(v, 4*n)
	if br.err != nil {
		return nil
	}
	return v
}

// readSlice delegates to binary.Read for fixed-size element slices. size is
// the encoded byte size, credited only on success.
func (br *binaryReader) readSlice(data any, size int) {
	if br.err != nil || size == 0 {
		return
	}
	if err := binary.Read(br.r, binary.LittleEndian, data); err != nil {
		br.err = err
		return
	}
	br.n += int64(size)
}
