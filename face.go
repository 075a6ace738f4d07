package prism

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// FACE DESCRIPTOR
// ============================================================================
//
// FaceDescriptor carries an opaque face recognition template produced by an
// external matching engine, plus detection geometry in its object key. The
// distance is delegated to a process-wide FaceBackend; without one, distance
// computations fail with ErrBackendUnavailable while construction and
// serialization keep working, so face data can be stored and shipped on
// machines that cannot match it.
//
// The distance is 1 - similarity with similarity in [0, 1]. It is NOT a
// metric: the triangle inequality is not guaranteed by recognition engines.
// Exact-pivot index structures must not assume metric properties for this
// type.

// maxFaceLandmarks bounds the landmark list of a face key.
const maxFaceLandmarks = 40

// FaceLandmark is one labeled feature point of a detected face, in image
// coordinates.
type FaceLandmark struct {
	Label string
	X, Y  int32
}

// FaceKey identifies a single detected face: the locator of the source
// image plus detection geometry. Several faces of one image share the
// locator and differ in geometry.
type FaceKey struct {
	locator  string
	centerX  int32
	centerY  int32
	width    int32
	rotation float32 // NaN when unknown
	marks    []FaceLandmark
}

// NewFaceKey creates a face key. Pass NaN for an unknown rotation. Landmark
// labels must be non-empty and free of the payload separators ';', ',', '=',
// ':' and whitespace; at most 40 landmarks are allowed. The landmark slice
// is copied.
func NewFaceKey(locator string, centerX, centerY, width int32, rotation float32, landmarks []FaceLandmark) (*FaceKey, error) {
	if width < 0 {
		return nil, fmt.Errorf("face width must be non-negative, got %d", width)
	}
	if len(landmarks) > maxFaceLandmarks {
		return nil, fmt.Errorf("too many face landmarks: %d (max %d)", len(landmarks), maxFaceLandmarks)
	}
	for _, lm := range landmarks {
		if lm.Label == "" {
			return nil, errors.New("face landmark label must not be empty")
		}
		if strings.ContainsAny(lm.Label, ";,=: \t\r\n") {
			return nil, fmt.Errorf("face landmark label %q contains a separator", lm.Label)
		}
	}
	marks := make([]FaceLandmark, len(landmarks))
	copy(marks, landmarks)
	return &FaceKey{
		locator:  locator,
		centerX:  centerX,
		centerY:  centerY,
		width:    width,
		rotation: rotation,
		marks:    marks,
	}, nil
}

// Locator returns the URI of the source image.
func (k *FaceKey) Locator() string {
	return k.locator
}

// Kind returns KeyKindFace.
func (k *FaceKey) Kind() string {
	return KeyKindFace
}

// Center returns the face center in image coordinates.
func (k *FaceKey) Center() (x, y int32) {
	return k.centerX, k.centerY
}

// Width returns the face width in pixels.
func (k *FaceKey) Width() int32 {
	return k.width
}

// Rotation returns the in-plane rotation in degrees. The second result is
// false when the rotation is unknown.
func (k *FaceKey) Rotation() (float32, bool) {
	if math.IsNaN(float64(k.rotation)) {
		return 0, false
	}
	return k.rotation, true
}

// Landmarks returns the labeled feature points. Callers must not modify the
// slice.
func (k *FaceKey) Landmarks() []FaceLandmark {
	return k.marks
}

// textPayload renders "locator;cx;cy;width;rotation;landmarks" with an empty
// rotation field for NaN and landmarks as comma-separated "label=x:y".
func (k *FaceKey) textPayload() string {
	var sb strings.Builder
	sb.WriteString(k.locator)
	sb.WriteByte(';')
	sb.WriteString(strconv.FormatInt(int64(k.centerX), 10))
	sb.WriteByte(';')
	sb.WriteString(strconv.FormatInt(int64(k.centerY), 10))
	sb.WriteByte(';')
	sb.WriteString(strconv.FormatInt(int64(k.width), 10))
	sb.WriteByte(';')
	if !math.IsNaN(float64(k.rotation)) {
		sb.WriteString(formatFloat32(k.rotation))
	}
	sb.WriteByte(';')
	for i, lm := range k.marks {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(lm.Label)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatInt(int64(lm.X), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatInt(int64(lm.Y), 10))
	}
	return sb.String()
}

// parseFaceKey is the inverse of textPayload. The locator is everything up
// to the last five fields, so locators containing ';' survive.
func parseFaceKey(payload string) (*FaceKey, error) {
	parts := strings.Split(payload, ";")
	if len(parts) < 6 {
		return nil, fmt.Errorf("face key needs 6 fields, got %d", len(parts))
	}
	tail := parts[len(parts)-5:]
	locator := strings.Join(parts[:len(parts)-5], ";")

	centerX, err := parseInt32Token(tail[0])
	if err != nil {
		return nil, fmt.Errorf("bad face center x: %w", err)
	}
	centerY, err := parseInt32Token(tail[1])
	if err != nil {
		return nil, fmt.Errorf("bad face center y: %w", err)
	}
	width, err := parseInt32Token(tail[2])
	if err != nil {
		return nil, fmt.Errorf("bad face width: %w", err)
	}

	rotation := float32(math.NaN())
	if tail[3] != "" {
		rotation, err = parseFloat32Token(tail[3])
		if err != nil {
			return nil, fmt.Errorf("bad face rotation: %w", err)
		}
	}

	var landmarks []FaceLandmark
	if tail[4] != "" {
		for _, field := range strings.Split(tail[4], ",") {
			label, coords, ok := strings.Cut(field, "=")
			if !ok {
				return nil, fmt.Errorf("bad face landmark %q", field)
			}
			xs, ys, ok := strings.Cut(coords, ":")
			if !ok {
				return nil, fmt.Errorf("bad face landmark coordinates %q", coords)
			}
			x, err := parseInt32Token(xs)
			if err != nil {
				return nil, fmt.Errorf("bad face landmark x: %w", err)
			}
			y, err := parseInt32Token(ys)
			if err != nil {
				return nil, fmt.Errorf("bad face landmark y: %w", err)
			}
			landmarks = append(landmarks, FaceLandmark{Label: label, X: x, Y: y})
		}
	}
	return NewFaceKey(locator, centerX, centerY, width, rotation, landmarks)
}

func (k *FaceKey) binarySize() int {
	n := stringBinarySize(k.locator) + 4*3 + 4 + 4
	for _, lm := range k.marks {
		n += stringBinarySize(lm.Label) + 8
	}
	return n
}

func (k *FaceKey) appendBinary(bw *binaryWriter) {
	bw.writeString(k.locator)
	bw.writeInt32(k.centerX)
	bw.writeInt32(k.centerY)
	bw.writeInt32(k.width)
	bw.writeFloat32(k.rotation)
	bw.writeInt32(int32(len(k.marks)))
	for _, lm := range k.marks {
		bw.writeString(lm.Label)
		bw.writeInt32(lm.X)
		bw.writeInt32(lm.Y)
	}
}

func readFaceKey(br *binaryReader) *FaceKey {
	locator := br.readString()
	centerX := br.readInt32()
	centerY := br.readInt32()
	width := br.readInt32()
	rotation := br.readFloat32()
	count := br.readCount()
	if br.err != nil {
		return nil
	}
	if count < 0 || count > maxFaceLandmarks {
		br.fail(fmt.Errorf("invalid face landmark count %d", count))
		return nil
	}
	marks := make([]FaceLandmark, count)
	for i := range marks {
		marks[i].Label = br.readString()
		marks[i].X = br.readInt32()
		marks[i].Y = br.readInt32()
	}
	if br.err != nil {
		return nil
	}
	return &FaceKey{
		locator:  locator,
		centerX:  centerX,
		centerY:  centerY,
		width:    width,
		rotation: rotation,
		marks:    marks,
	}
}

// Verify interface compliance at compile time.
var _ Key = (*FaceKey)(nil)

// parseInt32Token parses one int32 token.
func parseInt32Token(tok string) (int32, error) {
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad int32 value %q: %w", tok, err)
	}
	return int32(v), nil
}

// ----------------------------------------------------------------------------
// Face backend
// ----------------------------------------------------------------------------

// FaceBackend matches two face recognition templates.
type FaceBackend interface {
	// Similarity returns the match confidence of two templates in [0, 1],
	// where 1 means the same person.
	Similarity(a, b []byte) (float32, error)
}

// faceBackend is the process-wide matching engine. Set once at startup via
// RegisterFaceBackend before any face distance is computed.
var faceBackend FaceBackend

// RegisterFaceBackend installs the process-wide face matching backend.
// Register during startup; the variable is not synchronized.
func RegisterFaceBackend(b FaceBackend) {
	faceBackend = b
}

// FaceBackendAvailable reports whether a matching backend is registered.
func FaceBackendAvailable() bool {
	return faceBackend != nil
}

// ----------------------------------------------------------------------------
// Face descriptor
// ----------------------------------------------------------------------------

// FaceDescriptor carries an opaque recognition template. Its key is usually
// a *FaceKey with the detection geometry.
type FaceDescriptor struct {
	keyedObject
	data []byte
}

// NewFaceDescriptor creates a face descriptor over a backend-specific
// template. The key may be nil. The descriptor takes ownership of the data
// slice.
func NewFaceDescriptor(key *FaceKey, data []byte) (*FaceDescriptor, error) {
	if data == nil {
		return nil, errors.New("face template must not be nil")
	}
	d := &FaceDescriptor{data: data}
	if key != nil {
		d.key = key
	}
	return d, nil
}

// TypeName returns TypeFace.
func (d *FaceDescriptor) TypeName() string {
	return TypeFace
}

// Template returns the raw recognition template. Callers must not modify
// the slice.
func (d *FaceDescriptor) Template() []byte {
	return d.data
}

// Distance returns 1 - similarity as reported by the registered backend. It
// fails with ErrBackendUnavailable when no backend is registered. The
// threshold is not used; matching engines score in one shot.
func (d *FaceDescriptor) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*FaceDescriptor)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	b := faceBackend
	if b == nil {
		return 0, fmt.Errorf("%w: no face backend registered", ErrBackendUnavailable)
	}
	sim, err := b.Similarity(d.data, o.data)
	if err != nil {
		return 0, fmt.Errorf("failed to compare face templates: %w", err)
	}
	return 1 - sim, nil
}

// WriteText writes the template as one base64 line.
func (d *FaceDescriptor) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, base64.StdEncoding.EncodeToString(d.data))
	return err
}

// WriteBinary writes the key followed by the length-prefixed template.
func (d *FaceDescriptor) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeByteArray(d.data)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *FaceDescriptor) BinarySize() int {
	return keyBinarySize(d.key) + arrayBinarySize(len(d.data), 1)
}

// DataEquals reports template equality with another FaceDescriptor.
func (d *FaceDescriptor) DataEquals(other Descriptor) bool {
	o, ok := other.(*FaceDescriptor)
	return ok && bytes.Equal(d.data, o.data)
}

// Clone returns a deep copy sharing only the immutable key.
func (d *FaceDescriptor) Clone() Descriptor {
	data := make([]byte, len(d.data))
	copy(data, d.data)
	c := &FaceDescriptor{data: data}
	c.key = d.key
	return c
}

func parseFaceLine(line string) (Descriptor, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("failed to decode face template: %w", err)
	}
	return &FaceDescriptor{data: data}, nil
}

func readFaceBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	data := br.readByteArray()
	if br.err != nil {
		return nil, br.err
	}
	if data == nil {
		return nil, errors.New("face template missing")
	}
	d := &FaceDescriptor{data: data}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*FaceDescriptor)(nil)
