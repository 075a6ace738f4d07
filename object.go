package prism

import (
	"errors"
	"io"
	"math"
)

// ============================================================================
// ERRORS
// ============================================================================

var (
	// ErrTypeMismatch is returned when a distance or equality check is asked
	// to compare descriptors of different concrete types.
	ErrTypeMismatch = errors.New("descriptor type mismatch")

	// ErrDimensionMismatch is returned when two fixed-format descriptors of
	// the same type carry payloads of different lengths.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

	// ErrDistanceUndefined is returned by container types that carry data but
	// define no distance of their own (for example FeatureSet).
	ErrDistanceUndefined = errors.New("distance undefined for this type")

	// ErrUnknownType is returned when a stream or buffer names a descriptor
	// type that has not been registered.
	ErrUnknownType = errors.New("unknown descriptor type")

	// ErrBackendUnavailable is returned by descriptors whose distance is
	// delegated to an optional native backend that is not present.
	ErrBackendUnavailable = errors.New("descriptor backend unavailable")
)

// ============================================================================
// DESCRIPTOR INTERFACE
// ============================================================================

// MaxDistance is the largest representable distance. Passing it as the
// threshold argument of Distance disables early termination, so the exact
// distance is always computed.
const MaxDistance float32 = math.MaxFloat32

// Descriptor is the interface implemented by every content descriptor.
//
// A descriptor is an immutable value: a payload in a fixed format, an optional
// object key identifying the source object, a distance function to like-typed
// peers, and two serializations (line-oriented text and compact binary).
//
// WHAT THE THRESHOLD MEANS:
//
// Distance takes a threshold that permits, but does not require, early
// termination. The contract is one-sided:
//
//   - If the true distance is <= threshold, the exact distance is returned.
//   - If the true distance is > threshold, any value greater than the
//     threshold may be returned (typically a partial sum).
//
// Callers that need the exact distance unconditionally pass MaxDistance, or
// use the package-level Distance function.
type Descriptor interface {
	// TypeName returns the registered name of the concrete descriptor type.
	// It is the name used in stream headers and binary buffers.
	TypeName() string

	// Distance returns the distance from this descriptor to other, which
	// must have the same concrete type (ErrTypeMismatch otherwise). The
	// threshold enables early termination as described above.
	Distance(other Descriptor, threshold float32) (float32, error)

	// WriteText writes the data lines of the text serialization, each
	// terminated by a newline. Object keys are not written here; they travel
	// as comment lines emitted by WriteObjectText.
	WriteText(w io.Writer) error

	// WriteBinary writes the binary serialization, key included, and returns
	// the number of bytes written.
	WriteBinary(w io.Writer) (int64, error)

	// BinarySize returns the exact number of bytes WriteBinary will produce.
	BinarySize() int

	// DataEquals reports whether other has the same concrete type and equal
	// payload. Object keys are ignored.
	DataEquals(other Descriptor) bool

	// Clone returns a deep copy of the descriptor. The key is carried over;
	// keys are immutable and may be shared between the copies.
	Clone() Descriptor

	// Key returns the object key, or nil when the descriptor has none.
	Key() Key

	// SetKey replaces the object key. It is the only mutation a descriptor
	// supports and is intended for use right after construction.
	SetKey(k Key)

	// Locator returns the locator URI of the object key, or "" without a key.
	Locator() string
}

// Distance returns the exact distance between two descriptors of the same
// concrete type. It is shorthand for a.Distance(b, MaxDistance).
func Distance(a, b Descriptor) (float32, error) {
	return a.Distance(b, MaxDistance)
}

// ============================================================================
// KEYED OBJECT BASE
// ============================================================================

// keyedObject carries the object key for a descriptor. Concrete descriptors
// embed it to satisfy the Key, SetKey and Locator methods of Descriptor.
type keyedObject struct {
	key Key
}

// Key returns the object key, or nil when none has been assigned.
func (o *keyedObject) Key() Key {
	return o.key
}

// SetKey replaces the object key.
func (o *keyedObject) SetKey(k Key) {
	o.key = k
}

// Locator returns the locator URI of the key, or "" when there is no key.
func (o *keyedObject) Locator() string {
	if o.key == nil {
		return ""
	}
	return o.key.Locator()
}
