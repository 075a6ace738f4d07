package prism

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
// OBJECT KEYS
// ============================================================================

// Key kinds as they appear after the "#objectKey" token of a text dump.
const (
	KeyKindLocator = "locator"
	KeyKindFace    = "face"
)

// Binary tags identifying the key kind. keyTagNone marks a descriptor
// serialized without a key.
const (
	keyTagNone    int8 = -1
	keyTagLocator int8 = 0
	keyTagFace    int8 = 1
)

// Key identifies the object a descriptor was extracted from. Keys are
// immutable values and may be shared freely between descriptors.
//
// The key set is closed: LocatorKey names an object by URI, FaceKey
// additionally carries face geometry. In text dumps a key travels as a
// comment line preceding the object data:
//
//	#objectKey locator http://example.com/img42.jpg
type Key interface {
	// Locator returns the URI of the source object.
	Locator() string

	// Kind returns the key kind token used in text dumps.
	Kind() string

	// textPayload returns the serialized form following the kind token.
	textPayload() string

	// binarySize returns the byte size of appendBinary's output, the kind
	// tag excluded.
	binarySize() int

	// appendBinary writes the key payload, the kind tag excluded.
	appendBinary(bw *binaryWriter)
}

// LocatorKey is the plain object key: a locator URI and nothing else.
type LocatorKey string

// Locator returns the URI.
func (k LocatorKey) Locator() string {
	return string(k)
}

// Kind returns KeyKindLocator.
func (k LocatorKey) Kind() string {
	return KeyKindLocator
}

func (k LocatorKey) textPayload() string {
	return string(k)
}

func (k LocatorKey) binarySize() int {
	return stringBinarySize(string(k))
}

func (k LocatorKey) appendBinary(bw *binaryWriter) {
	bw.writeString(string(k))
}

// Verify interface compliance at compile time.
var _ Key = LocatorKey("")

// NewRandomLocator returns a fresh universally unique locator URI. Synthetic
// descriptors (random vectors, fixtures) use it so that generated dumps stay
// self-identifying.
func NewRandomLocator() string {
	return uuid.NewString()
}

// parseKey reconstructs a key from its kind token and text payload.
func parseKey(kind, payload string) (Key, error) {
	switch kind {
	case KeyKindLocator:
		return LocatorKey(payload), nil
	case KeyKindFace:
		return parseFaceKey(payload)
	default:
		return nil, fmt.Errorf("unknown object key kind %q", kind)
	}
}

// writeKey writes the kind tag followed by the key payload. A nil key writes
// the keyTagNone tag alone.
func (bw *binaryWriter) writeKey(k Key) {
	if k == nil {
		bw.writeInt8(keyTagNone)
		return
	}
	switch k.Kind() {
	case KeyKindLocator:
		bw.writeInt8(keyTagLocator)
	case KeyKindFace:
		bw.writeInt8(keyTagFace)
	default:
		bw.fail(fmt.Errorf("unknown object key kind %q", k.Kind()))
		return
	}
	k.appendBinary(bw)
}

// readKey is the inverse of writeKey.
func (br *binaryReader) readKey() Key {
	switch tag := br.readInt8(); tag {
	case keyTagNone:
		return nil
	case keyTagLocator:
		return LocatorKey(br.readString())
	case keyTagFace:
		if k := readFaceKey(br); k != nil {
			return k
		}
		return nil
	default:
		br.fail(fmt.Errorf("unknown object key tag %d", tag))
		return nil
	}
}

// keyBinarySize returns the serialized size of a key including the kind tag.
func keyBinarySize(k Key) int {
	if k == nil {
		return 1
	}
	return 1 + k.binarySize()
}

// ============================================================================
// LOCATOR PATH LAYOUT
// ============================================================================

// InsertDirectoryTriples maps a numeric object name onto a balanced directory
// layout: the last nine digits of the name before the extension, left-padded
// with zeros, are split into three directories of three characters each, and
// the unmodified name is appended as the final path element.
//
//	InsertDirectoryTriples("123456789.xml") // "123/456/789/123456789.xml"
//	InsertDirectoryTriples("1")             // "000/000/001/1"
//
// Large collections dumped one file per object stay navigable this way: no
// directory holds more than a thousand entries.
func InsertDirectoryTriples(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if len(stem) > 9 {
		stem = stem[len(stem)-9:]
	}
	for len(stem) < 9 {
		stem = "0" + stem
	}

	// Build the directory prefix from the right, three characters at a time.
	parts := make([]string, 0, 4)
	for i := len(stem); i > 0; i -= 3 {
		parts = append([]string{stem[i-3 : i]}, parts...)
	}
	parts = append(parts, name)
	return strings.Join(parts, "/")
}
