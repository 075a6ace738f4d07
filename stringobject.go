package prism

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// StringObject is a plain string descriptor with the discrete exact-match
// distance: 0 for equal strings, 1 otherwise. It is useful as a cheap
// categorical feature inside meta-objects.
type StringObject struct {
	keyedObject
	value string
}

// NewStringObject creates a StringObject. The value must fit the line
// framing of the text format: no line breaks, and no leading '#' (which
// would read back as a comment).
func NewStringObject(value string) (*StringObject, error) {
	if err := checkLineValue(value); err != nil {
		return nil, err
	}
	return &StringObject{value: value}, nil
}

// checkLineValue validates that a string survives the line-oriented text
// format unchanged.
func checkLineValue(value string) error {
	if strings.ContainsAny(value, "\n\r") {
		return errors.New("string value must not contain line breaks")
	}
	if strings.HasPrefix(value, "#") {
		return errors.New("string value must not start with '#'")
	}
	return nil
}

// TypeName returns TypeString.
func (d *StringObject) TypeName() string {
	return TypeString
}

// Value returns the stored string.
func (d *StringObject) Value() string {
	return d.value
}

// Distance returns 0 when the strings match exactly and 1 otherwise. The
// threshold is ignored; the comparison is already a single operation.
func (d *StringObject) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*StringObject)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	if d.value == o.value {
		return 0, nil
	}
	return 1, nil
}

// WriteText writes the string as one line.
func (d *StringObject) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, d.value)
	return err
}

// WriteBinary writes the key followed by the length-prefixed string.
func (d *StringObject) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeString(d.value)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *StringObject) BinarySize() int {
	return keyBinarySize(d.key) + stringBinarySize(d.value)
}

// DataEquals reports string equality with another StringObject.
func (d *StringObject) DataEquals(other Descriptor) bool {
	o, ok := other.(*StringObject)
	return ok && d.value == o.value
}

// Clone returns a copy sharing the immutable value and key.
func (d *StringObject) Clone() Descriptor {
	c := &StringObject{value: d.value}
	c.key = d.key
	return c
}

func parseStringObjectLine(line string) (Descriptor, error) {
	return NewStringObject(line)
}

func readStringObjectBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	value := br.readString()
	if br.err != nil {
		return nil, br.err
	}
	d, err := NewStringObject(value)
	if err != nil {
		return nil, err
	}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*StringObject)(nil)
