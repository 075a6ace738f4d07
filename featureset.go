package prism

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ============================================================================
// LOCAL FEATURE SETS
// ============================================================================
//
// A feature set carries the local features of one image: interest points
// with position, orientation and scale, each with a payload descriptor of a
// single registered type (byte vectors for SIFT-style features in
// practice). The set itself is a container, not a measurable descriptor;
// matching strategies over local features live in the index layer and rank
// via the payloads.

// LocalFeature is one interest point: image position, orientation, scale
// and the extracted payload descriptor.
type LocalFeature struct {
	X           float32
	Y           float32
	Orientation float32
	Scale       float32
	Data        Descriptor
}

// clone returns a deep copy including the payload.
func (f *LocalFeature) clone() *LocalFeature {
	c := *f
	if f.Data != nil {
		c.Data = f.Data.Clone()
	}
	return &c
}

// FeatureSet is an ordered collection of local features sharing one payload
// type and one object key. Optional extraction parameters can be attached;
// they are not serialized.
type FeatureSet struct {
	keyedObject
	featureType string
	features    []*LocalFeature
	params      map[string]float32
}

// NewFeatureSet creates a feature set over features whose payloads are all
// of the named registered type. The type must have a single-line text form.
// The feature slice is taken over; payloads must be non-nil.
func NewFeatureSet(key Key, featureType string, features []*LocalFeature) (*FeatureSet, error) {
	if !isLineType(featureType) {
		return nil, fmt.Errorf("%w: feature payload type %q", ErrUnknownType, featureType)
	}
	for i, f := range features {
		if f == nil || f.Data == nil {
			return nil, fmt.Errorf("feature %d has no payload", i)
		}
		if f.Data.TypeName() != featureType {
			return nil, fmt.Errorf("%w: feature %d is %s, set holds %s", ErrTypeMismatch, i, f.Data.TypeName(), featureType)
		}
	}
	s := &FeatureSet{featureType: featureType, features: features}
	s.key = key
	return s, nil
}

// TypeName returns TypeFeatureSet.
func (s *FeatureSet) TypeName() string {
	return TypeFeatureSet
}

// FeatureType returns the registered type name of the payloads.
func (s *FeatureSet) FeatureType() string {
	return s.featureType
}

// Features returns the features in order. Callers must not modify the
// slice.
func (s *FeatureSet) Features() []*LocalFeature {
	return s.features
}

// Count returns the number of features.
func (s *FeatureSet) Count() int {
	return len(s.features)
}

// SetParam attaches one named extraction parameter. Parameters are local
// metadata and do not serialize or participate in DataEquals.
func (s *FeatureSet) SetParam(name string, value float32) {
	if s.params == nil {
		s.params = make(map[string]float32)
	}
	s.params[name] = value
}

// Param returns a named extraction parameter.
func (s *FeatureSet) Param(name string) (float32, bool) {
	v, ok := s.params[name]
	return v, ok
}

// Distance fails with ErrDistanceUndefined: feature sets rank through their
// payloads, not as a whole.
func (s *FeatureSet) Distance(other Descriptor, threshold float32) (float32, error) {
	return 0, fmt.Errorf("%w: %s", ErrDistanceUndefined, s.TypeName())
}

// WriteText writes the header "featureType;count" followed by one line per
// feature: "x,y,orientation,scale;<payload line>".
func (s *FeatureSet) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s;%d\n", s.featureType, len(s.features)); err != nil {
		return err
	}
	for i, f := range s.features {
		payload, err := descriptorTextLine(f.Data)
		if err != nil {
			return fmt.Errorf("failed to write feature %d: %w", i, err)
		}
		buf := make([]byte, 0, 48+len(payload))
		buf = appendFloat32(buf, f.X)
		buf = append(buf, ',')
		buf = appendFloat32(buf, f.Y)
		buf = append(buf, ',')
		buf = appendFloat32(buf, f.Orientation)
		buf = append(buf, ',')
		buf = appendFloat32(buf, f.Scale)
		buf = append(buf, ';')
		buf = append(buf, payload...)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteBinary writes the key, the payload type name, the feature count, and
// per feature its four coordinates followed by the payload body.
func (s *FeatureSet) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(s.key)
	bw.writeString(s.featureType)
	bw.writeInt32(int32(len(s.features)))
	for _, f := range s.features {
		bw.writeFloat32(f.X)
		bw.writeFloat32(f.Y)
		bw.writeFloat32(f.Orientation)
		bw.writeFloat32(f.Scale)
		if bw.err != nil {
			return bw.finish()
		}
		n, err := f.Data.WriteBinary(bw.w)
		bw.n += n
		bw.fail(err)
	}
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (s *FeatureSet) BinarySize() int {
	n := keyBinarySize(s.key) + stringBinarySize(s.featureType) + 4
	for _, f := range s.features {
		n += 16 + f.Data.BinarySize()
	}
	return n
}

// DataEquals reports whether both sets hold the same features in the same
// order: equal coordinates and data-equal payloads. Extraction parameters
// do not participate.
func (s *FeatureSet) DataEquals(other Descriptor) bool {
	o, ok := other.(*FeatureSet)
	if !ok || s.featureType != o.featureType || len(s.features) != len(o.features) {
		return false
	}
	for i, f := range s.features {
		g := o.features[i]
		if f.X != g.X || f.Y != g.Y || f.Orientation != g.Orientation || f.Scale != g.Scale {
			return false
		}
		if !f.Data.DataEquals(g.Data) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy: features and payloads are cloned, parameters
// copied.
func (s *FeatureSet) Clone() Descriptor {
	c := &FeatureSet{
		featureType: s.featureType,
		features:    make([]*LocalFeature, len(s.features)),
	}
	c.key = s.key
	for i, f := range s.features {
		c.features[i] = f.clone()
	}
	if s.params != nil {
		c.params = make(map[string]float32, len(s.params))
		for k, v := range s.params {
			c.params[k] = v
		}
	}
	return c
}

// descriptorTextLine renders a descriptor's single text line without its
// terminator.
func descriptorTextLine(d Descriptor) (string, error) {
	var sb strings.Builder
	if err := d.WriteText(&sb); err != nil {
		return "", err
	}
	line := strings.TrimSuffix(sb.String(), "\n")
	if strings.Contains(line, "\n") {
		return "", fmt.Errorf("type %q has no single-line form", d.TypeName())
	}
	return line, nil
}

func readFeatureSetText(tr *TextReader) (Descriptor, error) {
	header, err := tr.ReadDataLine()
	if err != nil {
		return nil, err
	}
	key := tr.TakeKey()

	featureType, countStr, ok := strings.Cut(header, ";")
	if !ok {
		return nil, tr.errorf("bad feature set header %q", header)
	}
	if !isLineType(featureType) {
		return nil, tr.errorf("unknown feature payload type %q", featureType)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return nil, tr.errorf("bad feature count %q", countStr)
	}

	features := make([]*LocalFeature, 0, count)
	for i := 0; i < count; i++ {
		line, err := tr.ReadDataLine()
		if err != nil {
			if err == io.EOF {
				return nil, tr.errorf("truncated feature set: %d of %d features", i, count)
			}
			return nil, err
		}
		coords, payload, ok := strings.Cut(line, ";")
		if !ok {
			return nil, tr.errorf("bad feature line %q", line)
		}
		parts := strings.Split(coords, ",")
		if len(parts) != 4 {
			return nil, tr.errorf("feature needs 4 coordinates, got %d", len(parts))
		}
		f := &LocalFeature{}
		for j, dst := range []*float32{&f.X, &f.Y, &f.Orientation, &f.Scale} {
			v, err := parseFloat32Token(parts[j])
			if err != nil {
				return nil, tr.errorf("bad feature coordinate: %v", err)
			}
			*dst = v
		}
		d, err := parseDescriptorLine(featureType, payload)
		if err != nil {
			return nil, tr.errorf("bad feature payload: %v", err)
		}
		f.Data = d
		features = append(features, f)
	}

	s := &FeatureSet{featureType: featureType, features: features}
	s.key = key
	return s, nil
}

func readFeatureSetBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	featureType := br.readString()
	count := br.readCount()
	if br.err != nil {
		return nil, br.err
	}
	if count < 0 {
		return nil, fmt.Errorf("invalid feature count %d", count)
	}
	t, ok := descriptorTypes[featureType]
	if !ok || t.parseLine == nil {
		return nil, fmt.Errorf("%w: feature payload type %q", ErrUnknownType, featureType)
	}

	features := make([]*LocalFeature, 0, count)
	for i := 0; i < count; i++ {
		f := &LocalFeature{
			X:           br.readFloat32(),
			Y:           br.readFloat32(),
			Orientation: br.readFloat32(),
			Scale:       br.readFloat32(),
		}
		if br.err != nil {
			return nil, br.err
		}
		d, err := t.readBinary(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read feature %d payload: %w", i, err)
		}
		f.Data = d
		features = append(features, f)
	}

	s := &FeatureSet{featureType: featureType, features: features}
	s.key = key
	return s, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*FeatureSet)(nil)
