package prism

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ============================================================================
// GENERIC META-OBJECT
// ============================================================================
//
// MetaObjectMap holds an arbitrary set of named members instead of a fixed
// table. Its text form is self-describing: a header line lists the member
// names and their registered types, so readers need no static schema.
// Members aggregate with uniform weight and norm 1 unless a WeightProfile
// is attached.

// MetaObjectMap is a meta-object with variable membership.
type MetaObjectMap struct {
	keyedObject
	names   []string
	objects map[string]Descriptor
	profile *WeightProfile
}

// NewMetaObjectMap creates a meta-object from a member map. Nil values are
// skipped; members serialize in lexicographic name order. With cloneObjects
// set the members are deep-copied and stamped with the meta-object's key.
func NewMetaObjectMap(key Key, objects map[string]Descriptor, cloneObjects bool) (*MetaObjectMap, error) {
	o := &MetaObjectMap{objects: make(map[string]Descriptor, len(objects))}
	o.key = key
	for name, d := range objects {
		if d == nil {
			continue
		}
		if name == "" || strings.ContainsAny(name, "; \t\r\n") {
			return nil, fmt.Errorf("invalid member name %q", name)
		}
		if !IsRegisteredType(d.TypeName()) {
			return nil, fmt.Errorf("%w: member %s has unregistered type %q", ErrUnknownType, name, d.TypeName())
		}
		o.names = append(o.names, name)
		o.objects[name] = adoptMember(d, key, cloneObjects)
	}
	sort.Strings(o.names)
	return o, nil
}

// SetWeightProfile attaches aggregation weights to the meta-object. The
// profile affects Distance and MaxDistance only; it is not serialized with
// the object. Pass nil to restore uniform weights.
func (o *MetaObjectMap) SetWeightProfile(p *WeightProfile) {
	o.profile = p
}

// WeightProfile returns the attached profile, or nil.
func (o *MetaObjectMap) WeightProfile() *WeightProfile {
	return o.profile
}

// members builds the aggregation table: one entry per member in
// serialization order, weighted by the attached profile.
func (o *MetaObjectMap) members() []AggregationMember {
	ms := make([]AggregationMember, len(o.names))
	for i, name := range o.names {
		weight, norm := float32(1), float32(1)
		if o.profile != nil {
			weight, norm = o.profile.Resolve(name)
		}
		ms[i] = AggregationMember{Name: name, Type: o.objects[name].TypeName(), Weight: weight, Norm: norm}
	}
	return ms
}

// TypeName returns TypeMetaObjectMap.
func (o *MetaObjectMap) TypeName() string {
	return TypeMetaObjectMap
}

// ObjectNames returns the member names in serialization order.
func (o *MetaObjectMap) ObjectNames() []string {
	names := make([]string, len(o.names))
	copy(names, o.names)
	return names
}

// Object returns the named member, or nil when absent.
func (o *MetaObjectMap) Object(name string) Descriptor {
	return o.objects[name]
}

// ObjectMap returns the members keyed by name.
func (o *MetaObjectMap) ObjectMap() map[string]Descriptor {
	m := make(map[string]Descriptor, len(o.objects))
	for name, d := range o.objects {
		m[name] = d
	}
	return m
}

// ObjectCount returns the number of members.
func (o *MetaObjectMap) ObjectCount() int {
	return len(o.names)
}

// MaxDistance returns the sum of the member weights: the member count under
// uniform weights, the profile's weight sum otherwise.
func (o *MetaObjectMap) MaxDistance() float32 {
	return aggregateMaxDistance(o.members())
}

// Distance returns the weighted aggregate distance over this object's
// members; members missing in the other operand are skipped.
func (o *MetaObjectMap) Distance(other Descriptor, threshold float32) (float32, error) {
	return o.DistanceDetails(other, nil, threshold)
}

// DistanceDetails computes the aggregate distance with an optional
// per-member breakdown indexed by this object's ObjectNames order.
func (o *MetaObjectMap) DistanceDetails(other Descriptor, subDistances []float32, threshold float32) (float32, error) {
	b, ok := other.(*MetaObjectMap)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, o.TypeName(), other.TypeName())
	}
	return aggregateDistance(o.members(), o, b, subDistances, threshold)
}

// WriteText writes the self-describing header "name1;Type1;name2;Type2;..."
// followed by each member's own text block in header order. The key is not
// part of the header; WriteObjectText carries it as a comment.
func (o *MetaObjectMap) WriteText(w io.Writer) error {
	var sb strings.Builder
	for i, name := range o.names {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte(';')
		sb.WriteString(o.objects[name].TypeName())
	}
	if _, err := fmt.Fprintln(w, sb.String()); err != nil {
		return err
	}
	for _, name := range o.names {
		if err := o.objects[name].WriteText(w); err != nil {
			return fmt.Errorf("failed to write member %s: %w", name, err)
		}
	}
	return nil
}

// WriteBinary writes the key, the member count, and per member its name,
// type name and size-prefixed body.
func (o *MetaObjectMap) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(o.key)
	bw.writeInt32(int32(len(o.names)))
	for _, name := range o.names {
		d := o.objects[name]
		bw.writeString(name)
		bw.writeString(d.TypeName())
		bw.writeMember(d)
	}
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (o *MetaObjectMap) BinarySize() int {
	n := keyBinarySize(o.key) + 4
	for _, name := range o.names {
		d := o.objects[name]
		n += stringBinarySize(name) + stringBinarySize(d.TypeName()) + memberBinarySize(d)
	}
	return n
}

// DataEquals reports whether both meta-objects hold the same member names
// with data-equal members. Attached weight profiles are configuration, not
// data, and do not participate.
func (o *MetaObjectMap) DataEquals(other Descriptor) bool {
	b, ok := other.(*MetaObjectMap)
	if !ok || len(o.objects) != len(b.objects) {
		return false
	}
	for name, d := range o.objects {
		bd, ok := b.objects[name]
		if !ok || !d.DataEquals(bd) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy: every member is cloned. The weight profile is
// shared; profiles are immutable configuration.
func (o *MetaObjectMap) Clone() Descriptor {
	c := &MetaObjectMap{
		names:   make([]string, len(o.names)),
		objects: make(map[string]Descriptor, len(o.objects)),
		profile: o.profile,
	}
	c.key = o.key
	copy(c.names, o.names)
	for name, d := range o.objects {
		c.objects[name] = d.Clone()
	}
	return c
}

// parseMetaMapHeader splits a header line into an optional leading locator
// and name/type pairs. An odd token count means the first token is the
// locator of the object.
func parseMetaMapHeader(header string) (locator string, names, types []string, err error) {
	if header == "" {
		return "", nil, nil, nil
	}
	tokens := strings.Split(header, ";")
	if len(tokens)%2 == 1 {
		locator = tokens[0]
		tokens = tokens[1:]
	}
	seen := make(map[string]bool, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		name, typeName := tokens[i], tokens[i+1]
		if name == "" {
			return "", nil, nil, errors.New("empty member name in header")
		}
		if seen[name] {
			return "", nil, nil, fmt.Errorf("duplicate member %q in header", name)
		}
		if !IsRegisteredType(typeName) {
			return "", nil, nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
		}
		seen[name] = true
		names = append(names, name)
		types = append(types, typeName)
	}
	return locator, names, types, nil
}

func readMetaObjectMapText(tr *TextReader) (Descriptor, error) {
	header, err := tr.ReadDataLine()
	if err != nil {
		return nil, err
	}
	// The pending key belongs to this object; take it before member blocks
	// can claim it.
	key := tr.TakeKey()
	locator, names, types, err := parseMetaMapHeader(header)
	if err != nil {
		return nil, tr.errorf("bad meta-object header: %v", err)
	}
	if key == nil && locator != "" {
		key = LocatorKey(locator)
	}

	o := &MetaObjectMap{
		names:   names,
		objects: make(map[string]Descriptor, len(names)),
	}
	o.key = key
	for i, name := range names {
		d, err := ReadObjectText(tr, types[i])
		if err != nil {
			if err == io.EOF {
				return nil, tr.errorf("truncated meta-object: missing member %s", name)
			}
			return nil, err
		}
		o.objects[name] = d
	}
	return o, nil
}

func readMetaObjectMapBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	count := br.readCount()
	if br.err != nil {
		return nil, br.err
	}
	if count < 0 {
		return nil, fmt.Errorf("invalid meta-object member count %d", count)
	}

	o := &MetaObjectMap{objects: make(map[string]Descriptor, count)}
	o.key = key
	for i := 0; i < count; i++ {
		name := br.readString()
		typeName := br.readString()
		d := br.readMember(typeName)
		if br.err != nil {
			return nil, br.err
		}
		if d == nil {
			continue
		}
		if _, dup := o.objects[name]; dup {
			return nil, fmt.Errorf("duplicate member %q", name)
		}
		o.names = append(o.names, name)
		o.objects[name] = d
	}
	return o, nil
}

// Verify interface compliance at compile time.
var _ MetaObject = (*MetaObjectMap)(nil)
