package prism

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
)

// ============================================================================
// META-OBJECTS
// ============================================================================
//
// A meta-object aggregates several named member descriptors extracted from
// the same source object: one record may carry a color layout, an edge
// histogram and a keyword set at once. Its distance is the weighted sum of
// normalized member distances.
//
// Members may be absent. A member missing in either operand is silently
// skipped and contributes zero to the aggregate; partial records degrade
// gracefully instead of erroring. This is deliberate: real extraction
// pipelines fail per-feature, and a record with four of five features is
// still rankable.

// MetaObject is a descriptor composed of named member descriptors.
type MetaObject interface {
	Descriptor

	// ObjectNames returns the member slot names in aggregation order.
	ObjectNames() []string

	// Object returns the named member, or nil when absent or unknown.
	Object(name string) Descriptor

	// ObjectMap returns the present members keyed by slot name. The map is
	// freshly allocated; mutating it does not affect the meta-object.
	ObjectMap() map[string]Descriptor

	// ObjectCount returns the number of present members.
	ObjectCount() int

	// MaxDistance returns the theoretical worst-case aggregate distance,
	// the sum of all member weights. Callers use it for normalization and
	// pruning.
	MaxDistance() float32
}

// AggregationMember describes one slot of a meta-object: its name, the
// registered descriptor type stored there, and how its distance enters the
// aggregate. The raw member distance is multiplied by Norm (mapping it
// roughly into [0, 1]) and the normalized value by Weight.
type AggregationMember struct {
	Name   string
	Type   string
	Weight float32
	Norm   float32
}

// aggregateDistance computes the weighted aggregate distance of two
// meta-objects over a member table.
//
// Formula: sum over slots present in both operands of
//
//	weight × (norm × memberDistance)
//
// Each member receives the remaining threshold headroom scaled by its own
// weight×norm as sub-threshold, so member early exits can only occur when
// the aggregate is already certain to exceed the threshold. The aggregate
// itself exits between members once the partial sum passes the threshold;
// the returned value is then only guaranteed to be greater than the
// threshold.
//
// When subDistances is non-nil, slot i receives the normalized member
// distance norm×memberDistance (skipped slots keep their previous value;
// slots after an early exit are not written).
func aggregateDistance(members []AggregationMember, a, b MetaObject, subDistances []float32, threshold float32) (float32, error) {
	var total float32
	for i, m := range members {
		da := a.Object(m.Name)
		db := b.Object(m.Name)
		if da == nil || db == nil {
			continue
		}

		wn := m.Weight * m.Norm
		subThreshold := MaxDistance
		if wn > 0 {
			subThreshold = (threshold - total) / wn
		}
		sub, err := da.Distance(db, subThreshold)
		if err != nil {
			return 0, fmt.Errorf("failed to compute %s distance: %w", m.Name, err)
		}

		if subDistances != nil && i < len(subDistances) {
			subDistances[i] = sub * m.Norm
		}
		total += sub * wn
		if total > threshold {
			return total, nil
		}
	}
	return total, nil
}

// aggregateMaxDistance sums the member weights of a table.
func aggregateMaxDistance(members []AggregationMember) float32 {
	weights := make([]float64, len(members))
	for i, m := range members {
		weights[i] = float64(m.Weight)
	}
	return float32(floats.Sum(weights))
}

// adoptMember prepares a descriptor for membership in a meta-object. With
// clone set it deep-copies the descriptor and stamps the meta-object's key
// onto the copy, so all members answer to the same locator.
func adoptMember(d Descriptor, key Key, clone bool) Descriptor {
	if d == nil {
		return nil
	}
	if clone {
		d = d.Clone()
		if key != nil {
			d.SetKey(key)
		}
	}
	return d
}

// ----------------------------------------------------------------------------
// Fixed-membership serialization helpers
// ----------------------------------------------------------------------------
//
// Meta-objects with a fixed member table serialize positionally: the text
// form is one line per table slot in table order (blank line = absent), the
// binary form one size-prefixed member slot per table entry. The table is
// the single source of field order for both formats.

// writeMemberLine writes one member's text line, or a blank placeholder line
// for an absent member.
func writeMemberLine(w io.Writer, d Descriptor) error {
	if d == nil {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return d.WriteText(w)
}

// writeFixedMetaText writes one line per table slot in table order.
func writeFixedMetaText(w io.Writer, members []AggregationMember, o MetaObject) error {
	for _, m := range members {
		if err := writeMemberLine(w, o.Object(m.Name)); err != nil {
			return fmt.Errorf("failed to write %s: %w", m.Name, err)
		}
	}
	return nil
}

// readFixedMetaText reads one line per table slot and parses the present
// ones. All fixed-table member types parse from a single text line.
func readFixedMetaText(tr *TextReader, members []AggregationMember) (map[string]Descriptor, error) {
	objects := make(map[string]Descriptor, len(members))
	for _, m := range members {
		line, err := tr.ReadDataLine()
		if err != nil {
			if err == io.EOF && len(objects) > 0 {
				return nil, tr.errorf("truncated meta-object: missing %s line", m.Name)
			}
			return nil, err
		}
		if line == "" {
			continue
		}
		d, err := parseDescriptorLine(m.Type, line)
		if err != nil {
			return nil, tr.errorf("bad %s: %v", m.Name, err)
		}
		objects[m.Name] = d
	}
	return objects, nil
}

// writeFixedMetaBinary writes the key followed by one member slot per table
// entry.
func writeFixedMetaBinary(w io.Writer, members []AggregationMember, o MetaObject) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(o.Key())
	for _, m := range members {
		bw.writeMember(o.Object(m.Name))
	}
	return bw.finish()
}

// fixedMetaBinarySize returns the size writeFixedMetaBinary produces.
func fixedMetaBinarySize(members []AggregationMember, o MetaObject) int {
	n := keyBinarySize(o.Key())
	for _, m := range members {
		n += memberBinarySize(o.Object(m.Name))
	}
	return n
}

// readFixedMetaBinary reads the counterpart of writeFixedMetaBinary. The
// returned key must be attached by the caller.
func readFixedMetaBinary(br *binaryReader, members []AggregationMember) (Key, map[string]Descriptor, error) {
	key := br.readKey()
	objects := make(map[string]Descriptor, len(members))
	for _, m := range members {
		d := br.readMember(m.Type)
		if br.err != nil {
			return nil, nil, br.err
		}
		if d != nil {
			objects[m.Name] = d
		}
	}
	return key, objects, nil
}

// metaDataEquals compares the member sets of two meta-objects slot by slot.
func metaDataEquals(members []AggregationMember, a, b MetaObject) bool {
	for _, m := range members {
		da := a.Object(m.Name)
		db := b.Object(m.Name)
		switch {
		case da == nil && db == nil:
		case da == nil || db == nil:
			return false
		case !da.DataEquals(db):
			return false
		}
	}
	return true
}
