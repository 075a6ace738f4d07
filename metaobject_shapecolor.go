package prism

import (
	"fmt"
	"io"
)

// ============================================================================
// SHAPE AND COLOR META-OBJECTS
// ============================================================================
//
// ShapeAndColor is the standard visual profile of an image: five MPEG-7
// descriptors under well-known member names, aggregated with weights tuned
// for image retrieval. ShapeAndColorKeywords extends it with an annotation
// keyword set for combined visual/text search.

// Member slot names of the shape-and-color family.
const (
	ColorLayoutType    = "ColorLayoutType"
	ColorStructureType = "ColorStructureType"
	EdgeHistogramType  = "EdgeHistogramType"
	RegionShapeType    = "RegionShapeType"
	ScalableColorType  = "ScalableColorType"
	KeyWordsType       = "KeyWordsType"
)

// shapeAndColorMembers fixes the member order, types and aggregation
// parameters. Text and binary serialization follow this order; changing it
// breaks stored dumps.
var shapeAndColorMembers = []AggregationMember{
	{Name: ColorLayoutType, Type: TypeColorLayout, Weight: 2.0, Norm: 1.0 / 300.0},
	{Name: ColorStructureType, Type: TypeShortVector, Weight: 3.0, Norm: 1.0 / (40.0 * 255.0)},
	{Name: EdgeHistogramType, Type: TypeEdgeHistogram, Weight: 4.0, Norm: 1.0 / 68.0},
	{Name: RegionShapeType, Type: TypeRegionShape, Weight: 4.0, Norm: 1.0 / 8.0},
	{Name: ScalableColorType, Type: TypeIntVector, Weight: 2.0, Norm: 1.0 / 3000.0},
}

// shapeAndColorKeywordsMembers appends the keyword slot to the visual five.
var shapeAndColorKeywordsMembers = append(
	append([]AggregationMember(nil), shapeAndColorMembers...),
	AggregationMember{Name: KeyWordsType, Type: TypeKeyWordSet, Weight: 3.0, Norm: 1.0},
)

// memberTypeError reports a member descriptor of the wrong concrete type.
func memberTypeError(name, wantType string, got Descriptor) error {
	return fmt.Errorf("%w: member %s must be %s, got %s", ErrTypeMismatch, name, wantType, got.TypeName())
}

// ----------------------------------------------------------------------------
// ShapeAndColor
// ----------------------------------------------------------------------------

// ShapeAndColor aggregates the five MPEG-7 visual descriptors of an image.
// Any member may be nil; absent members are skipped in distances and
// serialized as placeholders.
type ShapeAndColor struct {
	keyedObject
	colorLayout    *ColorLayout
	colorStructure *ShortVector
	edgeHistogram  *EdgeHistogram
	regionShape    *RegionShape
	scalableColor  *IntVector
}

// NewShapeAndColor creates a shape-and-color profile from explicit members.
// Any member may be nil.
func NewShapeAndColor(colorLayout *ColorLayout, colorStructure *ShortVector, edgeHistogram *EdgeHistogram, regionShape *RegionShape, scalableColor *IntVector) *ShapeAndColor {
	return &ShapeAndColor{
		colorLayout:    colorLayout,
		colorStructure: colorStructure,
		edgeHistogram:  edgeHistogram,
		regionShape:    regionShape,
		scalableColor:  scalableColor,
	}
}

// NewShapeAndColorFromMap creates a shape-and-color profile from a member
// map. Names outside the fixed table are ignored. With cloneObjects set the
// members are deep-copied and stamped with the meta-object's key.
func NewShapeAndColorFromMap(key Key, objects map[string]Descriptor, cloneObjects bool) (*ShapeAndColor, error) {
	o := &ShapeAndColor{}
	o.key = key
	for name, d := range objects {
		if err := o.setMember(name, adoptMember(d, key, cloneObjects)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewShapeAndColorFromMeta copies the matching members of another
// meta-object, key included.
func NewShapeAndColorFromMeta(meta MetaObject, cloneObjects bool) (*ShapeAndColor, error) {
	o := &ShapeAndColor{}
	o.key = meta.Key()
	for _, m := range shapeAndColorMembers {
		d := meta.Object(m.Name)
		if d == nil {
			continue
		}
		if err := o.setMember(m.Name, adoptMember(d, o.key, cloneObjects)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// setMember assigns one named member, verifying its concrete type. Unknown
// names are ignored.
func (o *ShapeAndColor) setMember(name string, d Descriptor) error {
	if d == nil {
		return nil
	}
	switch name {
	case ColorLayoutType:
		v, ok := d.(*ColorLayout)
		if !ok {
			return memberTypeError(name, TypeColorLayout, d)
		}
		o.colorLayout = v
	case ColorStructureType:
		v, ok := d.(*ShortVector)
		if !ok {
			return memberTypeError(name, TypeShortVector, d)
		}
		o.colorStructure = v
	case EdgeHistogramType:
		v, ok := d.(*EdgeHistogram)
		if !ok {
			return memberTypeError(name, TypeEdgeHistogram, d)
		}
		o.edgeHistogram = v
	case RegionShapeType:
		v, ok := d.(*RegionShape)
		if !ok {
			return memberTypeError(name, TypeRegionShape, d)
		}
		o.regionShape = v
	case ScalableColorType:
		v, ok := d.(*IntVector)
		if !ok {
			return memberTypeError(name, TypeIntVector, d)
		}
		o.scalableColor = v
	}
	return nil
}

// TypeName returns TypeShapeAndColor.
func (o *ShapeAndColor) TypeName() string {
	return TypeShapeAndColor
}

// ObjectNames returns the member slot names in aggregation order.
func (o *ShapeAndColor) ObjectNames() []string {
	names := make([]string, len(shapeAndColorMembers))
	for i, m := range shapeAndColorMembers {
		names[i] = m.Name
	}
	return names
}

// Object returns the named member, or nil when absent or unknown.
func (o *ShapeAndColor) Object(name string) Descriptor {
	switch name {
	case ColorLayoutType:
		if o.colorLayout != nil {
			return o.colorLayout
		}
	case ColorStructureType:
		if o.colorStructure != nil {
			return o.colorStructure
		}
	case EdgeHistogramType:
		if o.edgeHistogram != nil {
			return o.edgeHistogram
		}
	case RegionShapeType:
		if o.regionShape != nil {
			return o.regionShape
		}
	case ScalableColorType:
		if o.scalableColor != nil {
			return o.scalableColor
		}
	}
	return nil
}

// ObjectMap returns the present members keyed by slot name.
func (o *ShapeAndColor) ObjectMap() map[string]Descriptor {
	m := make(map[string]Descriptor, len(shapeAndColorMembers))
	for _, mem := range shapeAndColorMembers {
		if d := o.Object(mem.Name); d != nil {
			m[mem.Name] = d
		}
	}
	return m
}

// ObjectCount returns the number of present members.
func (o *ShapeAndColor) ObjectCount() int {
	n := 0
	for _, mem := range shapeAndColorMembers {
		if o.Object(mem.Name) != nil {
			n++
		}
	}
	return n
}

// MaxDistance returns the sum of the member weights, 15.
func (o *ShapeAndColor) MaxDistance() float32 {
	return aggregateMaxDistance(shapeAndColorMembers)
}

// asShapeAndColor extracts the shape-and-color view of a descriptor. A
// ShapeAndColorKeywords operand is accepted through its embedded base, so
// mixed comparisons rank on the five shared visual members.
func asShapeAndColor(d Descriptor) (*ShapeAndColor, bool) {
	switch v := d.(type) {
	case *ShapeAndColor:
		return v, true
	case *ShapeAndColorKeywords:
		return &v.ShapeAndColor, true
	default:
		return nil, false
	}
}

// Distance returns the weighted aggregate distance over the five visual
// members. See DistanceDetails for the per-member breakdown.
func (o *ShapeAndColor) Distance(other Descriptor, threshold float32) (float32, error) {
	return o.DistanceDetails(other, nil, threshold)
}

// DistanceDetails computes the aggregate distance and, when subDistances is
// non-nil, stores each member's normalized distance into the slot matching
// its ObjectNames position. Members absent on either side are skipped and
// leave their slot untouched.
func (o *ShapeAndColor) DistanceDetails(other Descriptor, subDistances []float32, threshold float32) (float32, error) {
	b, ok := asShapeAndColor(other)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, o.TypeName(), other.TypeName())
	}
	return aggregateDistance(shapeAndColorMembers, o, b, subDistances, threshold)
}

// WriteText writes one line per member slot in table order; absent members
// produce a blank placeholder line.
func (o *ShapeAndColor) WriteText(w io.Writer) error {
	return writeFixedMetaText(w, shapeAndColorMembers, o)
}

// WriteBinary writes the key followed by one size-prefixed slot per member.
func (o *ShapeAndColor) WriteBinary(w io.Writer) (int64, error) {
	return writeFixedMetaBinary(w, shapeAndColorMembers, o)
}

// BinarySize returns the exact size of the binary serialization.
func (o *ShapeAndColor) BinarySize() int {
	return fixedMetaBinarySize(shapeAndColorMembers, o)
}

// DataEquals reports member-wise data equality with another ShapeAndColor.
func (o *ShapeAndColor) DataEquals(other Descriptor) bool {
	b, ok := other.(*ShapeAndColor)
	return ok && metaDataEquals(shapeAndColorMembers, o, b)
}

// Clone returns a deep copy: every member is cloned.
func (o *ShapeAndColor) Clone() Descriptor {
	c := &ShapeAndColor{}
	c.key = o.key
	o.cloneMembersInto(c)
	return c
}

// cloneMembersInto deep-copies the five visual members into dst.
func (o *ShapeAndColor) cloneMembersInto(dst *ShapeAndColor) {
	if o.colorLayout != nil {
		dst.colorLayout = o.colorLayout.Clone().(*ColorLayout)
	}
	if o.colorStructure != nil {
		dst.colorStructure = o.colorStructure.Clone().(*ShortVector)
	}
	if o.edgeHistogram != nil {
		dst.edgeHistogram = o.edgeHistogram.Clone().(*EdgeHistogram)
	}
	if o.regionShape != nil {
		dst.regionShape = o.regionShape.Clone().(*RegionShape)
	}
	if o.scalableColor != nil {
		dst.scalableColor = o.scalableColor.Clone().(*IntVector)
	}
}

func readShapeAndColorText(tr *TextReader) (Descriptor, error) {
	objects, err := readFixedMetaText(tr, shapeAndColorMembers)
	if err != nil {
		return nil, err
	}
	o := &ShapeAndColor{}
	for name, d := range objects {
		if err := o.setMember(name, d); err != nil {
			return nil, tr.errorf("%v", err)
		}
	}
	if k := tr.TakeKey(); k != nil {
		o.key = k
	}
	return o, nil
}

func readShapeAndColorBinary(br *binaryReader) (Descriptor, error) {
	key, objects, err := readFixedMetaBinary(br, shapeAndColorMembers)
	if err != nil {
		return nil, err
	}
	o := &ShapeAndColor{}
	o.key = key
	for name, d := range objects {
		if err := o.setMember(name, d); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Verify interface compliance at compile time.
var _ MetaObject = (*ShapeAndColor)(nil)

// ----------------------------------------------------------------------------
// ShapeAndColorKeywords
// ----------------------------------------------------------------------------

// ShapeAndColorKeywords extends ShapeAndColor with an annotation keyword
// set, for combined visual and text ranking.
type ShapeAndColorKeywords struct {
	ShapeAndColor
	keyWords *KeyWordSet
}

// NewShapeAndColorKeywords creates the profile from explicit members. Any
// member may be nil.
func NewShapeAndColorKeywords(colorLayout *ColorLayout, colorStructure *ShortVector, edgeHistogram *EdgeHistogram, regionShape *RegionShape, scalableColor *IntVector, keyWords *KeyWordSet) *ShapeAndColorKeywords {
	return &ShapeAndColorKeywords{
		ShapeAndColor: ShapeAndColor{
			colorLayout:    colorLayout,
			colorStructure: colorStructure,
			edgeHistogram:  edgeHistogram,
			regionShape:    regionShape,
			scalableColor:  scalableColor,
		},
		keyWords: keyWords,
	}
}

// NewShapeAndColorKeywordsFromMap creates the profile from a member map.
// Names outside the fixed table are ignored. With cloneObjects set the
// members are deep-copied and stamped with the meta-object's key.
func NewShapeAndColorKeywordsFromMap(key Key, objects map[string]Descriptor, cloneObjects bool) (*ShapeAndColorKeywords, error) {
	o := &ShapeAndColorKeywords{}
	o.key = key
	for name, d := range objects {
		if err := o.setMember(name, adoptMember(d, key, cloneObjects)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewShapeAndColorKeywordsFromMeta copies the matching members of another
// meta-object, key included. A plain ShapeAndColor source fills the visual
// slots and leaves the keyword slot empty.
func NewShapeAndColorKeywordsFromMeta(meta MetaObject, cloneObjects bool) (*ShapeAndColorKeywords, error) {
	o := &ShapeAndColorKeywords{}
	o.key = meta.Key()
	for _, m := range shapeAndColorKeywordsMembers {
		d := meta.Object(m.Name)
		if d == nil {
			continue
		}
		if err := o.setMember(m.Name, adoptMember(d, o.key, cloneObjects)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// setMember assigns one named member, verifying its concrete type. Unknown
// names are ignored.
func (o *ShapeAndColorKeywords) setMember(name string, d Descriptor) error {
	if name == KeyWordsType {
		if d == nil {
			return nil
		}
		v, ok := d.(*KeyWordSet)
		if !ok {
			return memberTypeError(name, TypeKeyWordSet, d)
		}
		o.keyWords = v
		return nil
	}
	return o.ShapeAndColor.setMember(name, d)
}

// TypeName returns TypeShapeAndColorKeywords.
func (o *ShapeAndColorKeywords) TypeName() string {
	return TypeShapeAndColorKeywords
}

// ObjectNames returns the member slot names in aggregation order.
func (o *ShapeAndColorKeywords) ObjectNames() []string {
	names := make([]string, len(shapeAndColorKeywordsMembers))
	for i, m := range shapeAndColorKeywordsMembers {
		names[i] = m.Name
	}
	return names
}

// Object returns the named member, or nil when absent or unknown.
func (o *ShapeAndColorKeywords) Object(name string) Descriptor {
	if name == KeyWordsType {
		if o.keyWords != nil {
			return o.keyWords
		}
		return nil
	}
	return o.ShapeAndColor.Object(name)
}

// ObjectMap returns the present members keyed by slot name. Every entry is
// guarded by its own presence check.
func (o *ShapeAndColorKeywords) ObjectMap() map[string]Descriptor {
	m := make(map[string]Descriptor, len(shapeAndColorKeywordsMembers))
	for _, mem := range shapeAndColorKeywordsMembers {
		if d := o.Object(mem.Name); d != nil {
			m[mem.Name] = d
		}
	}
	return m
}

// ObjectCount returns the number of present members.
func (o *ShapeAndColorKeywords) ObjectCount() int {
	n := o.ShapeAndColor.ObjectCount()
	if o.keyWords != nil {
		n++
	}
	return n
}

// MaxDistance returns the sum of the member weights, 18.
func (o *ShapeAndColorKeywords) MaxDistance() float32 {
	return aggregateMaxDistance(shapeAndColorKeywordsMembers)
}

// Distance returns the weighted aggregate distance over all six members.
func (o *ShapeAndColorKeywords) Distance(other Descriptor, threshold float32) (float32, error) {
	return o.DistanceDetails(other, nil, threshold)
}

// DistanceDetails computes the aggregate distance with an optional
// per-member breakdown, as in ShapeAndColor.DistanceDetails.
func (o *ShapeAndColorKeywords) DistanceDetails(other Descriptor, subDistances []float32, threshold float32) (float32, error) {
	b, ok := other.(*ShapeAndColorKeywords)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, o.TypeName(), other.TypeName())
	}
	return aggregateDistance(shapeAndColorKeywordsMembers, o, b, subDistances, threshold)
}

// WriteText writes one line per member slot in table order; absent members
// produce a blank placeholder line.
func (o *ShapeAndColorKeywords) WriteText(w io.Writer) error {
	return writeFixedMetaText(w, shapeAndColorKeywordsMembers, o)
}

// WriteBinary writes the key followed by one size-prefixed slot per member.
func (o *ShapeAndColorKeywords) WriteBinary(w io.Writer) (int64, error) {
	return writeFixedMetaBinary(w, shapeAndColorKeywordsMembers, o)
}

// BinarySize returns the exact size of the binary serialization.
func (o *ShapeAndColorKeywords) BinarySize() int {
	return fixedMetaBinarySize(shapeAndColorKeywordsMembers, o)
}

// DataEquals reports member-wise data equality with another
// ShapeAndColorKeywords.
func (o *ShapeAndColorKeywords) DataEquals(other Descriptor) bool {
	b, ok := other.(*ShapeAndColorKeywords)
	return ok && metaDataEquals(shapeAndColorKeywordsMembers, o, b)
}

// Clone returns a deep copy: every member is cloned.
func (o *ShapeAndColorKeywords) Clone() Descriptor {
	c := &ShapeAndColorKeywords{}
	c.key = o.key
	o.cloneMembersInto(&c.ShapeAndColor)
	if o.keyWords != nil {
		c.keyWords = o.keyWords.Clone().(*KeyWordSet)
	}
	return c
}

func readShapeAndColorKeywordsText(tr *TextReader) (Descriptor, error) {
	objects, err := readFixedMetaText(tr, shapeAndColorKeywordsMembers)
	if err != nil {
		return nil, err
	}
	o := &ShapeAndColorKeywords{}
	for name, d := range objects {
		if err := o.setMember(name, d); err != nil {
			return nil, tr.errorf("%v", err)
		}
	}
	if k := tr.TakeKey(); k != nil {
		o.key = k
	}
	return o, nil
}

func readShapeAndColorKeywordsBinary(br *binaryReader) (Descriptor, error) {
	key, objects, err := readFixedMetaBinary(br, shapeAndColorKeywordsMembers)
	if err != nil {
		return nil, err
	}
	o := &ShapeAndColorKeywords{}
	o.key = key
	for name, d := range objects {
		if err := o.setMember(name, d); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Verify interface compliance at compile time.
var _ MetaObject = (*ShapeAndColorKeywords)(nil)
