package prism

import (
	"fmt"
	"io"
)

// ============================================================================
// DESCRIPTOR TYPE REGISTRY
// ============================================================================
//
// Streams and binary buffers identify descriptors by type name. The registry
// maps each name to its parsing functions; there is no reflection anywhere in
// the package, so the set of serializable types is explicit and closed.

// Registered descriptor type names.
const (
	TypeByteVector      = "ByteVector"
	TypeShortVector     = "ShortVector"
	TypeIntVector       = "IntVector"
	TypeSortedIntVector = "SortedIntVector"
	TypeFloatVector     = "FloatVector"
	TypeHalfVector      = "HalfVector"
	TypeEdgeHistogram   = "EdgeHistogram"
	TypeColorLayout     = "ColorLayout"
	TypeRegionShape     = "RegionShape"
	TypeString          = "String"
	TypeSmithWaterman   = "SmithWaterman"
	TypeIntMultiVector  = "IntMultiVector"
	TypeKeyWordSet      = "KeyWordSet"
	TypeFace            = "Face"

	TypeShapeAndColor         = "ShapeAndColor"
	TypeShapeAndColorKeywords = "ShapeAndColorKeywords"
	TypeMetaObjectMap         = "MetaObjectMap"
	TypeFeatureSet            = "FeatureSet"
)

// descriptorType bundles the reconstruction functions of one registered type.
type descriptorType struct {
	// parseLine parses the single-line text payload. Nil for container types
	// whose text form spans several lines.
	parseLine func(line string) (Descriptor, error)

	// readText reads one complete object from a text stream, attaching any
	// pending object key.
	readText func(tr *TextReader) (Descriptor, error)

	// readBinary reads the binary body, key included.
	readBinary func(br *binaryReader) (Descriptor, error)
}

// lineType builds the registry entry of a descriptor whose text form is a
// single data line.
func lineType(parse func(string) (Descriptor, error), readBinary func(*binaryReader) (Descriptor, error)) *descriptorType {
	return &descriptorType{
		parseLine: parse,
		readText: func(tr *TextReader) (Descriptor, error) {
			line, err := tr.ReadDataLine()
			if err != nil {
				return nil, err
			}
			d, err := parse(line)
			if err != nil {
				return nil, tr.errorf("%v", err)
			}
			if k := tr.TakeKey(); k != nil {
				d.SetKey(k)
			}
			return d, nil
		},
		readBinary: readBinary,
	}
}

var descriptorTypes map[string]*descriptorType

// The registry is populated in init rather than in the variable initializer:
// container read functions consult the registry themselves, which the
// compiler would otherwise reject as an initialization cycle.
func init() {
	descriptorTypes = map[string]*descriptorType{
		TypeByteVector:      lineType(parseByteVectorLine, readByteVectorBinary),
		TypeShortVector:     lineType(parseShortVectorLine, readShortVectorBinary),
		TypeIntVector:       lineType(parseIntVectorLine, readIntVectorBinary),
		TypeSortedIntVector: lineType(parseSortedIntVectorLine, readSortedIntVectorBinary),
		TypeFloatVector:     lineType(parseFloatVectorLine, readFloatVectorBinary),
		TypeHalfVector:      lineType(parseHalfVectorLine, readHalfVectorBinary),
		TypeEdgeHistogram:   lineType(parseEdgeHistogramLine, readEdgeHistogramBinary),
		TypeColorLayout:     lineType(parseColorLayoutLine, readColorLayoutBinary),
		TypeRegionShape:     lineType(parseRegionShapeLine, readRegionShapeBinary),
		TypeString:          lineType(parseStringObjectLine, readStringObjectBinary),
		TypeSmithWaterman:   lineType(parseSmithWatermanLine, readSmithWatermanBinary),
		TypeIntMultiVector:  lineType(parseIntMultiVectorLine, readIntMultiVectorBinary),
		TypeKeyWordSet:      lineType(parseKeyWordSetLine, readKeyWordSetBinary),
		TypeFace:            lineType(parseFaceLine, readFaceBinary),

		TypeShapeAndColor:         {readText: readShapeAndColorText, readBinary: readShapeAndColorBinary},
		TypeShapeAndColorKeywords: {readText: readShapeAndColorKeywordsText, readBinary: readShapeAndColorKeywordsBinary},
		TypeMetaObjectMap:         {readText: readMetaObjectMapText, readBinary: readMetaObjectMapBinary},
		TypeFeatureSet:            {readText: readFeatureSetText, readBinary: readFeatureSetBinary},
	}
}

// IsRegisteredType reports whether typeName names a readable descriptor type.
func IsRegisteredType(typeName string) bool {
	_, ok := descriptorTypes[typeName]
	return ok
}

// ReadObjectText reads one object of the named type from a text stream.
func ReadObjectText(tr *TextReader, typeName string) (Descriptor, error) {
	t, ok := descriptorTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return t.readText(tr)
}

// parseDescriptorLine parses the one-line text payload of a line-parseable
// type. Container types are rejected.
func parseDescriptorLine(typeName, line string) (Descriptor, error) {
	t, ok := descriptorTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	if t.parseLine == nil {
		return nil, fmt.Errorf("type %q has no single-line form", typeName)
	}
	return t.parseLine(line)
}

// isLineType reports whether typeName parses from a single text line.
func isLineType(typeName string) bool {
	t, ok := descriptorTypes[typeName]
	return ok && t.parseLine != nil
}

// WriteObjectBinary writes a self-identifying binary record: the type name
// followed by the descriptor body. ReadObjectBinary is its inverse.
func WriteObjectBinary(w io.Writer, d Descriptor) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeString(d.TypeName())
	if bw.err == nil {
		n, err := d.WriteBinary(bw.w)
		bw.n += n
		bw.fail(err)
	}
	return bw.finish()
}

// ObjectBinarySize returns the size of the record WriteObjectBinary produces.
func ObjectBinarySize(d Descriptor) int {
	return stringBinarySize(d.TypeName()) + d.BinarySize()
}

// ReadObjectBinary reads a record written by WriteObjectBinary.
func ReadObjectBinary(r io.Reader) (Descriptor, error) {
	br := newBinaryReader(r)
	name := br.readString()
	if br.err != nil {
		return nil, br.err
	}
	t, ok := descriptorTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t.readBinary(br)
}

// readMember reads a size-prefixed nested descriptor of a known type, as
// written by binaryWriter.writeMember. It returns nil for the -1 sentinel and
// verifies that the member consumed exactly its declared size.
func (br *binaryReader) readMember(typeName string) Descriptor {
	size := br.readInt32()
	if br.err != nil || size < 0 {
		return nil
	}
	t, ok := descriptorTypes[typeName]
	if !ok {
		br.fail(fmt.Errorf("%w: %q", ErrUnknownType, typeName))
		return nil
	}
	start := br.n
	d, err := t.readBinary(br)
	if err != nil {
		br.fail(err)
		return nil
	}
	if got := br.n - start; got != int64(size) {
		br.fail(fmt.Errorf("member %s: declared %d bytes, read %d", typeName, size, got))
		return nil
	}
	return d
}
