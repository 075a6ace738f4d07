package prism

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// KEYWORD SETS
// ============================================================================
//
// KeyWordSet is the textual annotation descriptor of an object: three layers
// of word identifiers by origin (title words, author keywords, search terms),
// compared with a weighted Jaccard distance that counts title matches double.
// An optional fourth identifier set carries territory codes and is metadata
// only: it serializes with the descriptor but does not enter the distance.

// Keyword layer indexes.
const (
	KeyWordLayerTitle    = 0
	KeyWordLayerKeywords = 1
	KeyWordLayerSearch   = 2

	keyWordLayerCount = 3
)

// defaultKeyWordWeights is the reference origin weighting: title matches
// count double.
var defaultKeyWordWeights = NewLayerWeights(2, 1, 1)

// normalizeText applies Unicode normalization (NFKC) and converts to
// lowercase.
func normalizeText(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// SplitWords normalizes free text and splits it into words using UAX#29 word
// segmentation. Segments without a letter or digit (punctuation, whitespace)
// are discarded.
func SplitWords(text string) []string {
	toks := words.FromString(normalizeText(text))
	var out []string
	for toks.Next() {
		tok := toks.Value()
		if isWordToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// WordsToIDs converts words to sorted identifiers through a read-only word
// index. Words missing from the vocabulary are dropped from the result and
// returned separately so callers can log or count them.
func WordsToIDs(ix WordIndex, ws []string) (ids []int32, dropped []string) {
	ids = make([]int32, 0, len(ws))
	for _, w := range ws {
		id, err := ix.WordID(w)
		if err != nil {
			dropped = append(dropped, w)
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, dropped
}

// RegisterWords converts words to sorted identifiers, growing the vocabulary
// as needed. Unlike WordsToIDs it never drops words.
func RegisterWords(reg WordRegistry, ws []string) ([]int32, error) {
	ids := make([]int32, 0, len(ws))
	for _, w := range ws {
		id, err := reg.Register(w)
		if err != nil {
			return nil, fmt.Errorf("failed to register word %q: %w", w, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// KeyWordSet is the three-layer keyword descriptor with optional territory
// codes.
type KeyWordSet struct {
	IntMultiVector
	territories []int32
}

// NewKeyWordSet creates a keyword set from per-layer identifier slices, each
// sorted in place. All three layers are required; pass empty slices for
// absent origins.
func NewKeyWordSet(title, keywords, search []int32) (*KeyWordSet, error) {
	return NewKeyWordSetTerritories(title, keywords, search, nil)
}

// NewKeyWordSetTerritories additionally attaches territory codes. A nil
// territories slice means "absent" and is preserved as such by both
// serializations; an empty non-nil slice means "present but empty".
func NewKeyWordSetTerritories(title, keywords, search, territories []int32) (*KeyWordSet, error) {
	base, err := NewIntMultiVector([][]int32{title, keywords, search})
	if err != nil {
		return nil, err
	}
	slices.Sort(territories)
	return &KeyWordSet{IntMultiVector: *base, territories: territories}, nil
}

// NewKeyWordSetFromText builds a keyword set from raw text fields: each
// field is normalized, split into words and converted through the word
// index. Words missing from the vocabulary are dropped and returned.
func NewKeyWordSetFromText(ix WordIndex, title, keywords, search string) (*KeyWordSet, []string) {
	titleIDs, dropped := WordsToIDs(ix, SplitWords(title))
	keywordIDs, d2 := WordsToIDs(ix, SplitWords(keywords))
	searchIDs, d3 := WordsToIDs(ix, SplitWords(search))
	dropped = append(dropped, d2...)
	dropped = append(dropped, d3...)

	kws := &KeyWordSet{}
	kws.layers = [][]int32{titleIDs, keywordIDs, searchIDs}
	return kws, dropped
}

// TypeName returns TypeKeyWordSet.
func (d *KeyWordSet) TypeName() string {
	return TypeKeyWordSet
}

// TitleIDs returns the title layer. Callers must not modify the slice.
func (d *KeyWordSet) TitleIDs() []int32 {
	return d.Layer(KeyWordLayerTitle)
}

// KeywordIDs returns the keywords layer. Callers must not modify the slice.
func (d *KeyWordSet) KeywordIDs() []int32 {
	return d.Layer(KeyWordLayerKeywords)
}

// SearchIDs returns the search-terms layer. Callers must not modify the
// slice.
func (d *KeyWordSet) SearchIDs() []int32 {
	return d.Layer(KeyWordLayerSearch)
}

// Territories returns the territory codes, or nil when absent. Callers must
// not modify the slice.
func (d *KeyWordSet) Territories() []int32 {
	return d.territories
}

// Distance computes the weighted Jaccard distance with the default origin
// weighting (title 2, keywords 1, search 1) on both sides. Territories do
// not participate. The result is bounded by 1, so the threshold is not used.
func (d *KeyWordSet) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*KeyWordSet)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	return WeightedJaccardDistance(&d.IntMultiVector, &o.IntMultiVector, defaultKeyWordWeights, defaultKeyWordWeights), nil
}

// DistanceWith computes the weighted Jaccard distance under caller-supplied
// providers, one per operand.
func (d *KeyWordSet) DistanceWith(other *KeyWordSet, wd, wo WeightProvider) float32 {
	return WeightedJaccardDistance(&d.IntMultiVector, &other.IntMultiVector, wd, wo)
}

// WriteText writes one line of three semicolon-separated identifier lists,
// with a fourth list appended when territories are present.
func (d *KeyWordSet) WriteText(w io.Writer) error {
	var buf []byte
	for i := 0; i < keyWordLayerCount; i++ {
		if i > 0 {
			buf = append(buf, ';')
		}
		buf = appendInt32List(buf, d.Layer(i))
	}
	if d.territories != nil {
		buf = append(buf, ';')
		buf = appendInt32List(buf, d.territories)
	}
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// WriteBinary writes the key, the three layers and the territory codes. The
// layer count is static and not encoded; the territories slot uses the -1
// sentinel when absent.
func (d *KeyWordSet) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	for i := 0; i < keyWordLayerCount; i++ {
		bw.writeInt32Array(d.Layer(i))
	}
	bw.writeInt32Array(d.territories)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *KeyWordSet) BinarySize() int {
	n := keyBinarySize(d.key)
	for i := 0; i < keyWordLayerCount; i++ {
		n += arrayBinarySize(len(d.Layer(i)), 4)
	}
	return n + arrayBinarySize(len(d.territories), 4)
}

// DataEquals reports layer and territory equality with another KeyWordSet.
// Absent territories and present-but-empty territories are distinct.
func (d *KeyWordSet) DataEquals(other Descriptor) bool {
	o, ok := other.(*KeyWordSet)
	if !ok || !d.IntMultiVector.DataEquals(&o.IntMultiVector) {
		return false
	}
	if (d.territories == nil) != (o.territories == nil) {
		return false
	}
	return slices.Equal(d.territories, o.territories)
}

// Clone returns a deep copy sharing only the immutable key.
func (d *KeyWordSet) Clone() Descriptor {
	base := d.IntMultiVector.Clone().(*IntMultiVector)
	c := &KeyWordSet{IntMultiVector: *base}
	if d.territories != nil {
		c.territories = make([]int32, len(d.territories))
		copy(c.territories, d.territories)
	}
	return c
}

func parseKeyWordSetLine(line string) (Descriptor, error) {
	parts := strings.Split(line, ";")
	if len(parts) != keyWordLayerCount && len(parts) != keyWordLayerCount+1 {
		return nil, fmt.Errorf("keyword set needs 3 or 4 identifier lists, got %d", len(parts))
	}
	layers := make([][]int32, len(parts))
	for i, part := range parts {
		layer, err := parseInt32Line(part)
		if err != nil {
			return nil, fmt.Errorf("failed to parse keyword list %d: %w", i, err)
		}
		layers[i] = layer
	}
	var territories []int32
	if len(layers) == keyWordLayerCount+1 {
		territories = layers[keyWordLayerCount]
	}
	return NewKeyWordSetTerritories(layers[0], layers[1], layers[2], territories)
}

func readKeyWordSetBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	layers := make([][]int32, keyWordLayerCount)
	for i := range layers {
		layers[i] = br.readInt32Array()
		if br.err == nil && layers[i] == nil {
			return nil, fmt.Errorf("keyword layer %d missing", i)
		}
	}
	territories := br.readInt32Array()
	if br.err != nil {
		return nil, br.err
	}
	d, err := NewKeyWordSetTerritories(layers[0], layers[1], layers[2], territories)
	if err != nil {
		return nil, err
	}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*KeyWordSet)(nil)
