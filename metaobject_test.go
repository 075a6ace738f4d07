package prism

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testRegionShape(t *testing.T, first byte) *RegionShape {
	t.Helper()
	coeffs := make([]byte, 35)
	coeffs[0] = first
	rs, err := NewRegionShape(coeffs)
	if err != nil {
		t.Fatalf("failed to create region shape: %v", err)
	}
	return rs
}

func testColorLayout(t *testing.T, swap bool) *ColorLayout {
	t.Helper()
	y := []byte{10, 13, 20}
	cb := []byte{8, 6, 8}
	cr := []byte{5, 5, 5}
	if swap {
		y = []byte{13, 10, 20}
		cb = []byte{8, 8, 8}
		cr = []byte{7, 5, 5}
	}
	cl, err := NewColorLayout(y, cb, cr)
	if err != nil {
		t.Fatalf("failed to create color layout: %v", err)
	}
	return cl
}

// ===== AGGREGATE DISTANCE TESTS =====

func TestShapeAndColorMaxDistance(t *testing.T) {
	sc := NewShapeAndColor(nil, nil, nil, nil, nil)
	if sc.MaxDistance() != 15 {
		t.Errorf("expected maximum distance 15, got %v", sc.MaxDistance())
	}

	sck := NewShapeAndColorKeywords(nil, nil, nil, nil, nil, nil)
	if sck.MaxDistance() != 18 {
		t.Errorf("expected maximum distance 18, got %v", sck.MaxDistance())
	}
}

func TestShapeAndColorSingleMemberDistance(t *testing.T) {
	// Only the region shape is present on both sides: its raw distance is
	// scaled by weight 4 and norm 1/8.
	a := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 0), nil)
	b := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 15), nil)

	rsDist := regionShapeIQuantTable[15] - regionShapeIQuantTable[0]
	want := rsDist / 2

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, want) {
		t.Errorf("expected distance %v, got %v", want, d)
	}
}

func TestShapeAndColorDistanceDetails(t *testing.T) {
	a := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 0), nil)
	b := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 15), nil)

	subDistances := []float32{-1, -1, -1, -1, -1}
	if _, err := a.DistanceDetails(b, subDistances, MaxDistance); err != nil {
		t.Fatalf("distance failed: %v", err)
	}

	// Skipped members leave their slot untouched.
	for i, v := range subDistances {
		if i == 3 {
			continue
		}
		if v != -1 {
			t.Errorf("slot %d overwritten: %v", i, v)
		}
	}
	rsDist := regionShapeIQuantTable[15] - regionShapeIQuantTable[0]
	if !almostEqual(subDistances[3], rsDist/8) {
		t.Errorf("expected normalized member distance %v, got %v", rsDist/8, subDistances[3])
	}
}

func TestShapeAndColorMultiMemberDistance(t *testing.T) {
	a := NewShapeAndColor(testColorLayout(t, false), nil, nil, testRegionShape(t, 0), nil)
	b := NewShapeAndColor(testColorLayout(t, true), nil, nil, testRegionShape(t, 15), nil)

	rsDist := regionShapeIQuantTable[15] - regionShapeIQuantTable[0]
	want := 12*2.0/300.0 + rsDist/2

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, want) {
		t.Errorf("expected distance %v, got %v", want, d)
	}
}

func TestShapeAndColorPartialOverlap(t *testing.T) {
	// Members present on only one side do not contribute.
	a := NewShapeAndColor(testColorLayout(t, false), nil, nil, testRegionShape(t, 0), nil)
	b := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 15), nil)

	rsDist := regionShapeIQuantTable[15] - regionShapeIQuantTable[0]
	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, rsDist/2) {
		t.Errorf("expected distance %v, got %v", rsDist/2, d)
	}
}

func TestShapeAndColorEmptyOperands(t *testing.T) {
	a := NewShapeAndColor(nil, nil, nil, nil, nil)
	b := NewShapeAndColor(nil, nil, nil, nil, nil)

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d != 0 {
		t.Errorf("operands without shared members should be at distance 0, got %v", d)
	}
}

func TestShapeAndColorThreshold(t *testing.T) {
	a := NewShapeAndColor(testColorLayout(t, false), nil, nil, testRegionShape(t, 0), nil)
	b := NewShapeAndColor(testColorLayout(t, true), nil, nil, testRegionShape(t, 15), nil)

	// The color layout member alone contributes 0.08, so a threshold of
	// 0.05 must be exceeded before the region shape is compared.
	d, err := a.Distance(b, 0.05)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d <= 0.05 {
		t.Errorf("expected distance above threshold 0.05, got %v", d)
	}
}

func TestShapeAndColorTypeMismatch(t *testing.T) {
	a := NewShapeAndColor(nil, nil, nil, nil, nil)
	v, _ := NewByteVector([]byte{1})

	if _, err := a.Distance(v, MaxDistance); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

// ===== KEYWORD VARIANT TESTS =====

func TestShapeAndColorKeywordsDistance(t *testing.T) {
	kwA, _ := NewKeyWordSet([]int32{1, 3}, []int32{2}, []int32{})
	kwB, _ := NewKeyWordSet([]int32{1}, []int32{}, []int32{2})
	a := NewShapeAndColorKeywords(nil, nil, nil, nil, nil, kwA)
	b := NewShapeAndColorKeywords(nil, nil, nil, nil, nil, kwB)

	// Keyword distance 0.4 scaled by weight 3.
	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 1.2) {
		t.Errorf("expected distance 1.2, got %v", d)
	}
}

func TestShapeAndColorAcceptsKeywordVariant(t *testing.T) {
	sc := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 0), nil)
	kw, _ := NewKeyWordSet([]int32{1}, []int32{}, []int32{})
	sck := NewShapeAndColorKeywords(nil, nil, nil, testRegionShape(t, 15), nil, kw)

	// The base profile ranks a keyword variant on the shared visual
	// members.
	rsDist := regionShapeIQuantTable[15] - regionShapeIQuantTable[0]
	d, err := sc.Distance(sck, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, rsDist/2) {
		t.Errorf("expected distance %v, got %v", rsDist/2, d)
	}

	// The reverse direction requires the full keyword profile.
	if _, err := sck.Distance(sc, MaxDistance); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

// ===== CONSTRUCTION TESTS =====

func TestShapeAndColorFromMap(t *testing.T) {
	rs := testRegionShape(t, 3)
	key := LocatorKey("img42")

	sc, err := NewShapeAndColorFromMap(key, map[string]Descriptor{
		RegionShapeType: rs,
		"SomethingElse": rs,
	}, true)
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if sc.Locator() != "img42" {
		t.Errorf("expected locator %q, got %q", "img42", sc.Locator())
	}
	if sc.ObjectCount() != 1 {
		t.Errorf("unknown member names should be ignored, got %d members", sc.ObjectCount())
	}

	member := sc.Object(RegionShapeType)
	if member == nil {
		t.Fatal("expected region shape member")
	}
	if member.Locator() != "img42" {
		t.Errorf("cloned member should be stamped with the key, got %q", member.Locator())
	}

	// Cloned members own their storage: modifying the source descriptor
	// afterwards must not leak in.
	rs.coeffs[0] = 9
	if member.DataEquals(rs) {
		t.Error("member should have been cloned")
	}
}

func TestShapeAndColorFromMapWrongType(t *testing.T) {
	v, _ := NewByteVector([]byte{1})

	_, err := NewShapeAndColorFromMap(nil, map[string]Descriptor{RegionShapeType: v}, false)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestNewShapeAndColorFromMeta(t *testing.T) {
	kw, _ := NewKeyWordSet([]int32{1}, []int32{}, []int32{})
	sck := NewShapeAndColorKeywords(testColorLayout(t, false), nil, nil, testRegionShape(t, 2), nil, kw)
	sck.SetKey(LocatorKey("derived"))

	sc, err := NewShapeAndColorFromMeta(sck, true)
	if err != nil {
		t.Fatalf("failed to derive profile: %v", err)
	}
	if sc.Locator() != "derived" {
		t.Errorf("expected locator %q, got %q", "derived", sc.Locator())
	}
	// The keyword member has no slot in the base profile.
	if sc.ObjectCount() != 2 {
		t.Errorf("expected 2 visual members, got %d", sc.ObjectCount())
	}
	if sc.Object(ColorLayoutType) == nil || sc.Object(RegionShapeType) == nil {
		t.Error("visual members should be copied")
	}
}

func TestNewShapeAndColorKeywordsFromMeta(t *testing.T) {
	kw, _ := NewKeyWordSet([]int32{1, 2}, []int32{}, []int32{})
	src := NewShapeAndColorKeywords(nil, nil, nil, testRegionShape(t, 2), nil, kw)
	src.SetKey(LocatorKey("src"))

	got, err := NewShapeAndColorKeywordsFromMeta(src, false)
	if err != nil {
		t.Fatalf("failed to derive profile: %v", err)
	}
	if got.Locator() != "src" {
		t.Errorf("expected locator %q, got %q", "src", got.Locator())
	}
	if got.Object(KeyWordsType) == nil {
		t.Error("keyword member should be copied")
	}
	if !got.DataEquals(src) {
		t.Error("derived profile should equal source")
	}

	// A plain visual profile fills only the visual slots.
	visual := NewShapeAndColor(testColorLayout(t, false), nil, nil, nil, nil)
	got, err = NewShapeAndColorKeywordsFromMeta(visual, false)
	if err != nil {
		t.Fatalf("failed to derive profile: %v", err)
	}
	if got.Object(KeyWordsType) != nil {
		t.Error("keyword slot should stay empty")
	}
	if got.Object(ColorLayoutType) == nil {
		t.Error("visual member should be copied")
	}
}

// ===== SERIALIZATION TESTS =====

func TestShapeAndColorTextRoundTrip(t *testing.T) {
	a := NewShapeAndColor(testColorLayout(t, false), nil, testEdgeHistogramDescriptor(t), nil, nil)
	a.SetKey(LocatorKey("img-77"))

	var buf bytes.Buffer
	if err := WriteObjectText(&buf, a); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	// One line per member slot: absent members leave blank placeholders.
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected key comment plus 5 member lines, got %d lines", len(lines))
	}
	if lines[2] != "" || lines[4] != "" || lines[5] != "" {
		t.Errorf("absent members should serialize as blank lines: %q", lines)
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeShapeAndColor)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(a) {
		t.Error("round trip changed data")
	}
	if got.Locator() != "img-77" {
		t.Errorf("round trip lost the key, got %q", got.Locator())
	}
}

func TestShapeAndColorTextAllAbsent(t *testing.T) {
	a := NewShapeAndColor(nil, nil, nil, nil, nil)

	var buf bytes.Buffer
	if err := WriteObjectText(&buf, a); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	if buf.String() != "\n\n\n\n\n" {
		t.Errorf("expected five blank lines, got %q", buf.String())
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeShapeAndColor)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(a) {
		t.Error("round trip changed data")
	}
}

func TestShapeAndColorTextTruncated(t *testing.T) {
	_, err := ReadObjectText(NewTextReader(strings.NewReader("10,13,20;8,6,8;5,5,5\n")), TypeShapeAndColor)
	if err == nil {
		t.Fatal("expected error for truncated meta-object")
	}
	if !strings.Contains(err.Error(), "truncated") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestShapeAndColorBinaryRoundTrip(t *testing.T) {
	a := NewShapeAndColor(testColorLayout(t, false), nil, nil, testRegionShape(t, 5), nil)
	a.SetKey(LocatorKey("img-88"))

	var buf bytes.Buffer
	n, err := WriteObjectBinary(&buf, a)
	if err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	if int(n) != ObjectBinarySize(a) {
		t.Errorf("ObjectBinarySize = %d, wrote %d", ObjectBinarySize(a), n)
	}

	got, err := ReadObjectBinary(&buf)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(a) {
		t.Error("round trip changed data")
	}
	if got.Locator() != "img-88" {
		t.Errorf("round trip lost the key, got %q", got.Locator())
	}
}

func TestShapeAndColorKeywordsRoundTrips(t *testing.T) {
	kw, _ := NewKeyWordSetTerritories([]int32{4, 2}, []int32{}, []int32{7}, []int32{840})
	a := NewShapeAndColorKeywords(testColorLayout(t, false), nil, nil, nil, nil, kw)
	a.SetKey(LocatorKey("img-99"))

	var text bytes.Buffer
	if err := WriteObjectText(&text, a); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	gotText, err := ReadObjectText(NewTextReader(&text), TypeShapeAndColorKeywords)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !gotText.DataEquals(a) {
		t.Error("text round trip changed data")
	}

	var bin bytes.Buffer
	n, err := WriteObjectBinary(&bin, a)
	if err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	if int(n) != ObjectBinarySize(a) {
		t.Errorf("ObjectBinarySize = %d, wrote %d", ObjectBinarySize(a), n)
	}
	gotBin, err := ReadObjectBinary(&bin)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !gotBin.DataEquals(a) {
		t.Error("binary round trip changed data")
	}
	if gotBin.Locator() != "img-99" {
		t.Errorf("round trip lost the key, got %q", gotBin.Locator())
	}
}

// ===== EQUALITY AND CLONE TESTS =====

func TestShapeAndColorDataEquals(t *testing.T) {
	a := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 1), nil)
	b := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 1), nil)
	c := NewShapeAndColor(nil, nil, nil, testRegionShape(t, 2), nil)
	empty := NewShapeAndColor(nil, nil, nil, nil, nil)

	if !a.DataEquals(b) {
		t.Error("equal profiles should compare equal")
	}
	if a.DataEquals(c) {
		t.Error("different member data should not compare equal")
	}
	if a.DataEquals(empty) {
		t.Error("absent versus present members should not compare equal")
	}

	kw, _ := NewKeyWordSet([]int32{1}, []int32{}, []int32{})
	sck := NewShapeAndColorKeywords(nil, nil, nil, testRegionShape(t, 1), nil, kw)
	if a.DataEquals(sck) {
		t.Error("base and keyword profiles are different types")
	}
}

func TestShapeAndColorClone(t *testing.T) {
	a := NewShapeAndColor(testColorLayout(t, false), nil, nil, testRegionShape(t, 1), nil)
	a.SetKey(LocatorKey("orig"))

	c := a.Clone().(*ShapeAndColor)
	if !c.DataEquals(a) {
		t.Error("clone should equal original")
	}
	if c.Locator() != "orig" {
		t.Errorf("clone should carry the key, got %q", c.Locator())
	}

	// Member descriptors are cloned too.
	a.regionShape.coeffs[0] = 9
	if c.DataEquals(a) {
		t.Error("clone shares member storage with original")
	}
}

func testEdgeHistogramDescriptor(t *testing.T) *EdgeHistogram {
	t.Helper()
	eh, err := NewEdgeHistogram(testEdgeHistogramBins(2))
	if err != nil {
		t.Fatalf("failed to create edge histogram: %v", err)
	}
	return eh
}
