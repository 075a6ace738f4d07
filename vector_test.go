package prism

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-6

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < epsilon
}

// ===== CONSTRUCTOR TESTS =====

func TestVectorConstructorsRejectNil(t *testing.T) {
	if _, err := NewByteVector(nil); err == nil {
		t.Error("NewByteVector(nil) should fail")
	}
	if _, err := NewShortVector(nil); err == nil {
		t.Error("NewShortVector(nil) should fail")
	}
	if _, err := NewIntVector(nil); err == nil {
		t.Error("NewIntVector(nil) should fail")
	}
	if _, err := NewSortedIntVector(nil); err == nil {
		t.Error("NewSortedIntVector(nil) should fail")
	}
	if _, err := NewFloatVector(nil); err == nil {
		t.Error("NewFloatVector(nil) should fail")
	}
	if _, err := NewHalfVector(nil); err == nil {
		t.Error("NewHalfVector(nil) should fail")
	}
	if _, err := NewHalfVectorFromFloats(nil); err == nil {
		t.Error("NewHalfVectorFromFloats(nil) should fail")
	}
}

func TestVectorConstructorsAcceptEmpty(t *testing.T) {
	v, err := NewByteVector([]byte{})
	if err != nil {
		t.Fatalf("empty vector should be valid: %v", err)
	}
	if v.Dimensions() != 0 {
		t.Errorf("expected 0 dimensions, got %d", v.Dimensions())
	}
}

// ===== DISTANCE TESTS =====

func TestByteVectorDistance(t *testing.T) {
	a, _ := NewByteVector([]byte{0, 10, 250})
	b, _ := NewByteVector([]byte{5, 10, 240})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 15) {
		t.Errorf("expected distance 15, got %v", d)
	}

	// Symmetric.
	d2, err := b.Distance(a, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d2 != d {
		t.Errorf("distance not symmetric: %v vs %v", d, d2)
	}
}

func TestVectorDistanceReflexive(t *testing.T) {
	bv, _ := NewByteVector([]byte{0, 10, 250})
	sv, _ := NewShortVector([]int16{-100, 0, 100})
	iv, _ := NewIntVector([]int32{1 << 20, -7})
	fv, _ := NewFloatVector([]float32{3.25, -0.5})

	for _, v := range []Descriptor{bv, sv, iv, fv} {
		d, err := v.Distance(v, MaxDistance)
		if err != nil {
			t.Fatalf("distance failed for %s: %v", v.TypeName(), err)
		}
		if d != 0 {
			t.Errorf("%s: distance to self = %v, want 0", v.TypeName(), d)
		}
	}
}

func TestShortVectorDistance(t *testing.T) {
	a, _ := NewShortVector([]int16{-100, 50})
	b, _ := NewShortVector([]int16{100, -50})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 300) {
		t.Errorf("expected distance 300, got %v", d)
	}
}

func TestIntVectorDistance(t *testing.T) {
	a, _ := NewIntVector([]int32{1 << 20, 0})
	b, _ := NewIntVector([]int32{0, 0})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 1<<20) {
		t.Errorf("expected distance %d, got %v", 1<<20, d)
	}
}

func TestFloatVectorDistance(t *testing.T) {
	a, _ := NewFloatVector([]float32{3, 4})
	b, _ := NewFloatVector([]float32{0, 0})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 5) {
		t.Errorf("expected distance 5, got %v", d)
	}
}

func TestVectorDistanceTypeMismatch(t *testing.T) {
	a, _ := NewByteVector([]byte{1})
	b, _ := NewIntVector([]int32{1})

	if _, err := a.Distance(b, MaxDistance); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestVectorDistanceDimensionMismatch(t *testing.T) {
	a, _ := NewByteVector([]byte{1, 2})
	b, _ := NewByteVector([]byte{1, 2, 3})

	if _, err := a.Distance(b, MaxDistance); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDistanceHelper(t *testing.T) {
	a, _ := NewByteVector([]byte{10, 20})
	b, _ := NewByteVector([]byte{13, 24})

	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 7) {
		t.Errorf("expected distance 7, got %v", d)
	}
}

// ===== THRESHOLD TESTS =====

func TestByteVectorThreshold(t *testing.T) {
	a, _ := NewByteVector([]byte{100, 100})
	b, _ := NewByteVector([]byte{0, 0})

	// Threshold below the true distance: any value above the threshold is
	// a valid answer.
	d, err := a.Distance(b, 50)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d <= 50 {
		t.Errorf("expected distance above threshold 50, got %v", d)
	}

	// Threshold at the true distance: the result must be exact.
	d, err = a.Distance(b, 200)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 200) {
		t.Errorf("expected exact distance 200, got %v", d)
	}
}

func TestFloatVectorThreshold(t *testing.T) {
	a, _ := NewFloatVector([]float32{3, 4})
	b, _ := NewFloatVector([]float32{0, 0})

	d, err := a.Distance(b, 4.9)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d <= 4.9 {
		t.Errorf("expected distance above threshold 4.9, got %v", d)
	}

	d, err = a.Distance(b, 5)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 5) {
		t.Errorf("expected exact distance 5, got %v", d)
	}
}

// ===== SERIALIZATION TESTS =====

func TestVectorTextRoundTrip(t *testing.T) {
	bv, _ := NewByteVector([]byte{1, 2, 255})
	sv, _ := NewShortVector([]int16{-7, 0, 32767})
	iv, _ := NewIntVector([]int32{-1 << 30, 99})
	fv, _ := NewFloatVector([]float32{-0.25, 1.5, 3})
	fv.SetKey(LocatorKey("vec-a"))
	empty, _ := NewByteVector([]byte{})

	tests := []struct {
		name     string
		typeName string
		d        Descriptor
	}{
		{name: "byte vector", typeName: TypeByteVector, d: bv},
		{name: "short vector", typeName: TypeShortVector, d: sv},
		{name: "int vector", typeName: TypeIntVector, d: iv},
		{name: "float vector with key", typeName: TypeFloatVector, d: fv},
		{name: "empty byte vector", typeName: TypeByteVector, d: empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteObjectText(&buf, tt.d); err != nil {
				t.Fatalf("failed to write object: %v", err)
			}

			got, err := ReadObjectText(NewTextReader(&buf), tt.typeName)
			if err != nil {
				t.Fatalf("failed to read object: %v", err)
			}
			if !got.DataEquals(tt.d) {
				t.Errorf("round trip changed data")
			}
			if got.Locator() != tt.d.Locator() {
				t.Errorf("round trip changed locator: %q -> %q", tt.d.Locator(), got.Locator())
			}
		})
	}
}

func TestVectorBinaryRoundTrip(t *testing.T) {
	bv, _ := NewByteVector([]byte{9, 8, 7})
	bv.SetKey(LocatorKey("obj-1"))
	sv, _ := NewShortVector([]int16{-1, 1})
	fv, _ := NewFloatVector([]float32{0.5})
	hv, _ := NewHalfVectorFromFloats([]float32{1.5, -0.25})

	tests := []struct {
		name string
		d    Descriptor
	}{
		{name: "byte vector with key", d: bv},
		{name: "short vector", d: sv},
		{name: "float vector", d: fv},
		{name: "half vector", d: hv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteObjectBinary(&buf, tt.d)
			if err != nil {
				t.Fatalf("failed to write object: %v", err)
			}
			if n != int64(buf.Len()) {
				t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
			}
			if int(n) != ObjectBinarySize(tt.d) {
				t.Errorf("ObjectBinarySize = %d, wrote %d", ObjectBinarySize(tt.d), n)
			}

			got, err := ReadObjectBinary(&buf)
			if err != nil {
				t.Fatalf("failed to read object: %v", err)
			}
			if !got.DataEquals(tt.d) {
				t.Errorf("round trip changed data")
			}
			if got.Locator() != tt.d.Locator() {
				t.Errorf("round trip changed locator: %q -> %q", tt.d.Locator(), got.Locator())
			}
		})
	}
}

func TestVectorTextAcceptsSeparators(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []byte
	}{
		{name: "commas", line: "1,2,3", want: []byte{1, 2, 3}},
		{name: "spaces", line: "1 2 3", want: []byte{1, 2, 3}},
		{name: "mixed", line: "1, 2,  3", want: []byte{1, 2, 3}},
		{name: "empty", line: "", want: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseByteVectorLine(tt.line)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.line, err)
			}
			v := d.(*ByteVector)
			if !bytes.Equal(v.Data(), tt.want) {
				t.Errorf("parsed %q into %v, want %v", tt.line, v.Data(), tt.want)
			}
		})
	}
}

func TestVectorTextRejectsBadNumbers(t *testing.T) {
	if _, err := parseByteVectorLine("1,abc,3"); err == nil {
		t.Error("expected error for non-numeric token")
	}
	if _, err := parseByteVectorLine("1,300,3"); err == nil {
		t.Error("expected error for out-of-range byte")
	}
}

// ===== EQUALITY AND CLONE TESTS =====

func TestVectorDataEqualsIgnoresKey(t *testing.T) {
	a, _ := NewByteVector([]byte{1, 2})
	b, _ := NewByteVector([]byte{1, 2})
	b.SetKey(LocatorKey("other"))

	if !a.DataEquals(b) {
		t.Error("keys must not affect DataEquals")
	}

	c, _ := NewByteVector([]byte{1, 3})
	if a.DataEquals(c) {
		t.Error("different data should not compare equal")
	}

	iv, _ := NewIntVector([]int32{1, 2})
	if a.DataEquals(iv) {
		t.Error("different types should not compare equal")
	}
}

func TestVectorCloneIndependence(t *testing.T) {
	data := []byte{5, 6, 7}
	v, _ := NewByteVector(data)
	v.SetKey(LocatorKey("orig"))

	c := v.Clone().(*ByteVector)
	if !c.DataEquals(v) {
		t.Fatal("clone should equal original")
	}
	if c.Locator() != "orig" {
		t.Errorf("clone should carry the key, got %q", c.Locator())
	}

	data[0] = 99
	if c.Data()[0] == 99 {
		t.Error("clone shares backing storage with original")
	}
}

// ===== RANDOM GENERATION TESTS =====

func TestNewRandomByteVector(t *testing.T) {
	v, err := NewRandomByteVector(64, 10, 20)
	if err != nil {
		t.Fatalf("failed to create random vector: %v", err)
	}
	if v.Dimensions() != 64 {
		t.Fatalf("expected 64 dimensions, got %d", v.Dimensions())
	}
	if v.Locator() == "" {
		t.Error("random vectors should carry a generated locator")
	}
	for i, x := range v.Data() {
		if x < 10 || x >= 20 {
			t.Fatalf("element %d = %d outside [10,20)", i, x)
		}
	}
}

func TestNewRandomVectorDegenerateRange(t *testing.T) {
	v, err := NewRandomByteVector(8, 5, 5)
	if err != nil {
		t.Fatalf("failed to create random vector: %v", err)
	}
	for i, x := range v.Data() {
		if x != 5 {
			t.Fatalf("element %d = %d, want 5", i, x)
		}
	}
}

func TestNewRandomVectorErrors(t *testing.T) {
	if _, err := NewRandomByteVector(-1, 0, 10); err == nil {
		t.Error("negative dimension should fail")
	}
	if _, err := NewRandomByteVector(4, 10, 5); err == nil {
		t.Error("max below min should fail")
	}
	if _, err := NewRandomShortVector(4, 10, 5); err == nil {
		t.Error("max below min should fail for short vectors")
	}
	if _, err := NewRandomFloatVector(4, 1.5, 0.5); err == nil {
		t.Error("max below min should fail for float vectors")
	}
}

func TestNewRandomShortVectorRange(t *testing.T) {
	v, err := NewRandomShortVector(32, -5, 5)
	if err != nil {
		t.Fatalf("failed to create random vector: %v", err)
	}
	for i, x := range v.Data() {
		if x < -5 || x >= 5 {
			t.Fatalf("element %d = %d outside [-5,5)", i, x)
		}
	}
}

func TestCloneRandomlyModify(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = 100
	}
	v, _ := NewByteVector(data)
	v.SetKey(LocatorKey("base"))

	c, err := v.CloneRandomlyModify(4, 0, 50)
	if err != nil {
		t.Fatalf("failed to modify clone: %v", err)
	}
	if c.Dimensions() != v.Dimensions() {
		t.Fatalf("modification changed dimensions: %d", c.Dimensions())
	}
	if c.Locator() != "base" {
		t.Errorf("modified clone should keep the key, got %q", c.Locator())
	}
	for i, x := range c.Data() {
		if x != 100 && x >= 50 {
			t.Fatalf("element %d = %d neither original nor in [0,50)", i, x)
		}
	}
	for i, x := range v.Data() {
		if x != 100 {
			t.Fatalf("original mutated at %d: %d", i, x)
		}
	}

	if _, err := v.CloneRandomlyModify(2, 50, 10); err == nil {
		t.Error("max below min should fail")
	}
}

// ===== SORTED INT VECTOR TESTS =====

func TestSortedIntVectorSortsOnConstruction(t *testing.T) {
	v, err := NewSortedIntVector([]int32{3, 1, 2})
	if err != nil {
		t.Fatalf("failed to create vector: %v", err)
	}
	got := v.Data()
	want := []int32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted data %v, got %v", want, got)
		}
	}

	mn, ok := v.Min()
	if !ok || mn != 1 {
		t.Errorf("Min = %d,%v, want 1,true", mn, ok)
	}
	mx, ok := v.Max()
	if !ok || mx != 3 {
		t.Errorf("Max = %d,%v, want 3,true", mx, ok)
	}
}

func TestSortedIntVectorEmptyBounds(t *testing.T) {
	v, err := NewSortedIntVector([]int32{})
	if err != nil {
		t.Fatalf("failed to create vector: %v", err)
	}
	if _, ok := v.Min(); ok {
		t.Error("Min of empty vector should report absence")
	}
	if _, ok := v.Max(); ok {
		t.Error("Max of empty vector should report absence")
	}
}

func TestSortedIntVectorDistance(t *testing.T) {
	a, _ := NewSortedIntVector([]int32{3, 1, 2})
	b, _ := NewSortedIntVector([]int32{1, 2, 4})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 1) {
		t.Errorf("expected distance 1, got %v", d)
	}

	// A plain int vector is a different type.
	iv, _ := NewIntVector([]int32{1, 2, 3})
	if _, err := a.Distance(iv, MaxDistance); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestSortedIntVectorTextSorts(t *testing.T) {
	d, err := ReadObjectText(NewTextReader(strings.NewReader("3,1,2\n")), TypeSortedIntVector)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	v := d.(*SortedIntVector)
	mn, _ := v.Min()
	mx, _ := v.Max()
	if mn != 1 || mx != 3 {
		t.Errorf("parsed vector not sorted: min %d max %d", mn, mx)
	}
}

// ===== HALF VECTOR TESTS =====

func TestHalfVectorExactValues(t *testing.T) {
	v, err := NewHalfVectorFromFloats([]float32{1.5, -0.25, 0})
	if err != nil {
		t.Fatalf("failed to create vector: %v", err)
	}
	got := v.Floats()
	want := []float32{1.5, -0.25, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("half-representable value changed: %v -> %v", want, got)
		}
	}
}

func TestHalfVectorDistance(t *testing.T) {
	a, _ := NewHalfVectorFromFloats([]float32{1.5})
	b, _ := NewHalfVectorFromFloats([]float32{0.5})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 1) {
		t.Errorf("expected distance 1, got %v", d)
	}
}

func TestHalfVectorTextRoundTripPreservesBits(t *testing.T) {
	// 0.1 is not representable in half precision; the text form renders the
	// widened value, so parsing it back must reproduce the same bits.
	v, err := NewHalfVectorFromFloats([]float32{0.1, 2.71828})
	if err != nil {
		t.Fatalf("failed to create vector: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteObjectText(&buf, v); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	got, err := ReadObjectText(NewTextReader(&buf), TypeHalfVector)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(v) {
		t.Errorf("text round trip changed half-precision bits")
	}
}

// ===== BENCHMARKS =====

func BenchmarkByteVectorDistance(b *testing.B) {
	d1 := make([]byte, 128)
	d2 := make([]byte, 128)
	for i := range d1 {
		d1[i] = byte(i)
		d2[i] = byte(i + 1)
	}
	v1, _ := NewByteVector(d1)
	v2, _ := NewByteVector(d2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v1.Distance(v2, MaxDistance)
	}
}

func BenchmarkFloatVectorDistance(b *testing.B) {
	d1 := make([]float32, 128)
	d2 := make([]float32, 128)
	for i := range d1 {
		d1[i] = float32(i)
		d2[i] = float32(i + 1)
	}
	v1, _ := NewFloatVector(d1)
	v2, _ := NewFloatVector(d2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v1.Distance(v2, MaxDistance)
	}
}
