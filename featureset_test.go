package prism

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ===== CONSTRUCTION TESTS =====

func TestNewFeatureSetValidation(t *testing.T) {
	fv, _ := NewFloatVector([]float32{0.5})
	bv, _ := NewByteVector([]byte{1})

	tests := []struct {
		name        string
		featureType string
		features    []*LocalFeature
		wantErr     error
	}{
		{"container payload type", TypeShapeAndColor, nil, ErrUnknownType},
		{"unknown payload type", "Mystery", nil, ErrUnknownType},
		{"wrong payload type", TypeFloatVector, []*LocalFeature{{Data: bv}}, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeatureSet(nil, tt.featureType, tt.features)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := NewFeatureSet(nil, TypeFloatVector, []*LocalFeature{{X: 1}}); err == nil {
		t.Error("expected error for feature without payload")
	}
	if _, err := NewFeatureSet(nil, TypeFloatVector, []*LocalFeature{nil}); err == nil {
		t.Error("expected error for nil feature")
	}
	if _, err := NewFeatureSet(nil, TypeFloatVector, []*LocalFeature{{Data: fv}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFeatureSetAccessors(t *testing.T) {
	a, _ := NewFloatVector([]float32{1})
	b, _ := NewFloatVector([]float32{2})
	s, err := NewFeatureSet(LocatorKey("img"), TypeFloatVector, []*LocalFeature{
		{X: 10, Y: 20, Orientation: 0.5, Scale: 2, Data: a},
		{X: 30, Y: 40, Orientation: 1.5, Scale: 4, Data: b},
	})
	if err != nil {
		t.Fatalf("failed to create feature set: %v", err)
	}

	if s.FeatureType() != TypeFloatVector {
		t.Errorf("expected feature type %q, got %q", TypeFloatVector, s.FeatureType())
	}
	if s.Count() != 2 {
		t.Errorf("expected 2 features, got %d", s.Count())
	}
	fs := s.Features()
	if fs[0].X != 10 || fs[1].Y != 40 {
		t.Error("features out of order")
	}
}

func TestFeatureSetDistanceUndefined(t *testing.T) {
	a, _ := NewFeatureSet(nil, TypeFloatVector, nil)
	b, _ := NewFeatureSet(nil, TypeFloatVector, nil)

	if _, err := a.Distance(b, MaxDistance); !errors.Is(err, ErrDistanceUndefined) {
		t.Errorf("expected ErrDistanceUndefined, got %v", err)
	}
}

// ===== TEXT SERIALIZATION TESTS =====

func TestFeatureSetTextRoundTrip(t *testing.T) {
	// Color layout payloads carry semicolons of their own; only the first
	// semicolon of a feature line separates the coordinates.
	s, err := NewFeatureSet(LocatorKey("img-fs"), TypeColorLayout, []*LocalFeature{
		{X: 1.5, Y: 2.5, Orientation: 0.5, Scale: 3, Data: testColorLayout(t, false)},
		{X: -4, Y: 0, Orientation: 0, Scale: 1, Data: testColorLayout(t, true)},
	})
	if err != nil {
		t.Fatalf("failed to create feature set: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteObjectText(&buf, s); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	want := "#objectKey locator img-fs\nColorLayout;2\n1.5,2.5,0.5,3;10,13,20;8,6,8;5,5,5\n"
	if !strings.HasPrefix(buf.String(), want) {
		t.Errorf("unexpected serialization prefix:\n got %q\nwant %q", buf.String(), want)
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeFeatureSet)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(s) {
		t.Error("round trip changed data")
	}
	if got.Locator() != "img-fs" {
		t.Errorf("round trip lost the key, got %q", got.Locator())
	}
}

func TestFeatureSetEmptyTextRoundTrip(t *testing.T) {
	s, _ := NewFeatureSet(nil, TypeByteVector, nil)

	var buf bytes.Buffer
	if err := WriteObjectText(&buf, s); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	if buf.String() != "ByteVector;0\n" {
		t.Errorf("expected bare header, got %q", buf.String())
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeFeatureSet)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if got.(*FeatureSet).Count() != 0 {
		t.Errorf("expected empty set, got %d features", got.(*FeatureSet).Count())
	}
	if !got.DataEquals(s) {
		t.Error("round trip changed data")
	}
}

func TestFeatureSetTextErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing count", "FloatVector\n", "bad feature set header"},
		{"unknown payload type", "Mystery;1\n1,2,3,4;0.5\n", "unknown feature payload type"},
		{"bad count", "FloatVector;x\n", "bad feature count"},
		{"negative count", "FloatVector;-1\n", "bad feature count"},
		{"missing payload", "FloatVector;1\n1,2,3,4\n", "bad feature line"},
		{"short coordinates", "FloatVector;1\n1,2,3;0.5\n", "feature needs 4 coordinates"},
		{"bad coordinate", "FloatVector;1\na,2,3,4;0.5\n", "bad feature coordinate"},
		{"bad payload", "FloatVector;1\n1,2,3,4;abc\n", "bad feature payload"},
		{"truncated", "FloatVector;3\n1,2,0,1;0.5\n", "truncated feature set: 1 of 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadObjectText(NewTextReader(strings.NewReader(tt.input)), TypeFeatureSet)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in error, got %v", tt.wantMsg, err)
			}
		})
	}
}

// ===== BINARY SERIALIZATION TESTS =====

func TestFeatureSetBinaryRoundTrip(t *testing.T) {
	a, _ := NewByteVector([]byte{1, 2, 3})
	a.SetKey(LocatorKey("patch-0"))
	b, _ := NewByteVector([]byte{4, 5, 6})
	s, err := NewFeatureSet(LocatorKey("img-bin"), TypeByteVector, []*LocalFeature{
		{X: 1, Y: 2, Orientation: 0.25, Scale: 8, Data: a},
		{X: 3, Y: 4, Orientation: -0.25, Scale: 16, Data: b},
	})
	if err != nil {
		t.Fatalf("failed to create feature set: %v", err)
	}

	var buf bytes.Buffer
	n, err := WriteObjectBinary(&buf, s)
	if err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	if int(n) != ObjectBinarySize(s) {
		t.Errorf("ObjectBinarySize = %d, wrote %d", ObjectBinarySize(s), n)
	}

	got, err := ReadObjectBinary(&buf)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(s) {
		t.Error("round trip changed data")
	}
	if got.Locator() != "img-bin" {
		t.Errorf("round trip lost the key, got %q", got.Locator())
	}
	// Binary payloads serialize with their own keys.
	if got.(*FeatureSet).Features()[0].Data.Locator() != "patch-0" {
		t.Error("payload key lost in binary round trip")
	}
}

func TestFeatureSetBinaryUnknownPayload(t *testing.T) {
	var buf bytes.Buffer
	bw := newBinaryWriter(&buf)
	bw.writeKey(nil)
	bw.writeString("Mystery")
	bw.writeInt32(0)
	if _, err := bw.finish(); err != nil {
		t.Fatalf("failed to build buffer: %v", err)
	}

	_, err := readFeatureSetBinary(newBinaryReader(&buf))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

// ===== PARAMETER, EQUALITY AND CLONE TESTS =====

func TestFeatureSetParams(t *testing.T) {
	fv, _ := NewFloatVector([]float32{1})
	s, _ := NewFeatureSet(nil, TypeFloatVector, []*LocalFeature{{Data: fv}})

	if _, ok := s.Param("threshold"); ok {
		t.Error("unset parameter should not resolve")
	}
	s.SetParam("threshold", 0.8)
	if v, ok := s.Param("threshold"); !ok || v != 0.8 {
		t.Errorf("expected parameter 0.8, got %v (%v)", v, ok)
	}

	// Parameters are local metadata: clones carry them, serialization and
	// equality ignore them.
	c := s.Clone().(*FeatureSet)
	if v, ok := c.Param("threshold"); !ok || v != 0.8 {
		t.Error("clone should carry parameters")
	}

	bare, _ := NewFeatureSet(nil, TypeFloatVector, []*LocalFeature{{Data: fv.Clone()}})
	if !s.DataEquals(bare) {
		t.Error("parameters should not participate in data equality")
	}

	var buf bytes.Buffer
	if _, err := WriteObjectBinary(&buf, s); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
	got, err := ReadObjectBinary(&buf)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if _, ok := got.(*FeatureSet).Param("threshold"); ok {
		t.Error("parameters should not be serialized")
	}
}

func TestFeatureSetDataEquals(t *testing.T) {
	mk := func(x float32, data byte) *FeatureSet {
		v, _ := NewByteVector([]byte{data})
		s, _ := NewFeatureSet(nil, TypeByteVector, []*LocalFeature{{X: x, Data: v}})
		return s
	}

	if !mk(1, 5).DataEquals(mk(1, 5)) {
		t.Error("equal sets should compare equal")
	}
	if mk(1, 5).DataEquals(mk(2, 5)) {
		t.Error("different coordinates should not compare equal")
	}
	if mk(1, 5).DataEquals(mk(1, 6)) {
		t.Error("different payloads should not compare equal")
	}

	other, _ := NewFeatureSet(nil, TypeByteVector, nil)
	if mk(1, 5).DataEquals(other) {
		t.Error("different feature counts should not compare equal")
	}
}

func TestFeatureSetClone(t *testing.T) {
	v, _ := NewByteVector([]byte{7})
	s, _ := NewFeatureSet(LocatorKey("orig"), TypeByteVector, []*LocalFeature{{X: 1, Data: v}})

	c := s.Clone().(*FeatureSet)
	if !c.DataEquals(s) {
		t.Error("clone should equal original")
	}
	if c.Locator() != "orig" {
		t.Errorf("clone should carry the key, got %q", c.Locator())
	}

	// Feature structs and payloads are both deep-copied.
	s.Features()[0].X = 99
	if c.Features()[0].X == 99 {
		t.Error("clone shares feature structs with original")
	}
	v.data[0] = 99
	if c.DataEquals(s) {
		t.Error("clone shares payload storage with original")
	}
}
