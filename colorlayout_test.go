package prism

import (
	"bytes"
	"errors"
	"testing"
)

// ===== CONSTRUCTOR TESTS =====

func TestNewColorLayoutValidation(t *testing.T) {
	if _, err := NewColorLayout(nil, []byte{1}, []byte{1}); err == nil {
		t.Error("nil Y channel should fail")
	}
	if _, err := NewColorLayout([]byte{1}, nil, []byte{1}); err == nil {
		t.Error("nil Cb channel should fail")
	}
	if _, err := NewColorLayout([]byte{1}, []byte{1}, nil); err == nil {
		t.Error("nil Cr channel should fail")
	}
	if _, err := NewColorLayout([]byte{}, []byte{}, []byte{}); err != nil {
		t.Errorf("empty channels should be valid: %v", err)
	}
}

// ===== DISTANCE TESTS =====

func TestColorLayoutDistance(t *testing.T) {
	// Per channel: sqrt of the weighted sum of squared coefficient
	// differences. Y differs by 3 at the first two positions (weight 2
	// each), Cb by 2 at position 1 (weight 1), Cr by 2 at position 0
	// (weight 4). The channel roots are 6, 2 and 4.
	a, err := NewColorLayout([]byte{10, 13, 20}, []byte{8, 6, 8}, []byte{5, 5, 5})
	if err != nil {
		t.Fatalf("failed to create descriptor: %v", err)
	}
	b, err := NewColorLayout([]byte{13, 10, 20}, []byte{8, 8, 8}, []byte{7, 5, 5})
	if err != nil {
		t.Fatalf("failed to create descriptor: %v", err)
	}

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 12) {
		t.Errorf("expected distance 12, got %v", d)
	}

	d2, err := b.Distance(a, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d2 != d {
		t.Errorf("distance not symmetric: %v vs %v", d, d2)
	}
}

func TestColorLayoutSharedPrefix(t *testing.T) {
	// Channels of different lengths compare over the shared prefix only.
	a, _ := NewColorLayout([]byte{1, 2, 3, 9, 9, 9}, []byte{4}, []byte{5})
	b, _ := NewColorLayout([]byte{1, 2, 3}, []byte{4}, []byte{5})

	d, err := a.Distance(b, MaxDistance)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d != 0 {
		t.Errorf("expected distance 0 over equal shared prefix, got %v", d)
	}
}

func TestColorLayoutThreshold(t *testing.T) {
	a, _ := NewColorLayout([]byte{10, 13, 20}, []byte{8, 6, 8}, []byte{5, 5, 5})
	b, _ := NewColorLayout([]byte{13, 10, 20}, []byte{8, 8, 8}, []byte{7, 5, 5})

	// The Y channel alone contributes 6, so a threshold of 1 must be
	// exceeded after the first channel.
	d, err := a.Distance(b, 1)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if d <= 1 {
		t.Errorf("expected distance above threshold 1, got %v", d)
	}

	// At the exact distance no early exit fires.
	d, err = a.Distance(b, 12)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}
	if !almostEqual(d, 12) {
		t.Errorf("expected exact distance 12, got %v", d)
	}
}

func TestColorLayoutTypeMismatch(t *testing.T) {
	a, _ := NewColorLayout([]byte{1}, []byte{2}, []byte{3})
	v, _ := NewByteVector([]byte{1})

	if _, err := a.Distance(v, MaxDistance); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

// ===== SERIALIZATION TESTS =====

func TestColorLayoutTextFormat(t *testing.T) {
	a, _ := NewColorLayout([]byte{10, 13, 20}, []byte{8, 6, 8}, []byte{5, 5, 5})

	var buf bytes.Buffer
	if err := a.WriteText(&buf); err != nil {
		t.Fatalf("failed to write text: %v", err)
	}
	want := "10,13,20;8,6,8;5,5,5\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeColorLayout)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(a) {
		t.Error("round trip changed data")
	}
}

func TestColorLayoutTextRejectsWrongSegmentCount(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "two segments", line: "1,2;3,4"},
		{name: "four segments", line: "1;2;3;4"},
		{name: "no separator", line: "1,2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseColorLayoutLine(tt.line); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestColorLayoutEmptyChannels(t *testing.T) {
	a, _ := NewColorLayout([]byte{}, []byte{}, []byte{})

	var buf bytes.Buffer
	if err := a.WriteText(&buf); err != nil {
		t.Fatalf("failed to write text: %v", err)
	}
	if buf.String() != ";;\n" {
		t.Errorf("expected %q, got %q", ";;\n", buf.String())
	}

	got, err := ReadObjectText(NewTextReader(&buf), TypeColorLayout)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if !got.DataEquals(a) {
		t.Error("round trip changed data")
	}
}

func TestColorLayoutBinaryRoundTrip(t *testing.T) {
	a, _ := NewColorLayout([]byte{10, 13, 20}, []byte{8, 6}, []byte{5})
	a.SetKey(LocatorKey("cl-1"))

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
	if got.Locator() != "cl-1" {
		t.Errorf("round trip lost the key, got %q", got.Locator())
	}
}

func TestColorLayoutCloneIndependence(t *testing.T) {
	y := []byte{1, 2}
	a, _ := NewColorLayout(y, []byte{3}, []byte{4})

	c := a.Clone().(*ColorLayout)
	y[0] = 99
	if c.YCoeff()[0] == 99 {
		t.Error("clone shares backing storage with original")
	}
}
