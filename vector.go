package prism

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// ============================================================================
// NUMBER LINE HELPERS
// ============================================================================
//
// Numeric vectors serialize to a single text line of values separated by
// commas (whitespace is tolerated on input). An empty vector serializes to an
// empty line. The helpers below are shared by every vector-shaped descriptor.

// splitNumberLine splits a data line into numeric tokens. Commas and
// whitespace both separate, and runs of separators collapse, so an empty line
// yields no tokens.
func splitNumberLine(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func parseByteLine(line string) ([]byte, error) {
	fields := splitNumberLine(line)
	out := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad uint8 value %q: %w", f, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func parseInt16Line(line string) ([]int16, error) {
	fields := splitNumberLine(line)
	out := make([]int16, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad int16 value %q: %w", f, err)
		}
		out[i] = int16(v)
	}
	return out, nil
}

func parseInt32Line(line string) ([]int32, error) {
	fields := splitNumberLine(line)
	out := make([]int32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad int32 value %q: %w", f, err)
		}
		out[i] = int32(v)
	}
	return out, nil
}

func parseFloat32Line(line string) ([]float32, error) {
	fields := splitNumberLine(line)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("bad float value %q: %w", f, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// appendByteList appends the values comma-separated, without a newline.
func appendByteList(buf []byte, data []byte) []byte {
	for i, v := range data {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return buf
}

// appendInt32List appends the values comma-separated, without a newline.
func appendInt32List(buf []byte, data []int32) []byte {
	for i, v := range data {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(v), 10)
	}
	return buf
}

func writeByteLine(w io.Writer, data []byte) error {
	buf := appendByteList(make([]byte, 0, 4*len(data)+1), data)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

func writeInt16Line(w io.Writer, data []int16) error {
	buf := make([]byte, 0, 7*len(data)+1)
	for i, v := range data {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(v), 10)
	}
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

func writeInt32Line(w io.Writer, data []int32) error {
	buf := appendInt32List(make([]byte, 0, 8*len(data)+1), data)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

func writeFloat32Line(w io.Writer, data []float32) error {
	buf := make([]byte, 0, 12*len(data)+1)
	for i, v := range data {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendFloat32(buf, v)
	}
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// appendFloat32 renders v in the shortest form that parses back to the exact
// same float32.
func appendFloat32(buf []byte, v float32) []byte {
	return strconv.AppendFloat(buf, float64(v), 'g', -1, 32)
}

// formatFloat32 is appendFloat32 for single values.
func formatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// parseFloat32Token parses one float32 token.
func parseFloat32Token(tok string) (float32, error) {
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("bad float value %q: %w", tok, err)
	}
	return float32(v), nil
}
