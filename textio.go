package prism

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ============================================================================
// TEXT SERIALIZATION
// ============================================================================
//
// The text format is line oriented. Each object occupies one block of
// newline-terminated data lines (most descriptors use exactly one line).
// Lines starting with '#' are comments; the special comment
//
//	#objectKey <kind> <payload>
//
// carries the object key of the next object in the stream. Unrecognized
// comments are skipped, so dumps can carry annotations without breaking
// readers.

// TextReader reads the line-oriented object format. It tracks the current
// line number for error reporting and holds the most recent object key
// comment until the next object takes it.
type TextReader struct {
	r       *bufio.Reader
	line    int
	pending Key
	eof     bool
}

// NewTextReader returns a TextReader consuming r.
func NewTextReader(r io.Reader) *TextReader {
	return &TextReader{r: bufio.NewReader(r)}
}

// ReadDataLine returns the next data line with the line terminator trimmed.
// Comment lines are consumed on the way; object key comments are parsed and
// held for TakeKey. At end of input it returns io.EOF.
func (tr *TextReader) ReadDataLine() (string, error) {
	for {
		line, err := tr.readLine()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, "#") {
			if err := tr.handleComment(line); err != nil {
				return "", err
			}
			continue
		}
		return line, nil
	}
}

// readLine returns the next raw line without its terminator. A final line
// without a trailing newline is still returned; the next call reports io.EOF.
func (tr *TextReader) readLine() (string, error) {
	if tr.eof {
		return "", io.EOF
	}
	line, err := tr.r.ReadString('\n')
	if err == io.EOF {
		tr.eof = true
		if line == "" {
			return "", io.EOF
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to read line %d: %w", tr.line+1, err)
	}
	tr.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func (tr *TextReader) handleComment(line string) error {
	rest, ok := strings.CutPrefix(line, "#objectKey ")
	if !ok {
		return nil
	}
	kind, payload, _ := strings.Cut(rest, " ")
	key, err := parseKey(kind, payload)
	if err != nil {
		return tr.errorf("bad object key: %v", err)
	}
	tr.pending = key
	return nil
}

// TakeKey returns the key announced by the most recent object key comment and
// clears it, or nil when none is pending.
func (tr *TextReader) TakeKey() Key {
	k := tr.pending
	tr.pending = nil
	return k
}

// Line returns the number of the last line read, starting at 1.
func (tr *TextReader) Line() int {
	return tr.line
}

// errorf builds a parse error annotated with the current line number.
func (tr *TextReader) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", tr.line, fmt.Sprintf(format, args...))
}

// WriteObjectText writes the complete text block of a descriptor: the object
// key comment when a key is present, then the data lines.
func WriteObjectText(w io.Writer, d Descriptor) error {
	if k := d.Key(); k != nil {
		if _, err := fmt.Fprintf(w, "#objectKey %s %s\n", k.Kind(), k.textPayload()); err != nil {
			return fmt.Errorf("failed to write object key: %w", err)
		}
	}
	return d.WriteText(w)
}
