package prism

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// ============================================================================
// OBJECT STREAMS
// ============================================================================
//
// Collections travel as flat files: a text stream holds the text blocks of
// objects of one registered type back to back, a binary dump holds
// self-identifying binary records behind a small header. Files ending in
// ".gz" are compressed and decompressed transparently.

// StreamReader iterates a text stream of objects of one registered type.
type StreamReader struct {
	tr       *TextReader
	typeName string
	gz       *gzip.Reader
	file     *os.File
}

// NewStreamReader reads objects of the named type from r. The caller keeps
// ownership of r; Close releases only what the reader itself opened.
func NewStreamReader(r io.Reader, typeName string) (*StreamReader, error) {
	if !IsRegisteredType(typeName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return &StreamReader{tr: NewTextReader(r), typeName: typeName}, nil
}

// OpenStreamReader opens a text stream file of objects of the named type,
// decompressing transparently when the path ends in ".gz".
func OpenStreamReader(path, typeName string) (*StreamReader, error) {
	if !IsRegisteredType(typeName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream file: %w", err)
	}
	var r io.Reader = file
	var gz *gzip.Reader
	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open compressed stream: %w", err)
		}
		r = gz
	}
	return &StreamReader{tr: NewTextReader(r), typeName: typeName, gz: gz, file: file}, nil
}

// Next reads the next object. It returns io.EOF at the end of the stream.
func (sr *StreamReader) Next() (Descriptor, error) {
	return ReadObjectText(sr.tr, sr.typeName)
}

// ReadAll drains the stream and returns every remaining object.
func (sr *StreamReader) ReadAll() ([]Descriptor, error) {
	var objects []Descriptor
	for {
		d, err := sr.Next()
		if err == io.EOF {
			return objects, nil
		}
		if err != nil {
			return objects, err
		}
		objects = append(objects, d)
	}
}

// Line returns the number of the last text line read, for error reporting.
func (sr *StreamReader) Line() int {
	return sr.tr.Line()
}

// Close releases the resources the reader opened. Readers over caller-owned
// io.Readers close nothing.
func (sr *StreamReader) Close() error {
	var err error
	if sr.gz != nil {
		err = sr.gz.Close()
		sr.gz = nil
	}
	if sr.file != nil {
		if cerr := sr.file.Close(); err == nil {
			err = cerr
		}
		sr.file = nil
	}
	return err
}

// StreamWriter writes a text stream of objects, keys included.
type StreamWriter struct {
	w    io.Writer
	buf  *bufio.Writer
	gz   *gzip.Writer
	file *os.File
	n    int
}

// NewStreamWriter writes objects to w. The caller keeps ownership of w;
// Close flushes but closes only what the writer itself opened.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// CreateStreamWriter creates a text stream file, compressing transparently
// when the path ends in ".gz".
func CreateStreamWriter(path string) (*StreamWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream file: %w", err)
	}
	sw := &StreamWriter{file: file}
	if strings.HasSuffix(path, ".gz") {
		sw.gz = gzip.NewWriter(file)
		sw.w = sw.gz
	} else {
		sw.buf = bufio.NewWriter(file)
		sw.w = sw.buf
	}
	return sw, nil
}

// Write appends one object's text block to the stream.
func (sw *StreamWriter) Write(d Descriptor) error {
	if err := WriteObjectText(sw.w, d); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	sw.n++
	return nil
}

// Count returns the number of objects written.
func (sw *StreamWriter) Count() int {
	return sw.n
}

// Close flushes buffered data and releases the resources the writer opened.
func (sw *StreamWriter) Close() error {
	var err error
	if sw.buf != nil {
		err = sw.buf.Flush()
		sw.buf = nil
	}
	if sw.gz != nil {
		if cerr := sw.gz.Close(); err == nil {
			err = cerr
		}
		sw.gz = nil
	}
	if sw.file != nil {
		if cerr := sw.file.Close(); err == nil {
			err = cerr
		}
		sw.file = nil
	}
	return err
}

// ----------------------------------------------------------------------------
// Binary dumps
// ----------------------------------------------------------------------------
//
// Binary dump format:
// 1. Magic number (4 bytes) - "PRSM" identifier for validation
// 2. Version (4 bytes) - Format version for backward compatibility
// 3. Records - self-identifying binary records, back to back
//
// Records are written by WriteObjectBinary, so a dump may mix descriptor
// types.

var dumpMagic = [4]byte{'P', 'R', 'S', 'M'}

const dumpVersion uint32 = 1

// DumpWriter writes a binary dump of objects.
type DumpWriter struct {
	w    io.Writer
	buf  *bufio.Writer
	gz   *gzip.Writer
	file *os.File
	n    int
}

// NewDumpWriter writes the dump header to w and returns a writer appending
// records to it. The caller keeps ownership of w.
func NewDumpWriter(w io.Writer) (*DumpWriter, error) {
	dw := &DumpWriter{w: w}
	if err := dw.writeHeader(); err != nil {
		return nil, err
	}
	return dw, nil
}

// CreateDumpWriter creates a binary dump file, compressing transparently
// when the path ends in ".gz".
func CreateDumpWriter(path string) (*DumpWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}
	dw := &DumpWriter{file: file}
	if strings.HasSuffix(path, ".gz") {
		dw.gz = gzip.NewWriter(file)
		dw.w = dw.gz
	} else {
		dw.buf = bufio.NewWriter(file)
		dw.w = dw.buf
	}
	if err := dw.writeHeader(); err != nil {
		dw.Close()
		os.Remove(path)
		return nil, err
	}
	return dw, nil
}

func (dw *DumpWriter) writeHeader() error {
	if _, err := dw.w.Write(dumpMagic[:]); err != nil {
		return fmt.Errorf("failed to write magic number: %w", err)
	}
	bw := newBinaryWriter(dw.w)
	bw.writeUint32(dumpVersion)
	if _, err := bw.finish(); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	return nil
}

// Write appends one object record to the dump.
func (dw *DumpWriter) Write(d Descriptor) error {
	if _, err := WriteObjectBinary(dw.w, d); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	dw.n++
	return nil
}

// Count returns the number of records written.
func (dw *DumpWriter) Count() int {
	return dw.n
}

// Close flushes buffered data and releases the resources the writer opened.
func (dw *DumpWriter) Close() error {
	var err error
	if dw.buf != nil {
		err = dw.buf.Flush()
		dw.buf = nil
	}
	if dw.gz != nil {
		if cerr := dw.gz.Close(); err == nil {
			err = cerr
		}
		dw.gz = nil
	}
	if dw.file != nil {
		if cerr := dw.file.Close(); err == nil {
			err = cerr
		}
		dw.file = nil
	}
	return err
}

// DumpReader reads a binary dump of objects.
type DumpReader struct {
	r    io.Reader
	gz   *gzip.Reader
	file *os.File
}

// NewDumpReader validates the dump header of r and returns a reader over
// its records. The caller keeps ownership of r.
func NewDumpReader(r io.Reader) (*DumpReader, error) {
	dr := &DumpReader{r: r}
	if err := dr.readHeader(); err != nil {
		return nil, err
	}
	return dr, nil
}

// OpenDumpReader opens a binary dump file, decompressing transparently when
// the path ends in ".gz".
func OpenDumpReader(path string) (*DumpReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	dr := &DumpReader{file: file}
	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		dr.gz, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open compressed dump: %w", err)
		}
		r = dr.gz
	}
	dr.r = bufio.NewReader(r)
	if err := dr.readHeader(); err != nil {
		dr.Close()
		return nil, err
	}
	return dr, nil
}

func (dr *DumpReader) readHeader() error {
	var magic [4]byte
	if _, err := io.ReadFull(dr.r, magic[:]); err != nil {
		return fmt.Errorf("failed to read magic number: %w", err)
	}
	if magic != dumpMagic {
		return fmt.Errorf("invalid magic number: expected %q, got %q", dumpMagic[:], magic[:])
	}
	br := newBinaryReader(dr.r)
	version := br.readUint32()
	if br.err != nil {
		return fmt.Errorf("failed to read version: %w", br.err)
	}
	if version != dumpVersion {
		return fmt.Errorf("unsupported dump version %d", version)
	}
	return nil
}

// Next reads the next record. It returns io.EOF at the end of the dump.
func (dr *DumpReader) Next() (Descriptor, error) {
	return ReadObjectBinary(dr.r)
}

// Close releases the resources the reader opened.
func (dr *DumpReader) Close() error {
	var err error
	if dr.gz != nil {
		err = dr.gz.Close()
		dr.gz = nil
	}
	if dr.file != nil {
		if cerr := dr.file.Close(); err == nil {
			err = cerr
		}
		dr.file = nil
	}
	return err
}
