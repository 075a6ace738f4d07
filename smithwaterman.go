package prism

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// SMITH-WATERMAN-GOTOH SEQUENCE DESCRIPTOR
// ============================================================================
//
// SmithWaterman measures protein (or other residue) sequences by local
// alignment similarity: the Smith-Waterman algorithm with Gotoh's affine gap
// refinement, scoring residue pairs through a substitution matrix. The
// similarity s(a,b) is turned into a distance by embedding it in the
// squared-similarity space:
//
//	d(a,b) = sqrt(s(a,a) + s(b,b) - 2*s(a,b))
//
// Self-similarities are computed once at construction. Gap penalties follow
// the reference configuration: 10 to open a gap, 0.5 to extend it.

const (
	alignGapOpen   float32 = 10
	alignGapExtend float32 = 0.5
)

// SubstitutionMatrix scores residue pairs for sequence alignment. Pairs not
// assigned by the loaded matrix score NaN, which the alignment kernel never
// selects, so unknown residues cannot contribute to an alignment.
type SubstitutionMatrix struct {
	scores [128][128]float32
}

// Score returns the substitution score of the residue pair (a, b), or NaN
// when the pair is not defined by the matrix.
func (m *SubstitutionMatrix) Score(a, b byte) float32 {
	if a > 127 || b > 127 {
		return float32(math.NaN())
	}
	return m.scores[a][b]
}

// LoadSubstitutionMatrix parses a matrix in the standard text layout: '#'
// comment lines, a header line of single-letter column names, then one row
// per residue starting with its letter. Cells absent from the file stay NaN.
func LoadSubstitutionMatrix(r io.Reader) (*SubstitutionMatrix, error) {
	m := &SubstitutionMatrix{}
	nan := float32(math.NaN())
	for i := range m.scores {
		for j := range m.scores[i] {
			m.scores[i][j] = nan
		}
	}

	var cols []byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if cols == nil {
			for _, f := range fields {
				if len(f) != 1 || f[0] > 127 {
					return nil, fmt.Errorf("bad matrix column name %q", f)
				}
				cols = append(cols, f[0])
			}
			continue
		}
		if len(fields[0]) != 1 || fields[0][0] > 127 {
			return nil, fmt.Errorf("bad matrix row name %q", fields[0])
		}
		if len(fields)-1 != len(cols) {
			return nil, fmt.Errorf("matrix row %q has %d cells, want %d", fields[0], len(fields)-1, len(cols))
		}
		row := fields[0][0]
		for k, f := range fields[1:] {
			s, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("bad matrix score %q: %w", f, err)
			}
			m.scores[row][cols[k]] = float32(s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read substitution matrix: %w", err)
	}
	if cols == nil {
		return nil, fmt.Errorf("substitution matrix is empty")
	}
	return m, nil
}

func mustSubstitutionMatrix(text string) *SubstitutionMatrix {
	m, err := LoadSubstitutionMatrix(strings.NewReader(text))
	if err != nil {
		panic(err)
	}
	return m
}

// PAM250Matrix is the default substitution matrix, suitable for distantly
// related protein sequences.
var PAM250Matrix = mustSubstitutionMatrix(pam250Text)

// max32 returns the larger operand. A NaN in the second position is sticky,
// so callers put the possibly-NaN candidate first: max32(NaN, x) == x.
func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// AlignmentScore computes the Smith-Waterman-Gotoh local alignment score of
// two sequences under the given substitution matrix. The score is zero when
// either sequence is empty or no positively scoring alignment exists.
//
// The implementation keeps a single DP row plus a gap row, so memory is
// O(len(s2)) and time O(len(s1)*len(s2)).
func AlignmentScore(m *SubstitutionMatrix, s1, s2 string) float32 {
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	negInf := float32(math.Inf(-1))
	v := make([]float32, len(s2)+1) // best alignment score ending at column j
	g := make([]float32, len(s2)+1) // best score with a gap open in s2's direction
	for j := range g {
		g[j] = negInf
	}

	var best float32
	for i := 1; i <= len(s1); i++ {
		a := s1[i-1]
		var diag float32 // v[j-1] of the previous row
		h := negInf      // best score with a gap open in s1's direction
		for j := 1; j <= len(s2); j++ {
			g[j] = max32(g[j]-alignGapExtend, v[j]-alignGapOpen)
			h = max32(h-alignGapExtend, v[j-1]-alignGapOpen)
			d := diag + m.Score(a, s2[j-1])

			// d may be NaN for pairs outside the matrix; keeping it as the
			// first operand makes max32 discard it.
			cell := max32(d, max32(g[j], h))
			cell = max32(cell, 0)

			diag = v[j]
			v[j] = cell
			best = max32(cell, best)
		}
	}
	return best
}

// SmithWaterman is a sequence descriptor measured by local alignment
// distance. The sequence and its self-similarity are fixed at construction.
type SmithWaterman struct {
	keyedObject
	seq    string
	matrix *SubstitutionMatrix
	self   float32
}

// NewSmithWaterman creates a sequence descriptor scored with PAM250Matrix.
func NewSmithWaterman(seq string) (*SmithWaterman, error) {
	return NewSmithWatermanMatrix(seq, PAM250Matrix)
}

// NewSmithWatermanMatrix creates a sequence descriptor scored with the given
// matrix. Both operands of a distance computation should share one matrix;
// the receiver's matrix is the one used.
func NewSmithWatermanMatrix(seq string, m *SubstitutionMatrix) (*SmithWaterman, error) {
	if err := checkLineValue(seq); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("substitution matrix must not be nil")
	}
	return &SmithWaterman{
		seq:    seq,
		matrix: m,
		self:   AlignmentScore(m, seq, seq),
	}, nil
}

// TypeName returns TypeSmithWaterman.
func (d *SmithWaterman) TypeName() string {
	return TypeSmithWaterman
}

// Sequence returns the stored sequence.
func (d *SmithWaterman) Sequence() string {
	return d.seq
}

// SelfSimilarity returns the cached alignment score of the sequence against
// itself.
func (d *SmithWaterman) SelfSimilarity() float32 {
	return d.self
}

// Distance computes sqrt(s(a,a) + s(b,b) - 2*s(a,b)) under the receiver's
// substitution matrix. The alignment always runs to completion; the threshold
// is not used for early exit.
func (d *SmithWaterman) Distance(other Descriptor, threshold float32) (float32, error) {
	o, ok := other.(*SmithWaterman)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, d.TypeName(), other.TypeName())
	}
	cross := AlignmentScore(d.matrix, d.seq, o.seq)
	sq := d.self + o.self - 2*cross
	if sq < 0 {
		// Guard against rounding pushing the square slightly negative.
		sq = 0
	}
	return float32(math.Sqrt(float64(sq))), nil
}

// WriteText writes the sequence as one line.
func (d *SmithWaterman) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, d.seq)
	return err
}

// WriteBinary writes the key followed by the length-prefixed sequence. The
// self-similarity is recomputed on read.
func (d *SmithWaterman) WriteBinary(w io.Writer) (int64, error) {
	bw := newBinaryWriter(w)
	bw.writeKey(d.key)
	bw.writeString(d.seq)
	return bw.finish()
}

// BinarySize returns the exact size of the binary serialization.
func (d *SmithWaterman) BinarySize() int {
	return keyBinarySize(d.key) + stringBinarySize(d.seq)
}

// DataEquals reports sequence equality with another SmithWaterman.
func (d *SmithWaterman) DataEquals(other Descriptor) bool {
	o, ok := other.(*SmithWaterman)
	return ok && d.seq == o.seq
}

// Clone returns a copy sharing the immutable sequence, matrix and key.
func (d *SmithWaterman) Clone() Descriptor {
	c := &SmithWaterman{seq: d.seq, matrix: d.matrix, self: d.self}
	c.key = d.key
	return c
}

func parseSmithWatermanLine(line string) (Descriptor, error) {
	return NewSmithWaterman(line)
}

func readSmithWatermanBinary(br *binaryReader) (Descriptor, error) {
	key := br.readKey()
	seq := br.readString()
	if br.err != nil {
		return nil, br.err
	}
	d, err := NewSmithWaterman(seq)
	if err != nil {
		return nil, err
	}
	d.key = key
	return d, nil
}

// Verify interface compliance at compile time.
var _ Descriptor = (*SmithWaterman)(nil)

// pam250Text is the PAM250 scoring matrix in the standard text layout.
const pam250Text = `# PAM250 substitution matrix
   A  R  N  D  C  Q  E  G  H  I  L  K  M  F  P  S  T  W  Y  V  B  Z  X  *
A  2 -2  0  0 -2  0  0  1 -1 -1 -2 -1 -1 -3  1  1  1 -6 -3  0  0  0  0 -8
R -2  6  0 -1 -4  1 -1 -3  2 -2 -3  3  0 -4  0  0 -1  2 -4 -2 -1  0 -1 -8
N  0  0  2  2 -4  1  1  0  2 -2 -3  1 -2 -3  0  1  0 -4 -2 -2  2  1  0 -8
D  0 -1  2  4 -5  2  3  1  1 -2 -4  0 -3 -6 -1  0  0 -7 -4 -2  3  3 -1 -8
C -2 -4 -4 -5 12 -5 -5 -3 -3 -2 -6 -5 -5 -4 -3  0 -2 -8  0 -2 -4 -5 -3 -8
Q  0  1  1  2 -5  4  2 -1  3 -2 -2  1 -1 -5  0 -1 -1 -5 -4 -2  1  3 -1 -8
E  0 -1  1  3 -5  2  4  0  1 -2 -3  0 -2 -5 -1  0  0 -7 -4 -2  3  3 -1 -8
G  1 -3  0  1 -3 -1  0  5 -2 -3 -4 -2 -3 -5  0  1  0 -7 -5 -1  0  0 -1 -8
H -1  2  2  1 -3  3  1 -2  6 -2 -2  0 -2 -2  0 -1 -1 -3  0 -2  1  2 -1 -8
I -1 -2 -2 -2 -2 -2 -2 -3 -2  5  2 -2  2  1 -2 -1  0 -5 -1  4 -2 -2 -1 -8
L -2 -3 -3 -4 -6 -2 -3 -4 -2  2  6 -3  4  2 -3 -3 -2 -2 -1  2 -3 -3 -1 -8
K -1  3  1  0 -5  1  0 -2  0 -2 -3  5  0 -5 -1  0  0 -3 -4 -2  1  0 -1 -8
M -1  0 -2 -3 -5 -1 -2 -3 -2  2  4  0  6  0 -2 -2 -1 -4 -2  2 -2 -2 -1 -8
F -3 -4 -3 -6 -4 -5 -5 -5 -2  1  2 -5  0  9 -5 -3 -3  0  7 -1 -4 -5 -2 -8
P  1  0  0 -1 -3  0 -1  0  0 -2 -3 -1 -2 -5  6  1  0 -6 -5 -1 -1  0 -1 -8
S  1  0  1  0  0 -1  0  1 -1 -1 -3  0 -2 -3  1  2  1 -2 -3 -1  0  0  0 -8
T  1 -1  0  0 -2 -1  0  0 -1  0 -2  0 -1 -3  0  1  3 -5 -3  0  0 -1  0 -8
W -6  2 -4 -7 -8 -5 -7 -7 -3 -5 -2 -3 -4  0 -6 -2 -5 17  0 -6 -5 -6 -4 -8
Y -3 -4 -2 -4  0 -4 -4 -5  0 -1 -1 -4 -2  7 -5 -3 -3  0 10 -2 -3 -4 -2 -8
V  0 -2 -2 -2 -2 -2 -2 -1 -2  4  2 -2  2 -1 -1 -1  0 -6 -2  4 -2 -2 -1 -8
B  0 -1  2  3 -4  1  3  0  1 -2 -3  1 -2 -4 -1  0  0 -5 -3 -2  3  2 -1 -8
Z  0  0  1  3 -5  3  3  0  2 -2 -3  0 -2 -5  0  0 -1 -6 -4 -2  2  3 -1 -8
X  0 -1  0 -1 -3 -1 -1 -1 -1 -1 -1 -1 -1 -2 -1  0  0 -4 -2 -1 -1 -1 -1 -8
* -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8 -8  1
`
