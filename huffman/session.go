package huffman

import (
	"fmt"
	"io"

	"github.com/icza/bitio"
	"golang.org/x/exp/slices"
)

// Session carries the state computed by Preprocess to the following Compress call.
// A Session must be preprocessed again before compressing a different input.
// It is not safe for concurrent use; independent inputs should use independent sessions.
type Session struct {
	freqs     Frequencies
	nbSymbols int
	tree      *Tree
	code      *Code
	format    Format
	bitsSaved int
	ready     bool
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Reset discards the preprocessed state.
func (s *Session) Reset() {
	*s = Session{}
}

// Preprocess counts the symbols of r, builds the tree and the code table,
// and returns the number of bits saved by compressing r in the given format.
// The estimate counts every bit Compress will write: magic number, format,
// header, payload and end marker. It is negative when compression expands the input.
func (s *Session) Preprocess(r io.Reader, format Format) (int, error) {
	s.Reset()
	if !format.valid() {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidHeaderFormat, uint32(format))
	}

	freqs, n, err := CountFrequencies(r)
	if err != nil {
		return 0, err
	}
	if format == StoreCounts {
		if err = checkCounts(&freqs); err != nil {
			return 0, err
		}
	}

	tree := BuildTree(&freqs)
	code, err := NewCode(tree)
	if err != nil {
		return 0, err
	}

	s.freqs, s.nbSymbols = freqs, n
	s.tree, s.code, s.format = tree, code, format

	total := s.header().Bits() + code.Len(PseudoEOF)
	for symbol, freq := range freqs {
		total += freq * code.Len(symbol)
	}
	s.bitsSaved = n*bitsPerWord - total
	s.ready = true

	return s.bitsSaved, nil
}

func (s *Session) header() *Header {
	return &Header{Format: s.format, Counts: s.freqs, Tree: s.tree}
}

// BitsSaved returns the estimate computed by the last Preprocess.
func (s *Session) BitsSaved() int {
	return s.bitsSaved
}

// Format returns the header format chosen by the last Preprocess.
func (s *Session) Format() Format {
	return s.format
}

// Tree returns the tree built by the last Preprocess, nil if there is none.
func (s *Session) Tree() *Tree {
	return s.tree
}

// Code returns the code table built by the last Preprocess, nil if there is none.
func (s *Session) Code() *Code {
	return s.code
}

// Frequencies returns the symbol counts of the preprocessed input.
func (s *Session) Frequencies() Frequencies {
	return s.freqs
}

// Compress writes the compressed form of r to w and returns the number of bits written,
// padding excluded. r must present the same bytes as the input given to Preprocess.
// Unless force is set, nothing is written and ErrNoSavings is returned
// when the estimate says compression would expand the input.
func (s *Session) Compress(r io.Reader, w io.Writer, force bool) (int, error) {
	if !s.ready {
		return 0, ErrNotPreprocessed
	}
	if s.bitsSaved < 0 && !force {
		return 0, fmt.Errorf("%w: %d bits lost", ErrNoSavings, -s.bitsSaved)
	}

	bw := bitio.NewWriter(w)
	n, err := s.encode(r, bw)
	if err != nil {
		return n, err
	}
	return n, bw.Close()
}

// encode writes the header, the code of every symbol of in and the end marker.
func (s *Session) encode(in io.Reader, w *bitio.Writer) (int, error) {
	hc := bitCounter{w: w}
	s.header().writeTo(&hc)
	if w.TryError != nil {
		return hc.nbBits, w.TryError
	}
	total := hc.nbBits

	var recount Frequencies
	enc := NewEncoder(s.code, w)
	r := bitio.NewReader(in)
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
		if err = enc.writeSymbol(int(b)); err != nil {
			return total, err
		}
		recount[b]++
		total += s.code.Len(int(b))
	}

	if !slices.Equal(recount[:], s.freqs[:]) {
		return total, fmt.Errorf("%w: symbol counts changed between passes", ErrInputChanged)
	}

	if err := enc.writeSymbol(PseudoEOF); err != nil {
		return total, err
	}
	return total + s.code.Len(PseudoEOF), nil
}

type decodeState uint8

const (
	readingMagic decodeState = iota
	readingFormat
	decoding
	done
	failed
)

// Decompress reads a compressed stream from r and writes the original bytes to w.
// It returns the number of bytes written. Bits following the end marker are never read.
func Decompress(r io.Reader, w io.Writer) (int, error) {
	out := bitio.NewWriter(w)
	n, err := decode(bitio.NewReader(r), out)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}

func decode(r bitReader, out io.ByteWriter) (n int, err error) {
	var (
		h     *Header
		dec   *Decoder
		state = readingMagic
	)
	for {
		switch state {
		case readingMagic:
			if err = readMagic(r); err != nil {
				state = failed
				continue
			}
			state = readingFormat
		case readingFormat:
			if h, err = readFormat(r); err != nil {
				state = failed
				continue
			}
			dec = &Decoder{root: h.Tree.root, r: r}
			state = decoding
		case decoding:
			var symbol int
			if symbol, err = dec.ReadSymbol(); err != nil {
				state = failed
				continue
			}
			if symbol == PseudoEOF {
				state = done
				continue
			}
			if err = out.WriteByte(byte(symbol)); err != nil {
				state = failed
				continue
			}
			n++
		case done:
			return n, nil
		case failed:
			return n, err
		}
	}
}
