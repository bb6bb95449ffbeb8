package huffman

import (
	"fmt"
	"io"
	"math"

	"github.com/icza/bitio"
)

// Format selects how the tree is stored in the header.
type Format uint32

const (
	// StoreCounts stores the frequency of every symbol; the decoder rebuilds the tree from them.
	StoreCounts Format = 0x7fffffff
	// StoreTree stores the shape of the tree in pre-order.
	StoreTree Format = 0x7ffffffe
)

func (f Format) String() string {
	switch f {
	case StoreCounts:
		return "counts"
	case StoreTree:
		return "tree"
	}
	return fmt.Sprintf("Format(%#x)", uint32(f))
}

// ParseFormat is the inverse of [Format.String].
func ParseFormat(s string) (Format, error) {
	switch s {
	case "counts":
		return StoreCounts, nil
	case "tree":
		return StoreTree, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHeaderFormat, s)
}

func (f Format) valid() bool {
	return f == StoreCounts || f == StoreTree
}

// Header is the metadata preceding the payload of a compressed stream.
type Header struct {
	Format   Format
	Counts   Frequencies // StoreCounts only
	TreeBits int         // StoreTree only: the stored length of the tree encoding, informative
	Tree     *Tree
}

// writeTo writes the magic number, the format and the format payload.
// Errors are left to the writer.
func (h *Header) writeTo(w bitWriter) {
	w.TryWriteBits(MagicNumber, bitsPerInt)
	w.TryWriteBits(uint64(h.Format), bitsPerInt)

	switch h.Format {
	case StoreCounts:
		for _, c := range h.Counts {
			w.TryWriteBits(uint64(c), bitsPerInt)
		}
	case StoreTree:
		w.TryWriteBits(uint64(h.Tree.encodedLen()), bitsPerInt)
		writeTree(w, h.Tree.root)
	}
}

func writeTree(w bitWriter, n *node) {
	if n.isLeaf() {
		w.TryWriteBits(1, 1)
		w.TryWriteBits(uint64(n.value), bitsPerValue)
		return
	}
	w.TryWriteBits(0, 1)
	writeTree(w, n.left)
	writeTree(w, n.right)
}

// checkCounts reports whether every count fits in the counts header.
func checkCounts(freqs *Frequencies) error {
	for s, c := range freqs {
		if uint64(c) > math.MaxUint32 {
			return fmt.Errorf("%w: symbol %d occurs %d times", ErrCountOverflow, s, c)
		}
	}
	return nil
}

// ReadHeader reads and validates the header of a compressed stream,
// leaving r positioned at an unknown bit offset past it.
func ReadHeader(r io.Reader) (*Header, error) {
	return readHeader(bitio.NewReader(r))
}

func readHeader(r bitReader) (*Header, error) {
	if err := readMagic(r); err != nil {
		return nil, err
	}
	return readFormat(r)
}

// readBits reads n bits, turning a premature end of input into io.ErrUnexpectedEOF.
func readBits(r bitReader, n uint8) (uint64, error) {
	v, err := r.ReadBits(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}

func readMagic(r bitReader) error {
	magic, err := r.ReadBits(bitsPerInt)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: too short for a magic number", ErrUnrecognizedStream)
	}
	if err != nil {
		return err
	}
	if magic != MagicNumber {
		return fmt.Errorf("%w: magic number %#x", ErrUnrecognizedStream, magic)
	}
	return nil
}

// readFormat reads the format selector and the tree stored after it.
func readFormat(r bitReader) (*Header, error) {
	f, err := readBits(r, bitsPerInt)
	if err != nil {
		return nil, err
	}

	h := &Header{Format: Format(f)}
	switch h.Format {
	case StoreCounts:
		for i := range h.Counts {
			c, err := readBits(r, bitsPerInt)
			if err != nil {
				return nil, err
			}
			h.Counts[i] = int(c)
		}
		h.Tree = BuildTree(&h.Counts)
	case StoreTree:
		n, err := readBits(r, bitsPerInt)
		if err != nil {
			return nil, err
		}
		h.TreeBits = int(n)
		if h.Tree, err = readTree(r); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %#x", ErrInvalidHeaderFormat, f)
	}
	return h, nil
}

// readTree rebuilds a tree from its pre-order encoding. The traversal ends on its own;
// the stored length is not used to bound it.
func readTree(r bitReader) (*Tree, error) {
	t := &Tree{}
	var seen [AlphabetSize + 1]bool
	internal := 0

	var read func() (*node, error)
	read = func() (*node, error) {
		flag, err := r.ReadBits(1)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: ran out of bits after %d nodes", ErrMalformedTree, t.Nodes)
		}
		if err != nil {
			return nil, err
		}
		t.Nodes++

		if flag == 1 {
			v, err := r.ReadBits(bitsPerValue)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: ran out of bits in a leaf", ErrMalformedTree)
			}
			if err != nil {
				return nil, err
			}
			if v > PseudoEOF {
				return nil, fmt.Errorf("%w: leaf value %d out of range", ErrMalformedTree, v)
			}
			if seen[v] {
				return nil, fmt.Errorf("%w: symbol %d stored twice", ErrMalformedTree, v)
			}
			seen[v] = true
			t.Leaves++
			return &node{value: int(v)}, nil
		}

		// a full binary tree over at most AlphabetSize+1 leaves has at most AlphabetSize internal nodes
		if internal++; internal > AlphabetSize {
			return nil, fmt.Errorf("%w: too many internal nodes", ErrMalformedTree)
		}
		left, err := read()
		if err != nil {
			return nil, err
		}
		right, err := read()
		if err != nil {
			return nil, err
		}
		return &node{value: internalValue, left: left, right: right}, nil
	}

	root, err := read()
	if err != nil {
		return nil, err
	}
	if !seen[PseudoEOF] {
		return nil, fmt.Errorf("%w: no end of stream marker", ErrMalformedTree)
	}
	t.root = root
	return t, nil
}

// Code returns the code table of the stored tree.
func (h *Header) Code() (*Code, error) {
	return NewCode(h.Tree)
}

// Bits returns the size of the header in bits, magic number and format included.
func (h *Header) Bits() int {
	var bc bitCounter
	h.writeTo(&bc)
	return bc.nbBits
}

// bitCounter counts the bits written through it, forwarding them to w if set.
type bitCounter struct {
	w      bitWriter
	nbBits int
}

func (b *bitCounter) TryWriteBits(v uint64, nbBits uint8) {
	b.nbBits += int(nbBits)
	if b.w != nil {
		b.w.TryWriteBits(v, nbBits)
	}
}
