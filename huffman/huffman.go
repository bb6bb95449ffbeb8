package huffman

import (
	"container/heap"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

const (
	AlphabetSize = 256          // number of distinct input symbols
	PseudoEOF    = AlphabetSize // synthetic end marker, never counted

	MagicNumber = 0xface8200

	bitsPerWord  = 8
	bitsPerInt   = 32
	bitsPerValue = 9 // wide enough for 0..PseudoEOF

	internalValue = -1
	maxCodeLength = 64
)

// Frequencies holds the number of occurrences of every symbol.
type Frequencies [AlphabetSize]int

// CountFrequencies reads r to its end, counting 8-bit symbols.
func CountFrequencies(r io.Reader) (Frequencies, int, error) {
	var freqs Frequencies
	in := bitio.NewReader(r)
	n := 0
	for {
		b, err := in.ReadByte()
		if err == io.EOF {
			return freqs, n, nil
		}
		if err != nil {
			return freqs, n, err
		}
		freqs[b]++
		n++
	}
}

// node represents a node in the Huffman tree.
type node struct {
	value  int   // symbol (0-256), -1 for internal nodes
	weight int   // aggregate frequency
	left   *node // left child
	right  *node // right child
	seq    int   // creation order, breaks weight ties
}

func (n *node) isLeaf() bool {
	return n.value != internalValue
}

// priorityQueue implements a min-heap for nodes.
// Equal weights are ordered by creation, so the first node created is removed first.
type priorityQueue []*node

func (pq *priorityQueue) Len() int { return len(*pq) }
func (pq *priorityQueue) Less(i, j int) bool {
	a, b := (*pq)[i], (*pq)[j]
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.seq < b.seq
}
func (pq *priorityQueue) Swap(i, j int) { (*pq)[i], (*pq)[j] = (*pq)[j], (*pq)[i] }

// Push adds an element to the priority queue.
func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*node))
}

// Pop removes and returns the last element of the underlying slice; use popMin.
func (pq *priorityQueue) Pop() interface{} {
	n := len(*pq)
	item := (*pq)[n-1]
	*pq = (*pq)[:n-1]
	return item
}

func (pq *priorityQueue) push(n *node) {
	heap.Push(pq, n)
}

func (pq *priorityQueue) popMin() *node {
	return heap.Pop(pq).(*node)
}

// Tree is a Huffman tree together with its node counts.
type Tree struct {
	root   *node
	Leaves int // number of leaves, PseudoEOF included
	Nodes  int // number of nodes, leaves included
}

// BuildTree builds the Huffman tree for the given frequencies.
// Every symbol with a nonzero count gets a leaf, and so does PseudoEOF with weight 1.
// A negative frequency will cause a panic.
func BuildTree(freqs *Frequencies) *Tree {
	pq := &priorityQueue{}
	seq := 0
	newNode := func(value, weight int, left, right *node) *node {
		seq++
		return &node{value: value, weight: weight, left: left, right: right, seq: seq}
	}

	for symbol, freq := range freqs {
		if freq < 0 {
			panic("negative frequency")
		}
		if freq != 0 {
			pq.push(newNode(symbol, freq, nil, nil))
		}
	}
	pq.push(newNode(PseudoEOF, 1, nil, nil))

	t := &Tree{Leaves: pq.Len()}
	t.Nodes = t.Leaves

	// Build the tree by merging the two lightest nodes until one node remains.
	for pq.Len() > 1 {
		left := pq.popMin()
		right := pq.popMin()
		pq.push(newNode(internalValue, left.weight+right.weight, left, right))
		t.Nodes++
	}

	t.root = pq.popMin()
	return t
}

// encodedLen is the number of bits of the pre-order tree encoding.
func (t *Tree) encodedLen() int {
	return t.Leaves*bitsPerValue + t.Nodes
}

// symbolCode is a code stored in its low length bits, first bit most significant.
type symbolCode struct {
	encoding uint64
	length   uint8
}

// Code maps every symbol, PseudoEOF included, to its prefix code.
// Symbols absent from the tree have a zero length.
type Code [AlphabetSize + 1]symbolCode

// NewCode derives the code table of a tree by walking it depth first,
// appending 0 when descending left and 1 when descending right.
func NewCode(t *Tree) (*Code, error) {
	var c Code

	// a lone leaf still needs a bit to be written
	if t.root.isLeaf() {
		c[t.root.value] = symbolCode{encoding: 0, length: 1}
		return &c, nil
	}

	var traverse func(n *node, path uint64, depth int) error
	traverse = func(n *node, path uint64, depth int) error {
		if n.isLeaf() {
			if depth > maxCodeLength {
				return fmt.Errorf("code length %d for symbol %d too large", depth, n.value)
			}
			c[n.value] = symbolCode{encoding: path, length: uint8(depth)}
			return nil
		}
		if err := traverse(n.left, path<<1, depth+1); err != nil {
			return err
		}
		return traverse(n.right, path<<1|1, depth+1)
	}

	if err := traverse(t.root, 0, 0); err != nil {
		return nil, err
	}
	return &c, nil
}

// Len returns the code length of symbol s, 0 if it has no code.
func (c *Code) Len(s int) int {
	return int(c[s].length)
}

// String returns the code of symbol s as a string of 0s and 1s.
func (c *Code) String(s int) string {
	sc := c[s]
	b := make([]byte, sc.length)
	for i := range b {
		b[i] = '0' + byte(sc.encoding>>(int(sc.length)-1-i)&1)
	}
	return string(b)
}

// bitWriter is the write side of the bit stream.
// *bitio.Writer implements it, with sticky errors in its TryError field.
type bitWriter interface {
	TryWriteBits(v uint64, nbBits uint8)
}

// bitReader is the read side of the bit stream.
type bitReader interface {
	ReadBits(n uint8) (uint64, error)
	ReadBool() (bool, error)
}

// Encoder writes symbols as their codes.
type Encoder struct {
	w *bitio.Writer
	c *Code
}

// NewEncoder creates an [Encoder] from a [Code] and a [bitio.Writer].
// The [Encoder] will not own the writer. Interleaved writes are permitted.
// The [Code] is not duplicated, so any modifications will be reflected in future writes.
func NewEncoder(c *Code, w *bitio.Writer) *Encoder {
	return &Encoder{c: c, w: w}
}

// Write implements the spirit of [io.Writer], while allowing for
// PseudoEOF to be written as a symbol.
func (e *Encoder) Write(p []int) (n int, err error) {
	for n = range p {
		if err = e.writeSymbol(p[n]); err != nil {
			return
		}
	}
	return len(p), nil
}

func (e *Encoder) writeSymbol(s int) error {
	if s < 0 || s > PseudoEOF {
		return fmt.Errorf("symbol %d out of range", s)
	}
	code := e.c[s]
	if code.length == 0 {
		return fmt.Errorf("%w: symbol %d has no code", ErrInputChanged, s)
	}
	return e.w.WriteBits(code.encoding, code.length)
}

// Decoder reads codes back into symbols by walking a tree.
type Decoder struct {
	root *node
	r    bitReader
}

// NewDecoder creates a [Decoder] from a [Tree] and a [bitio.Reader].
// The [Decoder] will not own the reader. Interleaved reads are permitted.
func NewDecoder(t *Tree, r *bitio.Reader) *Decoder {
	return &Decoder{root: t.root, r: r}
}

// ReadSymbol reads one code and returns its symbol, PseudoEOF included.
// It reads exactly as many bits as the code is long.
func (d *Decoder) ReadSymbol() (int, error) {
	cur := d.root
	for {
		bit, err := d.r.ReadBool()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if !cur.isLeaf() {
			if bit {
				cur = cur.right
			} else {
				cur = cur.left
			}
		}
		if cur.isLeaf() {
			return cur.value, nil
		}
	}
}

// Read implements the spirit of [io.Reader], while allowing for
// PseudoEOF to be read as a symbol.
func (d *Decoder) Read(p []int) (n int, err error) {
	for n = range p {
		if p[n], err = d.ReadSymbol(); err != nil {
			return
		}
	}
	return len(p), nil
}
