package huffman

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/icza/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDistribution4Bit(t *testing.T) {
	randomRoundTrip(t, randomFrequencies(16, 5), 50)
}

func TestRandomDistribution8Bit(t *testing.T) {
	randomRoundTrip(t, randomFrequencies(AlphabetSize, 1000), 1000)
}

func TestUniform8Bit(t *testing.T) {
	var freqs Frequencies
	for i := range freqs {
		freqs[i] = 1
	}
	tree := BuildTree(&freqs)
	code, err := NewCode(tree)
	require.NoError(t, err)

	// 257 leaves of weight 1: 255 codes of length 8, two of length 9
	lengths := map[int]int{}
	for s := 0; s <= PseudoEOF; s++ {
		lengths[code.Len(s)]++
	}
	require.Equal(t, map[int]int{8: 255, 9: 2}, lengths)
	require.Equal(t, 257, tree.Leaves)
	require.Equal(t, 2*257-1, tree.Nodes)
}

func TestTieBreak(t *testing.T) {
	var freqs Frequencies
	freqs['a'], freqs['b'] = 1, 1

	// a and b are merged first, then EOF (created before the merged node) goes left
	code, err := NewCode(BuildTree(&freqs))
	require.NoError(t, err)
	assert.Equal(t, "0", code.String(PseudoEOF))
	assert.Equal(t, "10", code.String('a'))
	assert.Equal(t, "11", code.String('b'))
	assert.Equal(t, 0, code.Len('c'))
}

func TestSingleSymbol(t *testing.T) {
	var freqs Frequencies
	freqs[7] = 10000

	tree := BuildTree(&freqs)
	require.Equal(t, 2, tree.Leaves)
	require.Equal(t, 3, tree.Nodes)

	code, err := NewCode(tree)
	require.NoError(t, err)
	require.Equal(t, "0", code.String(PseudoEOF))
	require.Equal(t, "1", code.String(7))
}

func TestEmptyInputCode(t *testing.T) {
	var freqs Frequencies
	tree := BuildTree(&freqs)
	require.True(t, tree.root.isLeaf())
	require.Equal(t, PseudoEOF, tree.root.value)
	require.Equal(t, 1, tree.Leaves)
	require.Equal(t, 1, tree.Nodes)

	code, err := NewCode(tree)
	require.NoError(t, err)
	require.Equal(t, "0", code.String(PseudoEOF))

	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	_, err = NewEncoder(code, w).Write([]int{PseudoEOF})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	s, err := NewDecoder(tree, bitio.NewReader(&bb)).ReadSymbol()
	require.NoError(t, err)
	require.Equal(t, PseudoEOF, s)
}

func TestPrefixFree(t *testing.T) {
	for i := 0; i < 20; i++ {
		freqs := randomFrequencies(1+rand.Intn(AlphabetSize), 1+rand.Intn(10000)) //nolint:gosec
		code, err := NewCode(BuildTree(&freqs))
		require.NoError(t, err)

		var codes []string
		for s := 0; s <= PseudoEOF; s++ {
			if code.Len(s) != 0 {
				codes = append(codes, code.String(s))
			}
		}
		for a := range codes {
			for b := range codes {
				if a != b {
					require.False(t, strings.HasPrefix(codes[a], codes[b]), "%s is a prefix of %s", codes[b], codes[a])
				}
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	freqs := randomFrequencies(AlphabetSize, 3) // small weights, many ties
	t1, t2 := BuildTree(&freqs), BuildTree(&freqs)
	requireIsomorphic(t, t1.root, t2.root)

	c1, err := NewCode(t1)
	require.NoError(t, err)
	c2, err := NewCode(t2)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
}

func TestCountFrequencies(t *testing.T) {
	freqs, n, err := CountFrequencies(strings.NewReader("abracadabra"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, 5, freqs['a'])
	require.Equal(t, 2, freqs['b'])
	require.Equal(t, 2, freqs['r'])
	require.Equal(t, 1, freqs['c'])
	require.Equal(t, 1, freqs['d'])
	require.Equal(t, 0, freqs['z'])
}

func TestEncoderRejectsMissingSymbol(t *testing.T) {
	var freqs Frequencies
	freqs['a'] = 3
	code, err := NewCode(BuildTree(&freqs))
	require.NoError(t, err)

	w := bitio.NewWriter(&bytes.Buffer{})
	n, err := NewEncoder(code, w).Write([]int{'a', 'b'})
	require.ErrorIs(t, err, ErrInputChanged)
	require.Equal(t, 1, n)

	_, err = NewEncoder(code, w).Write([]int{PseudoEOF + 1})
	require.Error(t, err)
}

func randomRoundTrip(t *testing.T, freqs Frequencies, textLength int) {
	tree := BuildTree(&freqs)
	code, err := NewCode(tree)
	require.NoError(t, err)

	var present []int
	for s, f := range freqs {
		if f != 0 {
			present = append(present, s)
		}
	}
	text := make([]int, textLength, textLength+1)
	for i := range text {
		text[i] = present[rand.Intn(len(present))] //nolint:gosec
	}
	text = append(text, PseudoEOF)

	// write
	var bb bytes.Buffer
	writer := bitio.NewWriter(&bb)
	enc := NewEncoder(code, writer)
	_, err = enc.Write(text)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	// read back
	textBack := make([]int, len(text))
	reader := bitio.NewReader(&bb)
	dec := NewDecoder(tree, reader)
	_, err = dec.Read(textBack)
	require.NoError(t, err)

	require.Equal(t, text, textBack)
}

// randomFrequencies returns frequencies in [0, bound) for the first nbSymbols symbols,
// with at least one symbol present.
func randomFrequencies(nbSymbols, bound int) Frequencies {
	var freqs Frequencies
	for i := 0; i < nbSymbols; i++ {
		freqs[i] = rand.Intn(bound) //nolint:gosec
	}
	freqs[0]++
	return freqs
}

func requireIsomorphic(t *testing.T, a, b *node) {
	require.Equal(t, a.isLeaf(), b.isLeaf())
	if a.isLeaf() {
		require.Equal(t, a.value, b.value)
		return
	}
	requireIsomorphic(t, a.left, b.left)
	requireIsomorphic(t, a.right, b.right)
}
