package huffman

import "errors"

var (
	// ErrUnrecognizedStream is returned when a stream does not start with MagicNumber.
	ErrUnrecognizedStream = errors.New("huffman: unrecognized stream")
	// ErrInvalidHeaderFormat is returned for a format selector other than StoreCounts and StoreTree.
	ErrInvalidHeaderFormat = errors.New("huffman: invalid header format")
	// ErrMalformedTree is returned when a stored tree is not a well formed Huffman tree.
	ErrMalformedTree = errors.New("huffman: malformed tree encoding")

	ErrNotPreprocessed = errors.New("huffman: compress called before preprocess")
	ErrInputChanged    = errors.New("huffman: input differs from the preprocessed input")
	ErrNoSavings       = errors.New("huffman: compression would expand the input")
	ErrCountOverflow   = errors.New("huffman: symbol count does not fit in the header")
)
