// Package huffzip compresses byte streams with a two-pass Huffman code.
// The codec itself lives in package huffman; this package feeds it inputs
// that can be read twice.
package huffzip

import (
	"bytes"
	"io"

	"github.com/consensys/huffzip/huffman"
)

// Source presents the same bytes to both passes of a compression:
// the counting pass of Preprocess and the encoding pass of Compress.
type Source struct {
	rs    io.ReadSeeker // nil when the input is buffered
	start int64
	buf   []byte
}

// NewSource wraps r. Seekable inputs are rewound between passes,
// anything else (pipes, sockets) is buffered in memory.
func NewSource(r io.Reader) (*Source, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		// an *os.File on a pipe is a ReadSeeker that cannot seek
		if start, err := rs.Seek(0, io.SeekCurrent); err == nil {
			return &Source{rs: rs, start: start}, nil
		}
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Source{buf: buf}, nil
}

// NewSourceBytes returns a source over d.
func NewSourceBytes(d []byte) *Source {
	return &Source{buf: d}
}

// Pass returns a reader positioned at the start of the input.
// Readers returned by earlier calls must not be used anymore.
func (s *Source) Pass() (io.Reader, error) {
	if s.rs == nil {
		return bytes.NewReader(s.buf), nil
	}
	if _, err := s.rs.Seek(s.start, io.SeekStart); err != nil {
		return nil, err
	}
	return s.rs, nil
}

// Result describes a finished compression.
type Result struct {
	BitsSaved   int // estimate from the counting pass
	BitsWritten int // header, payload and end marker, padding excluded
}

// CompressSource runs both passes over src and writes the compressed stream to w.
// Unless force is set, nothing is written when compression would expand the input,
// and the returned error wraps huffman.ErrNoSavings.
func CompressSource(src *Source, w io.Writer, format huffman.Format, force bool) (Result, error) {
	var res Result
	s := huffman.NewSession()

	in, err := src.Pass()
	if err != nil {
		return res, err
	}
	if res.BitsSaved, err = s.Preprocess(in, format); err != nil {
		return res, err
	}

	if in, err = src.Pass(); err != nil {
		return res, err
	}
	res.BitsWritten, err = s.Compress(in, w, force)
	return res, err
}

// Compress compresses d, even when the output is larger than the input.
func Compress(d []byte, format huffman.Format) ([]byte, error) {
	var bb bytes.Buffer
	_, err := CompressSource(NewSourceBytes(d), &bb, format, true)
	return bb.Bytes(), err
}

// Decompress decompresses the given data.
func Decompress(d []byte) ([]byte, error) {
	var bb bytes.Buffer
	if _, err := huffman.Decompress(bytes.NewReader(d), &bb); err != nil {
		return nil, err
	}
	return bb.Bytes(), nil
}
