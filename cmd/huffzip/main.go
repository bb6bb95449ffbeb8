package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/consensys/huffzip"
	"github.com/consensys/huffzip/huffman"
)

var (
	flagDecompress = flag.Bool("d", false, "decompress")
	flagIn         = flag.String("i", "", "input file (required, - for stdin)")
	flagOut        = flag.String("o", "", "output file (- for stdout)")
	flagNoOut      = flag.Bool("no_out", false, "no output")
	flagReport     = flag.Bool("r", false, "report compression ratio")
	flagFormat     = flag.String("format", "tree", "header format: counts or tree")
	flagForce      = flag.Bool("f", false, "compress even if the output is larger than the input")
	flagVerbose    = flag.Bool("v", false, "debug logging")
	flagVersion    = flag.Bool("version", false, "report executable version")
)

const (
	extension = ".hf"
	version   = "0.1.0"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func assertNoError(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("huffzip")
	}
}

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Println("huffzip v" + version)
		os.Exit(0)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *flagVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *flagIn == "" {
		log.Fatal().Msg("no input file specified")
	}
	if *flagOut != "" && *flagNoOut {
		log.Fatal().Msg("options -no_out and -o are mutually exclusive")
	}

	format, err := huffman.ParseFormat(*flagFormat)
	assertNoError(err)

	if *flagOut == "" { // construct a file name from the input name
		switch {
		case *flagIn == "-":
			*flagOut = "-"
		case *flagDecompress && strings.HasSuffix(*flagIn, extension):
			*flagOut = (*flagIn)[:len(*flagIn)-len(extension)]
		case *flagDecompress:
			*flagOut = *flagIn + ".decompressed"
		default:
			*flagOut = *flagIn + extension
		}
	}

	in := os.Stdin
	if *flagIn != "-" {
		in, err = os.Open(*flagIn)
		assertNoError(err)
		defer in.Close()
	}

	out := io.Discard
	var outFile *os.File
	switch {
	case *flagNoOut:
	case *flagOut == "-":
		out = os.Stdout
	default:
		outFile, err = os.OpenFile(*flagOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		assertNoError(err)
		out = outFile
	}

	var lenC, lenD int
	if *flagDecompress {
		cr := &countingReader{r: in}
		lenD, err = huffman.Decompress(cr, out)
		assertNoError(err)
		lenC = cr.n
	} else {
		src, err := huffzip.NewSource(in)
		assertNoError(err)

		res, err := huffzip.CompressSource(src, out, format, *flagForce)
		if errors.Is(err, huffman.ErrNoSavings) {
			log.Warn().Int("bitsSaved", res.BitsSaved).Msg("compression would expand the input, use -f to compress anyway")
			if outFile != nil {
				_ = outFile.Close()
				_ = os.Remove(*flagOut)
			}
			os.Exit(1)
		}
		assertNoError(err)
		log.Debug().Stringer("format", format).Int("bitsSaved", res.BitsSaved).Int("bitsWritten", res.BitsWritten).Msg("compressed")
		lenC = (res.BitsWritten + 7) / 8
		lenD = (res.BitsWritten + res.BitsSaved) / 8
	}

	if outFile != nil {
		assertNoError(outFile.Close())
	}

	if *flagReport && lenD != 0 {
		ratioPct := lenC * 100 / lenD
		log.Info().Int("compressed", lenC).Int("decompressed", lenD).
			Str("ratio", fmt.Sprintf("%d.%02d", ratioPct/100, ratioPct%100)).
			Msg("report")
	}
}

// countingReader counts the bytes read from r.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
