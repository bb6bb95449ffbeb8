package main

import (
	"encoding/csv"
	"flag"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/consensys/huffzip/huffman"
)

var (
	flagIn  = flag.String("i", "", "compressed input file (required)")
	flagAll = flag.Bool("all", false, "also list symbols without a code")
)

// this app prints the header of a compressed file, and its code table as csv
func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *flagIn == "" {
		log.Fatal().Msg("no input file specified")
	}

	f, err := os.Open(*flagIn)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
	defer f.Close()

	// parse header
	h, err := huffman.ReadHeader(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", *flagIn).Msg("bad header")
	}
	code, err := h.Code()
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	ev := log.Info().Stringer("format", h.Format).Int("headerBits", h.Bits()).
		Int("leaves", h.Tree.Leaves).Int("nodes", h.Tree.Nodes)
	if h.Format == huffman.StoreTree {
		ev = ev.Int("storedTreeBits", h.TreeBits)
	}
	ev.Msg(*flagIn)

	w := csv.NewWriter(os.Stdout)
	records := [][]string{{"symbol", "count", "length", "code"}}
	for s := 0; s <= huffman.PseudoEOF; s++ {
		if code.Len(s) == 0 && !*flagAll {
			continue
		}
		name, count := strconv.Itoa(s), ""
		if s == huffman.PseudoEOF {
			name = "EOF"
		} else if h.Format == huffman.StoreCounts {
			count = strconv.Itoa(h.Counts[s])
		}
		records = append(records, []string{name, count, strconv.Itoa(code.Len(s)), code.String(s)})
	}
	if err = w.WriteAll(records); err != nil {
		log.Fatal().Err(err).Send()
	}
}
