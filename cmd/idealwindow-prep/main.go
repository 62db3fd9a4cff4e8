// Copyright 2017, Kerby Shedden and the Muscato contributors.
//
// idealwindow-prep converts a FASTA file into a numeric Record Store
// (component F applied up front). idealwindow does not read this
// store back: with -cache it parses the FASTA input, maps it again and
// rewrites <input>.numeric.jsonl, the default output path here.
// Adapted from cmd/muscato_prep_targets/main.go, which performs the
// analogous ahead-of-time conversion for Muscato's alignment targets.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kshedden/idealwindow/internal/config"
	"github.com/kshedden/idealwindow/internal/ingest"
	"github.com/kshedden/idealwindow/internal/logging"
	"github.com/kshedden/idealwindow/internal/mapper"
	"github.com/kshedden/idealwindow/internal/record"
	"github.com/kshedden/idealwindow/internal/store"
)

func main() {
	var input, output, dictMode string
	var beyond float64
	flag.StringVar(&input, "i", "", "Path to the FASTA input file")
	flag.StringVar(&output, "o", "", "Path for the numeric Record Store output (defaults to <input>.numeric.jsonl)")
	flag.StringVar(&dictMode, "d", "GC", "Dictionary preset, GC or AT")
	flag.Float64Var(&beyond, "b", 0, "Value assigned to symbols outside the dictionary")
	flag.Parse()

	if input == "" {
		fmt.Fprintln(os.Stderr, "idealwindow-prep: -i is required")
		os.Exit(1)
	}
	if output == "" {
		output = input + ".numeric.jsonl"
	}

	logger := log.New(os.Stderr, "", log.Ltime)

	in, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	symStore, err := store.NewTemp[record.SymbolicSeq](os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	defer symStore.Close()

	n, dupIDs, err := ingest.FASTA(in, symStore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	if len(dupIDs) > 0 {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: duplicate sequence IDs: %s\n", strings.Join(dupIDs, ", "))
		os.Exit(1)
	}
	logger.Printf("Read %s sequences", logging.Count(n))

	dict := (&config.Config{DictMode: config.DictMode(dictMode)}).ResolveDict()

	numStore, err := store.New[record.NumericSeq](output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	if err := numStore.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}

	it, err := symStore.Iter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	written := 0
	for it.Next() {
		sym := it.Record()
		a := mapper.Map(sym.Seq, dict, beyond)
		if err := numStore.Append(record.NumericSeq{ID: sym.ID, Seq: a}); err != nil {
			it.Close()
			fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
			os.Exit(1)
		}
		written++
	}
	if err := it.Err(); err != nil {
		it.Close()
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}
	it.Close()
	if err := numStore.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow-prep: %v\n", err)
		os.Exit(1)
	}

	logger.Printf("Wrote %s numeric records to %s", logging.Count(written), output)
}
