// Copyright 2017, Kerby Shedden and the Muscato contributors.
//
// idealwindow scores sliding windows of a numeric (or DNA/symbolic,
// via a dictionary) sequence collection against a target value and
// reports the K windows across the whole collection closest to that
// target, excluding windows already claimed by a better-scoring
// window in the same sequence.
//
// A typical invocation:
//
//	idealwindow -i genes.fasta -w 20 -t 10 -v 1 -d GC -o results.jsonl
//
// See handleArgs below for the full set of parameters.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/kshedden/idealwindow/internal/aggregate"
	"github.com/kshedden/idealwindow/internal/cache"
	"github.com/kshedden/idealwindow/internal/config"
	"github.com/kshedden/idealwindow/internal/ingest"
	"github.com/kshedden/idealwindow/internal/logging"
	"github.com/kshedden/idealwindow/internal/mapper"
	"github.com/kshedden/idealwindow/internal/record"
	"github.com/kshedden/idealwindow/internal/resultio"
	"github.com/kshedden/idealwindow/internal/selector"
	"github.com/kshedden/idealwindow/internal/store"
)

func handleArgs() *config.Config {
	cfg := new(config.Config)

	var input, output, dict, method, profileMode string
	var window, top, sortChunkSize int
	var ideal, beyond float64
	var pruneOverlap, useCache, humanReadable, includeSeq bool

	flag.StringVar(&input, "i", "", "Path to symbolic input file (FASTA)")
	flag.StringVar(&input, "input", "", "Path to symbolic input file (FASTA)")
	flag.IntVar(&window, "w", 0, "Window width, W >= 1")
	flag.IntVar(&window, "window", 0, "Window width, W >= 1")
	flag.IntVar(&top, "t", 10, "Number of top results to retain, K >= 1")
	flag.IntVar(&top, "top", 10, "Number of top results to retain, K >= 1")
	flag.Float64Var(&ideal, "v", 0, "Ideal target score")
	flag.Float64Var(&ideal, "value", 0, "Ideal target score")
	flag.StringVar(&output, "o", "results.jsonl", "Output path; .csv => CSV, .db => SQLite, else JSONL")
	flag.StringVar(&output, "output", "results.jsonl", "Output path; .csv => CSV, .db => SQLite, else JSONL")
	flag.StringVar(&dict, "d", "GC", "Dictionary preset, GC or AT")
	flag.StringVar(&dict, "dict", "GC", "Dictionary preset, GC or AT")
	flag.StringVar(&method, "m", "mean", "Scoring method, mean or sum")
	flag.StringVar(&method, "method", "mean", "Scoring method, mean or sum")
	flag.BoolVar(&pruneOverlap, "f", true, "Enable overlap pruning")
	flag.BoolVar(&pruneOverlap, "filter", true, "Enable overlap pruning")
	flag.Float64Var(&beyond, "b", 0, "Value assigned to symbols outside the dictionary")
	flag.Float64Var(&beyond, "beyond", 0, "Value assigned to symbols outside the dictionary")
	flag.BoolVar(&useCache, "c", true, "Persist the numeric record cache and window-value cache")
	flag.BoolVar(&useCache, "cache", true, "Persist the numeric record cache and window-value cache")
	flag.BoolVar(&humanReadable, "r", true, "Emit 1-based start_idx/end_idx")
	flag.BoolVar(&humanReadable, "human-readable", true, "Emit 1-based start_idx/end_idx")
	flag.IntVar(&sortChunkSize, "s", 10_000_000, "Records per external-sort chunk")
	flag.IntVar(&sortChunkSize, "sort-chunk-size", 10_000_000, "Records per external-sort chunk")
	flag.BoolVar(&includeSeq, "include-seq", false, "Echo the matched subsequence text into results")
	flag.StringVar(&profileMode, "profile", "", "Enable profiling: cpu or mem")
	flag.Parse()

	cfg.InputFileName = input
	cfg.OutputFileName = output
	cfg.Window = window
	cfg.Top = top
	cfg.IdealValue = ideal
	cfg.Method = config.Method(method)
	cfg.DictMode = config.DictMode(dict)
	cfg.Beyond = beyond
	cfg.PruneOverlap = pruneOverlap
	cfg.Cache = useCache
	cfg.HumanReadable = humanReadable
	cfg.SortChunkSize = sortChunkSize
	cfg.IncludeSeq = includeSeq
	cfg.Precision = 4
	cfg.TempDir = "idealwindow_tmp"
	cfg.LogDir = "idealwindow_logs"
	if useCache {
		cfg.CacheDir = ".rotate_windows"
	}

	profileFlag = profileMode
	return cfg
}

var profileFlag string

func main() {
	cfg := handleArgs()

	if cfg.InputFileName == "" {
		fmt.Fprintln(os.Stderr, "idealwindow: -i/--input is required")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		os.Exit(1)
	}

	switch profileFlag {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	case "":
	default:
		fmt.Fprintf(os.Stderr, "idealwindow: unknown -profile mode %q\n", profileFlag)
		os.Exit(1)
	}

	exitCode := run(cfg)
	os.Exit(exitCode)
}

// run wires every component together and returns the process exit
// code, centralizing the scattered os.Exit/panic handling of
// cmd/muscato/muscato.go into a single top-level recover, per
// spec.md section 7's propagation policy.
func run(cfg *config.Config) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "idealwindow: internal error: %v\n", r)
			exitCode = 1
		}
	}()

	logger, err := logging.New(cfg.LogDir, "idealwindow")
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}

	runTempDir := filepath.Join(cfg.TempDir, uuid.NewString())
	if !cfg.NoCleanTemp {
		defer os.RemoveAll(runTempDir)
	}

	in, err := os.Open(cfg.InputFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	defer in.Close()

	symStore, err := store.NewTemp[record.SymbolicSeq](runTempDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	defer symStore.Close()

	n, dupIDs, err := ingest.FASTA(in, symStore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	if len(dupIDs) > 0 {
		fmt.Fprintf(os.Stderr, "idealwindow: duplicate sequence IDs in input: %s\n", strings.Join(dupIDs, ", "))
		return 1
	}
	logger.Printf("Ingested %s sequences from %s", logging.Count(n), cfg.InputFileName)

	dict := cfg.ResolveDict()

	var numericPath string
	if cfg.Cache {
		numericPath = cfg.InputFileName + ".numeric.jsonl"
	}
	var numStore *store.Store[record.NumericSeq]
	if numericPath != "" {
		numStore, err = store.New[record.NumericSeq](numericPath)
	} else {
		numStore, err = store.NewTemp[record.NumericSeq](runTempDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	if err := numStore.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}

	symIt, err := symStore.Iter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	skipped := 0
	for symIt.Next() {
		sym := symIt.Record()
		if cfg.Window > len(sym.Seq) {
			logger.Printf("WindowTooLargeForSequence: skipping %s (N=%d, W=%d)", sym.ID, len(sym.Seq), cfg.Window)
			skipped++
			continue
		}
		a := mapper.Map(sym.Seq, dict, cfg.Beyond)
		if err := numStore.Append(record.NumericSeq{ID: sym.ID, Seq: a}); err != nil {
			symIt.Close()
			fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
			return 1
		}
	}
	if err := symIt.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	symIt.Close()
	if skipped > 0 {
		logger.Printf("Skipped %s sequences (window too large)", logging.Count(skipped))
	}

	var windowCache *cache.Cache
	if cfg.Cache && cfg.CacheDir != "" {
		windowCache, err = cache.Open(cfg.CacheDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
			return 1
		}
		defer windowCache.Close()
	}

	selectedPath := filepath.Join(runTempDir, "selected.jsonl.sz")
	selected, err := selector.Run(numStore, selectedPath, runTempDir, selector.Options{
		Window:        cfg.Window,
		Top:           cfg.Top,
		Ideal:         cfg.IdealValue,
		Method:        aggregate.Method(cfg.Method),
		PruneOverlap:  cfg.PruneOverlap,
		SortChunkSize: cfg.SortChunkSize,
		Precision:     cfg.Precision,
		Cache:         windowCache,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	defer selected.Close()

	var seqLookup map[string]string
	if cfg.IncludeSeq {
		seqLookup, err = loadSeqLookup(symStore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
			return 1
		}
	}

	out, err := resultio.New(cfg.OutputFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}

	selIt, err := selected.Iter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	count := 0
	for selIt.Next() {
		rec := selIt.Record()
		if cfg.IncludeSeq {
			if full, ok := seqLookup[rec.SeqID]; ok && rec.EndIdx < len(full) {
				rec.Seq = full[rec.StartIdx : rec.EndIdx+1]
			}
		}
		if cfg.HumanReadable {
			rec = resultio.HumanReadable(rec)
		}
		if err := out.Write(rec); err != nil {
			selIt.Close()
			out.Close()
			fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
			return 1
		}
		count++
	}
	if err := selIt.Err(); err != nil {
		selIt.Close()
		out.Close()
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}
	selIt.Close()
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "idealwindow: %v\n", err)
		return 1
	}

	logger.Printf("Wrote %s selected windows to %s", logging.Count(count), cfg.OutputFileName)
	return 0
}

// loadSeqLookup builds an in-memory id->sequence-text map for the
// -include-seq flag, the small decoder cache
// finder/file/wordratio.py's decypher_result keeps for the same
// purpose.
func loadSeqLookup(symStore *store.Store[record.SymbolicSeq]) (map[string]string, error) {
	it, err := symStore.Iter()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	m := make(map[string]string)
	for it.Next() {
		rec := it.Record()
		m[rec.ID] = rec.Seq
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
