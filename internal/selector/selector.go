// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package selector implements the Global Top-K Selector (component
// E): repeatedly advance every live sequence through the Iterative
// Exclusion Engine one round at a time, keep only the K windows
// closest to the ideal score across all sequences and all rounds, and
// stop the moment every sequence is exhausted. Grounded on
// windowFinderinJsonl.find in
// original_source/src/find_ideal_segments/finder/file/base.py,
// expressed over this module's typed Record Store.
package selector

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kshedden/idealwindow/internal/aggregate"
	"github.com/kshedden/idealwindow/internal/assertcover"
	"github.com/kshedden/idealwindow/internal/cache"
	"github.com/kshedden/idealwindow/internal/exclude"
	"github.com/kshedden/idealwindow/internal/finder"
	"github.com/kshedden/idealwindow/internal/record"
	"github.com/kshedden/idealwindow/internal/store"
)

// Options configures one run of the selector.
type Options struct {
	Window        int
	Top           int
	Ideal         float64
	Method        aggregate.Method
	PruneOverlap  bool
	SortChunkSize int
	Precision     int

	// Cache, when non-nil, is consulted once per sequence per round
	// for a precomputed windowed(a,W,m) array (spec.md section 4.C's
	// optional whole-sequence cache). Correctness never depends on
	// it: a cache miss or CacheCorruption simply recomputes.
	Cache *cache.Cache
}

// ByScoreDiffThenStart orders Selected-Window records by
// (score_diff, start_idx), the sort key spec.md section 4.E requires
// before truncating each round's candidates.
func ByScoreDiffThenStart(a, b record.SelectedWindow) int {
	if a.ScoreDiff != b.ScoreDiff {
		if a.ScoreDiff < b.ScoreDiff {
			return -1
		}
		return 1
	}
	if a.StartIdx != b.StartIdx {
		if a.StartIdx < b.StartIdx {
			return -1
		}
		return 1
	}
	return 0
}

// Run drives the round loop of spec.md section 4.E to completion,
// writing the final selection into a store at resultPath and
// returning it opened for reading. sIn is consumed: it becomes the
// first round's live sequence store and is closed once it has been
// replaced.
func Run(sIn *store.Store[record.NumericSeq], resultPath, tempDir string, opts Options) (*store.Store[record.SelectedWindow], error) {
	selected, err := store.New[record.SelectedWindow](resultPath)
	if err != nil {
		return nil, err
	}

	live := sIn
	var worstKeptDiff *float64
	selectedCount := 0

	for {
		n, err := live.Len()
		if err != nil {
			return nil, fmt.Errorf("selector: %w", err)
		}
		if n == 0 {
			live.Close()
			break
		}

		candidatesW, err := store.NewTemp[record.SelectedWindow](tempDir)
		if err != nil {
			return nil, err
		}
		candidatesS, err := store.NewTemp[record.NumericSeq](tempDir)
		if err != nil {
			return nil, err
		}

		roundWorst := worstKeptDiff
		remainingSlots := opts.Top - selectedCount
		candCount := 0

		it, err := live.Iter()
		if err != nil {
			return nil, err
		}
		for it.Next() {
			seq := it.Record()

			excludedRuns := make([][]finder.Run, 0, len(seq.Rounds))
			for _, r := range seq.Rounds {
				excludedRuns = append(excludedRuns, toFinderRuns(r.Windows))
			}

			wv, err := wholeV(opts.Cache, seq, opts.Method, opts.Window)
			if err != nil {
				it.Close()
				return nil, fmt.Errorf("selector: %w", err)
			}

			score, runs, err := exclude.NextRound(seq.Seq, opts.Window, excludedRuns, opts.Ideal, opts.Method, opts.PruneOverlap, wv)
			if err != nil {
				it.Close()
				return nil, fmt.Errorf("selector: %w", err)
			}

			if score == nil {
				seq.Rounds = append(seq.Rounds, record.Round{Score: nil, Windows: nil})
				continue
			}

			assertRunCoverage(len(seq.Seq), excludedRuns, runs, opts.Window)

			scoreR := roundTo(*score, opts.Precision)
			diffR := roundTo(math.Abs(scoreR-opts.Ideal), opts.Precision)
			seq.Rounds = append(seq.Rounds, record.Round{Score: &scoreR, Windows: toRecordRuns(runs)})

			admit := candCount < remainingSlots
			if !admit && roundWorst != nil {
				admit = diffR <= *roundWorst
			}
			if !admit {
				continue
			}
			if roundWorst == nil || diffR > *roundWorst {
				d := diffR
				roundWorst = &d
			}

			for _, r := range runs {
				sw := record.SelectedWindow{
					SeqID:                   seq.ID,
					StartIdx:                r.Start,
					EndIdx:                  record.EndIdx(r.Start, r.Length, opts.Window),
					ConsecutiveWindowLength: r.Length,
					Score:                   scoreR,
					ScoreDiff:               diffR,
				}
				if err := candidatesW.Append(sw); err != nil {
					it.Close()
					return nil, err
				}
			}
			if err := candidatesS.Append(seq); err != nil {
				it.Close()
				return nil, err
			}
			candCount++
		}
		if err := it.Err(); err != nil {
			it.Close()
			return nil, fmt.Errorf("selector: %w", err)
		}
		it.Close()

		if err := candidatesW.SortBy(ByScoreDiffThenStart, opts.SortChunkSize); err != nil {
			return nil, err
		}
		if err := candidatesW.TruncateHead(remainingSlots); err != nil {
			return nil, err
		}

		cwIt, err := candidatesW.Iter()
		if err != nil {
			return nil, err
		}
		var lastDiff float64
		appended := 0
		for cwIt.Next() {
			rec := cwIt.Record()
			if err := selected.Append(rec); err != nil {
				cwIt.Close()
				return nil, err
			}
			lastDiff = rec.ScoreDiff
			appended++
		}
		if err := cwIt.Err(); err != nil {
			cwIt.Close()
			return nil, fmt.Errorf("selector: %w", err)
		}
		cwIt.Close()

		selectedCount += appended
		if appended > 0 && selectedCount >= opts.Top {
			d := lastDiff
			worstKeptDiff = &d
		}

		if err := candidatesW.Close(); err != nil {
			return nil, err
		}
		live.Close()
		live = candidatesS
	}

	return selected, nil
}

// assertRunCoverage rebuilds the exact coverage bitmap for a sequence
// from every run excluded so far plus the round's newly found runs,
// panicking (an Internal error) if any run violates I1 (bounds) or I2
// (non-overlap). This is a debug assertion, not load-bearing logic:
// exclude.NextRound's gap arithmetic already guarantees both
// invariants, so MarkRun should never actually panic in a correct
// build.
func assertRunCoverage(n int, excludedRuns [][]finder.Run, runs []finder.Run, w int) {
	cov := assertcover.New(n)
	for _, round := range excludedRuns {
		for _, r := range round {
			cov.MarkRun(r.Start, r.Length, w)
		}
	}
	for _, r := range runs {
		cov.MarkRun(r.Start, r.Length, w)
	}
}

func toFinderRuns(runs []record.Run) []finder.Run {
	out := make([]finder.Run, len(runs))
	for i, r := range runs {
		out[i] = finder.Run{Start: r.Start, Length: r.Length}
	}
	return out
}

func toRecordRuns(runs []finder.Run) []record.Run {
	out := make([]record.Run, len(runs))
	for i, r := range runs {
		out[i] = record.Run{Start: r.Start, Length: r.Length}
	}
	return out
}

// roundTo rounds f to precision decimal digits, the rounding spec.md
// Q3 requires on score and score_diff before they are compared,
// stored, or sorted on.
func roundTo(f float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(f*scale) / scale
}

// wholeV returns the precomputed windowed(a,W,m) array for seq via c,
// computing and caching it on a miss or CacheCorruption. c == nil
// disables caching entirely and NextRound falls back to its normal
// per-gap computation.
func wholeV(c *cache.Cache, seq record.NumericSeq, m aggregate.Method, w int) ([]float64, error) {
	if c == nil {
		return nil, nil
	}
	if w > len(seq.Seq) {
		return nil, nil
	}
	fp := cache.Fingerprint(floatsToBytes(seq.Seq))
	v, err := c.Lookup(seq.ID, string(m), w, len(seq.Seq), fp)
	if err != nil && err != cache.ErrCorruption {
		return nil, err
	}
	if v != nil && err == nil {
		return v, nil
	}

	v, computeErr := aggregate.Windowed(seq.Seq, w, m, false)
	if computeErr != nil {
		return nil, computeErr
	}
	if v == nil {
		return nil, nil
	}
	if err := c.Store(seq.ID, string(m), w, len(seq.Seq), fp, v); err != nil {
		return nil, err
	}
	return v, nil
}

func floatsToBytes(a []float64) []byte {
	buf := make([]byte, len(a)*8)
	for i, x := range a {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}
