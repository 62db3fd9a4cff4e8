// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package exclude implements the Iterative Exclusion Engine
// (component C): repeatedly find the best remaining windows in a
// sequence, excluding the positions already claimed by earlier
// rounds, until no gap large enough for a window remains. Grounded on
// IterableSequenceNumRotateCalculation in
// original_source/src/find_ideal_segments/iterator.py, expressed in
// the teacher's per-sequence processing idiom.
package exclude

import (
	"sort"

	"github.com/kshedden/idealwindow/internal/aggregate"
	"github.com/kshedden/idealwindow/internal/finder"
)

// gap is a half-open sub-interval of [0,N) not yet covered by any
// previously excluded run's physical coverage.
type gap struct {
	start, end int
}

// NextRound runs one pass of the engine: it builds the gaps left over
// after excluding every run in excludedRuns, searches each gap with
// finder.Find, and aggregates the results across gaps. A nil score
// return signals the sequence is exhausted: every gap is either
// smaller than the window or contains no best-scoring window.
//
// wholeV, when non-nil, is the precomputed windowed(a,W,m) array for
// the whole sequence (spec.md section 4.C's optional cache); each
// gap's slice of it is passed to finder.Find instead of recomputing
// the prefix sum. Correctness does not depend on it being supplied.
func NextRound(a []float64, w int, excludedRuns [][]finder.Run, ideal float64, m aggregate.Method, pruneOverlap bool, wholeV []float64) (*float64, []finder.Run, error) {
	gaps := buildGaps(excludedRuns, w, len(a))

	var bestDiff float64 = -1
	var bestScore float64
	var aggregated []finder.Run

	for _, g := range gaps {
		if g.end-g.start < w {
			continue
		}
		var gapCached []float64
		if wholeV != nil {
			gapCached = wholeV[g.start : g.end-w+1]
		}
		score, runs, err := finder.Find(a[g.start:g.end], w, ideal, m, pruneOverlap, gapCached)
		if err != nil {
			return nil, nil, err
		}
		if score == nil {
			continue
		}
		diff := roundSingle(absf(*score - ideal))
		translated := make([]finder.Run, len(runs))
		for i, r := range runs {
			translated[i] = finder.Run{Start: g.start + r.Start, Length: r.Length}
		}
		switch {
		case bestDiff < 0 || diff < bestDiff:
			bestDiff = diff
			bestScore = *score
			aggregated = translated
		case diff == bestDiff:
			aggregated = append(aggregated, translated...)
		}
	}

	if aggregated == nil {
		return nil, nil, nil
	}
	sort.Slice(aggregated, func(i, j int) bool { return aggregated[i].Start < aggregated[j].Start })
	return &bestScore, aggregated, nil
}

// buildGaps flattens every run across all previously excluded rounds,
// sorts by start, and sweeps to emit the uncovered sub-intervals. Each
// run's physical coverage extends length+W-1 positions past its
// start, so the sweep advances past that tail before looking for the
// next gap, per spec.md section 4.C.
func buildGaps(excludedRuns [][]finder.Run, w, n int) []gap {
	var all []finder.Run
	for _, runs := range excludedRuns {
		all = append(all, runs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	var gaps []gap
	lastEnd := 0
	for _, r := range all {
		if r.Start > lastEnd {
			gaps = append(gaps, gap{start: lastEnd, end: r.Start})
		}
		covered := r.Start + r.Length + w - 1
		if covered > lastEnd {
			lastEnd = covered
		}
	}
	if lastEnd < n {
		gaps = append(gaps, gap{start: lastEnd, end: n})
	}
	return gaps
}

func roundSingle(f float64) float64 { return float64(float32(f)) }

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
