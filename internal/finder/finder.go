// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package finder implements the Ideal-Window Finder (component B):
// given a numeric sequence, locate every window whose score is
// closest to an ideal value, grouped into consecutive runs and
// optionally pruned of mutual overlap. Grounded on the chunked-scan
// discipline of find_ideal_segments/finder/file/base.py, translated
// into the teacher's chunk-at-a-time processing idiom
// (muscato_window_reads.go).
package finder

import (
	"sort"

	"github.com/kshedden/idealwindow/internal/aggregate"
)

// Run is a maximal block of consecutive window-start positions, all
// attaining the same best score_diff in one call to Find.
type Run struct {
	Start  int
	Length int
}

// scanChunkThreshold is C in spec.md section 4.B: the chunk width used
// while scanning window values for the minimum |v[i]-ideal|.
const scanChunkThreshold = 1_000_000

// Find computes the minimum |score-ideal| over every window of a, and
// returns that score alongside every run of consecutive window-start
// positions attaining it. If cachedV is non-nil it is used instead of
// recomputing window values via aggregate.Windowed. Empty input
// returns (nil, nil, nil).
func Find(a []float64, w int, ideal float64, m aggregate.Method, pruneOverlap bool, cachedV []float64) (*float64, []Run, error) {
	if len(a) == 0 || w > len(a) {
		return nil, nil, nil
	}

	v := cachedV
	if v == nil {
		var err error
		v, err = aggregate.Windowed(a, w, m, false)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(v) == 0 {
		return nil, nil, nil
	}

	_, bestScore, indices := scanForMinimum(v, ideal)
	if len(indices) == 0 {
		return nil, nil, nil
	}

	runs := groupIntoRuns(indices)
	if pruneOverlap {
		runs = pruneOverlapping(runs, w)
	}
	if len(runs) == 0 {
		return nil, nil, nil
	}
	return &bestScore, runs, nil
}

// scanForMinimum walks v in overlapping chunks advancing by half the
// chunk width, so a minimum straddling a chunk boundary is never
// missed, and returns the minimum |v[i]-ideal| along with every index
// attaining it (deduplicated, sorted ascending).
func scanForMinimum(v []float64, ideal float64) (float64, float64, []int) {
	n := len(v)
	if n <= scanChunkThreshold {
		return scanRange(v, 0, n, ideal)
	}

	bestDiff := float64(-1)
	var bestScore float64
	seen := make(map[int]bool)
	var indices []int

	step := scanChunkThreshold / 2
	if step == 0 {
		step = 1
	}
	for start := 0; start < n; start += step {
		end := start + scanChunkThreshold
		if end > n {
			end = n
		}
		chunkDiff, chunkScore, chunkIdx := scanRange(v, start, end, ideal)
		chunkDiff = roundSingle(chunkDiff)
		switch {
		case bestDiff < 0 || chunkDiff < bestDiff:
			bestDiff = chunkDiff
			bestScore = chunkScore
			indices = indices[:0]
			seen = make(map[int]bool)
			for _, i := range chunkIdx {
				if !seen[i] {
					seen[i] = true
					indices = append(indices, i)
				}
			}
		case chunkDiff == bestDiff:
			for _, i := range chunkIdx {
				if !seen[i] {
					seen[i] = true
					indices = append(indices, i)
				}
			}
		}
		if end == n {
			break
		}
	}
	sort.Ints(indices)
	return bestDiff, bestScore, indices
}

// scanRange finds the minimum |v[i]-ideal| within v[start:end] (index
// space relative to the whole of v) and every index attaining it.
func scanRange(v []float64, start, end int, ideal float64) (float64, float64, []int) {
	bestDiff := roundSingle(absf(v[start] - ideal))
	bestScore := v[start]
	indices := []int{start}
	for i := start + 1; i < end; i++ {
		d := roundSingle(absf(v[i] - ideal))
		switch {
		case d < bestDiff:
			bestDiff = d
			bestScore = v[i]
			indices = indices[:0]
			indices = append(indices, i)
		case d == bestDiff:
			indices = append(indices, i)
		}
	}
	return bestDiff, bestScore, indices
}

// roundSingle casts to single precision before comparison, the
// tolerance spec.md section 9 calls for to avoid last-ULP phantom
// minima across chunk boundaries.
func roundSingle(f float64) float64 {
	return float64(float32(f))
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// groupIntoRuns sorts indices ascending and splits them at any gap
// greater than 1, turning each maximal block of consecutive indices
// into a Run.
func groupIntoRuns(indices []int) []Run {
	sort.Ints(indices)
	var runs []Run
	start := indices[0]
	length := 1
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1]+1 {
			length++
			continue
		}
		runs = append(runs, Run{Start: start, Length: length})
		start = indices[i]
		length = 1
	}
	runs = append(runs, Run{Start: start, Length: length})
	return runs
}

// pruneOverlapping keeps the first run and, for every subsequent run
// in ascending start order, discards or trims it so that no two kept
// runs' physical window coverage overlaps. next_allowed is the first
// start position no longer overlapping the previous kept run's
// coverage; a run entirely before next_allowed is discarded, one
// straddling it is trimmed to begin at next_allowed.
func pruneOverlapping(runs []Run, w int) []Run {
	if len(runs) == 0 {
		return nil
	}
	kept := []Run{runs[0]}
	for _, r := range runs[1:] {
		prev := kept[len(kept)-1]
		nextAllowed := prev.Start + prev.Length + w - 1
		endPos := r.Start + r.Length - 1
		if endPos < nextAllowed {
			continue
		}
		newStart := r.Start
		if newStart < nextAllowed {
			newStart = nextAllowed
		}
		trim := newStart - r.Start
		if trim < 0 {
			trim = 0
		}
		kept = append(kept, Run{Start: newStart, Length: r.Length - trim})
	}
	return kept
}
