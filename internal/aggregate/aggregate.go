// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package aggregate implements the Windowed Aggregator (component A):
// sliding-window sum/mean over a numeric sequence via a chunked prefix
// sum. The input slice and the returned array of all N-W+1 window
// values are held in memory whole; only the accumulation is chunked.
// It generalizes the teacher's chunked read-processing loop in
// muscato_window_reads.go (which streams FASTQ reads in fixed-size
// batches) to a numeric prefix-sum pass.
package aggregate

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Method selects sum or mean scoring.
type Method string

const (
	Sum  Method = "sum"
	Mean Method = "mean"
)

// ErrInvalidWindow tags a non-positive or (at the top level)
// too-large window, the InvalidWindow condition of spec.md section
// 4.A.
var ErrInvalidWindow = fmt.Errorf("invalid window")

// ChunkThreshold is the sequence length above which Windowed splits
// its prefix-sum pass into overlapping chunks, per spec.md section
// 4.A.
const ChunkThreshold = 1_000_000

// Windowed computes v[i] = sum(a[i:i+W]) (or that sum divided by W
// when m is Mean) for every i in [0, len(a)-W]. W must be positive;
// at the top level (topLevel=true) W must also not exceed len(a) or
// ErrInvalidWindow is returned. Called by other components on a
// sub-array, topLevel is false and an over-large window simply
// produces a nil, empty result (soft skip, per spec.md section 4.A).
func Windowed(a []float64, w int, m Method, topLevel bool) ([]float64, error) {
	if w <= 0 {
		return nil, fmt.Errorf("aggregate: %w: W=%d", ErrInvalidWindow, w)
	}
	n := len(a)
	if w > n {
		if topLevel {
			return nil, fmt.Errorf("aggregate: %w: W=%d exceeds N=%d", ErrInvalidWindow, w, n)
		}
		return nil, nil
	}

	out := make([]float64, n-w+1)
	if n <= ChunkThreshold {
		windowedChunk(a, w, out)
	} else {
		// Overlapping chunks of width C+W-1 advancing by C; each
		// chunk recomputes its own local prefix sum so floating
		// accumulation never spans the whole sequence, limiting
		// drift the way spec.md section 9 ("large arrays") asks.
		for start := 0; start < n-w+1; start += ChunkThreshold {
			end := start + ChunkThreshold + w - 1
			if end > n {
				end = n
			}
			windowedChunk(a[start:end], w, out[start:end-w+1])
		}
	}
	if m == Mean {
		for i := range out {
			out[i] /= float64(w)
		}
	}
	return out, nil
}

// windowedChunk fills out[i] = sum(chunk[i:i+w]) for i in
// [0, len(chunk)-w], using a double-precision running prefix sum. The
// first window uses gonum's vectorized Sum; the rest derive
// incrementally in O(1) per step, keeping the whole pass O(len(chunk)).
func windowedChunk(chunk []float64, w int, out []float64) {
	nOut := len(chunk) - w + 1
	if nOut <= 0 {
		return
	}
	cum := floats.Sum(chunk[:w])
	out[0] = cum
	for i := 1; i < nOut; i++ {
		cum += chunk[i+w-1] - chunk[i-1]
		out[i] = cum
	}
}
