// Copyright 2017, Kerby Shedden and the Muscato contributors.

package selector

import (
	"path/filepath"
	"testing"

	"github.com/kshedden/idealwindow/internal/aggregate"
	"github.com/kshedden/idealwindow/internal/record"
	"github.com/kshedden/idealwindow/internal/store"
)

// s1Seq is the scenario-S1 fixture: a=[1,1,0,0,0,1,1,0,0,0,0,1,1,0,0,1,1,0,0,1,1],
// W=4, ideal=1, producing round-1 runs (0,1),(4,2),(9,9) each scoring 0.5.
var s1Seq = []float64{1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}

func newSingleSeqStore(t *testing.T, id string, seq []float64) *store.Store[record.NumericSeq] {
	t.Helper()
	s, err := store.New[record.NumericSeq](filepath.Join(t.TempDir(), "in.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(record.NumericSeq{ID: id, Seq: seq}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunTopKExactlyFillsFirstRound(t *testing.T) {
	in := newSingleSeqStore(t, "s1", s1Seq)
	opts := Options{
		Window:        4,
		Top:           3,
		Ideal:         1,
		Method:        aggregate.Mean,
		PruneOverlap:  true,
		SortChunkSize: 1000,
		Precision:     4,
	}
	out, err := Run(in, filepath.Join(t.TempDir(), "out.jsonl.sz"), t.TempDir(), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	it, err := out.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var got []record.SelectedWindow
	for it.Next() {
		got = append(got, it.Record())
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}

	want := []record.SelectedWindow{
		{SeqID: "s1", StartIdx: 0, EndIdx: 3, ConsecutiveWindowLength: 1, Score: 0.5, ScoreDiff: 0.5},
		{SeqID: "s1", StartIdx: 4, EndIdx: 8, ConsecutiveWindowLength: 2, Score: 0.5, ScoreDiff: 0.5},
		{SeqID: "s1", StartIdx: 9, EndIdx: 20, ConsecutiveWindowLength: 9, Score: 0.5, ScoreDiff: 0.5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRunTopKTruncatesWithinARound(t *testing.T) {
	in := newSingleSeqStore(t, "s1", s1Seq)
	opts := Options{
		Window:        4,
		Top:           2,
		Ideal:         1,
		Method:        aggregate.Mean,
		PruneOverlap:  true,
		SortChunkSize: 1000,
		Precision:     4,
	}
	out, err := Run(in, filepath.Join(t.TempDir(), "out.jsonl.sz"), t.TempDir(), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	n, err := out.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %d selected records, want 2 (Top truncates mid-round)", n)
	}
}

func TestRunExhaustsMultipleSequences(t *testing.T) {
	s, err := store.New[record.NumericSeq](filepath.Join(t.TempDir(), "in.jsonl.sz"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(record.NumericSeq{ID: "a", Seq: s1Seq}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(record.NumericSeq{ID: "b", Seq: s1Seq}); err != nil {
		t.Fatal(err)
	}

	opts := Options{
		Window:        4,
		Top:           100,
		Ideal:         1,
		Method:        aggregate.Mean,
		PruneOverlap:  true,
		SortChunkSize: 1000,
		Precision:     4,
	}
	out, err := Run(s, filepath.Join(t.TempDir(), "out.jsonl.sz"), t.TempDir(), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	n, err := out.Len()
	if err != nil {
		t.Fatal(err)
	}
	// Both sequences must fully exhaust and the loop must terminate
	// (Q1), rather than looping forever or leaving either sequence
	// unprocessed.
	if n != 6 {
		t.Fatalf("got %d selected records, want 6 (the three round-1 runs from each of both sequences)", n)
	}
}

func TestByScoreDiffThenStart(t *testing.T) {
	a := record.SelectedWindow{ScoreDiff: 0.1, StartIdx: 5}
	b := record.SelectedWindow{ScoreDiff: 0.1, StartIdx: 2}
	if ByScoreDiffThenStart(a, b) <= 0 {
		t.Errorf("expected a to sort after b on equal ScoreDiff with larger StartIdx")
	}
	c := record.SelectedWindow{ScoreDiff: 0.05, StartIdx: 9}
	if ByScoreDiffThenStart(c, a) >= 0 {
		t.Errorf("expected smaller ScoreDiff to sort first regardless of StartIdx")
	}
}

func TestRoundTo(t *testing.T) {
	if got := roundTo(0.123456, 4); got != 0.1235 {
		t.Errorf("roundTo(0.123456, 4) = %v, want 0.1235", got)
	}
}
