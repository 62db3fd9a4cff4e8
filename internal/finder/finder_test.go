// Copyright 2017, Kerby Shedden and the Muscato contributors.

package finder

import (
	"reflect"
	"testing"

	"github.com/kshedden/idealwindow/internal/aggregate"
)

func TestFindScenarioS1(t *testing.T) {
	a := []float64{1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}
	score, runs, err := Find(a, 4, 1, aggregate.Mean, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if score == nil || *score != 0.5 {
		t.Fatalf("score = %v, want 0.5", score)
	}
	want := []Run{{0, 1}, {4, 2}, {9, 9}}
	if !reflect.DeepEqual(runs, want) {
		t.Fatalf("runs = %v, want %v", runs, want)
	}
}

func TestFindEmptyInput(t *testing.T) {
	score, runs, err := Find(nil, 4, 1, aggregate.Mean, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if score != nil || runs != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", score, runs)
	}
}

func TestFindWindowLargerThanSequence(t *testing.T) {
	score, runs, err := Find([]float64{1, 2}, 5, 1, aggregate.Mean, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if score != nil || runs != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", score, runs)
	}
}

func TestGroupIntoRuns(t *testing.T) {
	runs := groupIntoRuns([]int{0, 3, 4, 5, 9, 10, 11})
	want := []Run{{0, 1}, {3, 3}, {9, 3}}
	if !reflect.DeepEqual(runs, want) {
		t.Fatalf("runs = %v, want %v", runs, want)
	}
}

func TestPruneOverlappingAbuts(t *testing.T) {
	// next_allowed lands exactly on the next run's start: it must be
	// kept whole, not discarded (spec.md Q4).
	runs := []Run{{0, 1}, {4, 2}}
	pruned := pruneOverlapping(runs, 4)
	want := []Run{{0, 1}, {4, 2}}
	if !reflect.DeepEqual(pruned, want) {
		t.Fatalf("pruned = %v, want %v", pruned, want)
	}
}
