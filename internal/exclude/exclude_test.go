// Copyright 2017, Kerby Shedden and the Muscato contributors.

package exclude

import (
	"testing"

	"github.com/kshedden/idealwindow/internal/aggregate"
	"github.com/kshedden/idealwindow/internal/finder"
)

func TestNextRoundEventuallyExhausts(t *testing.T) {
	a := []float64{1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}
	w := 4

	var excluded [][]finder.Run
	lastDiff := float64(-1)
	rounds := 0
	for rounds < 100 {
		score, runs, err := NextRound(a, w, excluded, 1, aggregate.Mean, true, nil)
		if err != nil {
			t.Fatal(err)
		}
		if score == nil {
			break
		}
		diff := absf(*score - 1)
		if lastDiff >= 0 && diff < lastDiff {
			t.Fatalf("round %d: diff decreased from %v to %v", rounds, lastDiff, diff)
		}
		lastDiff = diff
		excluded = append(excluded, runs)
		rounds++
	}
	if rounds == 0 {
		t.Fatal("expected at least one round before exhaustion")
	}
	if rounds == 100 {
		t.Fatal("engine did not exhaust within 100 rounds")
	}
}

func TestNextRoundFirstRoundMatchesFinder(t *testing.T) {
	a := []float64{1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}
	w := 4
	score, runs, err := NextRound(a, w, nil, 1, aggregate.Mean, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	wantScore, wantRuns, _ := finder.Find(a, w, 1, aggregate.Mean, true, nil)
	if *score != *wantScore {
		t.Errorf("score = %v, want %v", *score, *wantScore)
	}
	if len(runs) != len(wantRuns) {
		t.Errorf("runs = %v, want %v", runs, wantRuns)
	}
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
