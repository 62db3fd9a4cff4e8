// Copyright 2017, Kerby Shedden and the Muscato contributors.

package aggregate

import "testing"

func TestWindowedSum(t *testing.T) {
	a := []float64{1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}
	v, err := Windowed(a, 4, Sum, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != len(a)-4+1 {
		t.Fatalf("got length %d, want %d", len(v), len(a)-4+1)
	}
	if v[0] != 2 {
		t.Errorf("v[0] = %v, want 2", v[0])
	}
	if v[9] != 2 {
		t.Errorf("v[9] = %v, want 2", v[9])
	}
}

func TestWindowedMeanMatchesSum(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	sum, err := Windowed(a, 3, Sum, true)
	if err != nil {
		t.Fatal(err)
	}
	mean, err := Windowed(a, 3, Mean, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sum {
		if mean[i] != sum[i]/3 {
			t.Errorf("mean[%d] = %v, want %v", i, mean[i], sum[i]/3)
		}
	}
}

func TestWindowedChunkedMatchesUnchunked(t *testing.T) {
	n := ChunkThreshold + 500
	a := make([]float64, n)
	for i := range a {
		a[i] = float64(i % 7)
	}
	w := 17
	unchunked := make([]float64, n-w+1)
	windowedChunk(a, w, unchunked)

	chunked, err := Windowed(a, w, Sum, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := range unchunked {
		if chunked[i] != unchunked[i] {
			t.Fatalf("mismatch at %d: chunked=%v unchunked=%v", i, chunked[i], unchunked[i])
		}
	}
}

func TestWindowedInvalidWindow(t *testing.T) {
	if _, err := Windowed([]float64{1, 2}, 0, Sum, true); err == nil {
		t.Error("expected error for W=0")
	}
	if _, err := Windowed([]float64{1, 2}, 5, Sum, true); err == nil {
		t.Error("expected error for W>N at top level")
	}
	v, err := Windowed([]float64{1, 2}, 5, Sum, false)
	if err != nil {
		t.Errorf("sub-array W>len(sub) should not error, got %v", err)
	}
	if v != nil {
		t.Errorf("sub-array W>len(sub) should return nil, got %v", v)
	}
}
