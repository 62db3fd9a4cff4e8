// Copyright 2017, Kerby Shedden and the Muscato contributors.

package mapper

import "testing"

func TestMapGCDict(t *testing.T) {
	dict := map[string]float64{"G": 1, "C": 1, "g": 1, "c": 1}
	a := Map("GCAT", dict, 0)
	want := []float64{1, 1, 0, 0}
	for i := range want {
		if a[i] != want[i] {
			t.Errorf("a[%d] = %v, want %v", i, a[i], want[i])
		}
	}
}

func TestMapExplicitDict(t *testing.T) {
	dict := map[string]float64{"A": 0, "T": 0, "G": 1, "C": 1}
	a := Map("GCAATGGATTAGCTAGGTTCGAAAGTA", dict, -1)
	if len(a) != 27 {
		t.Fatalf("length = %d, want 27", len(a))
	}
	if a[0] != 1 || a[2] != 0 {
		t.Errorf("unexpected mapping: %v", a[:4])
	}
}

func TestMapBeyondDefault(t *testing.T) {
	dict := map[string]float64{"A": 1}
	a := Map("ANA", dict, -5)
	if a[1] != -5 {
		t.Errorf("a[1] = %v, want -5 for unmapped symbol", a[1])
	}
}
