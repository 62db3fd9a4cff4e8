// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package mapper implements the Symbol->Numeric Mapper (component F):
// a one-pass, position-preserving translation of a symbolic sequence
// into a numeric one via a lookup table and a default value for
// unmapped symbols. Grounded on the teacher's subx/revcomp-style
// one-pass symbol translation in cmd/muscato_prep_targets/main.go.
package mapper

// Map translates sym into a numeric sequence the same length as sym:
// a[i] = dict[sym[i]] if present, else beyond.
func Map(sym string, dict map[string]float64, beyond float64) []float64 {
	a := make([]float64, len(sym))
	for i := 0; i < len(sym); i++ {
		c := string(sym[i])
		if v, ok := dict[c]; ok {
			a[i] = v
		} else {
			a[i] = beyond
		}
	}
	return a
}
