// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package assertcover maintains an exact coverage bitmap over one
// sequence's index space and panics (an Internal error, per spec.md
// section 7) the moment a caller tries to mark a position already
// covered, or to mark a position outside [0,N). It is
// the exact-map counterpart of the teacher's probabilistic Bloom-
// filter bit arrays in muscato_screen.go, repurposed here as a debug
// assertion of invariants I1/I2 rather than a similarity sketch.
package assertcover

import (
	"fmt"

	"github.com/golang-collections/go-datastructures/bitarray"
)

// Coverage tracks which positions of a length-N index space have
// already been claimed by a selected window.
type Coverage struct {
	n    int
	bits bitarray.BitArray
}

// New creates a Coverage over [0, n).
func New(n int) *Coverage {
	return &Coverage{n: n, bits: bitarray.NewBitArray(uint64(n))}
}

// MarkRun marks the physical coverage of a run (start, start+length+W-2
// inclusive) as claimed. It panics with an Internal error if any
// position in that range is out of bounds (I1) or already claimed by
// an earlier run (I2).
func (c *Coverage) MarkRun(start, length, w int) {
	end := start + length + w - 2
	if start < 0 || end >= c.n {
		panic(fmt.Errorf("assertcover: I1 violated: run [%d,%d] outside [0,%d)", start, end, c.n))
	}
	for i := start; i <= end; i++ {
		ok, err := c.bits.GetBit(uint64(i))
		if err != nil {
			panic(fmt.Errorf("assertcover: internal error reading bit %d: %w", i, err))
		}
		if ok {
			panic(fmt.Errorf("assertcover: I2 violated: position %d claimed twice", i))
		}
		if err := c.bits.SetBit(uint64(i)); err != nil {
			panic(fmt.Errorf("assertcover: internal error setting bit %d: %w", i, err))
		}
	}
}
