// Copyright 2017, Kerby Shedden and the Muscato contributors.

package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloat64s writes v as little-endian IEEE 754 doubles into buf,
// which must be exactly len(v)*8 bytes.
func encodeFloat64s(v []float64, buf []byte) {
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
}

// decodeFloat64s reads len(out) little-endian IEEE 754 doubles from
// buf into out.
func decodeFloat64s(buf []byte, out []float64) error {
	if len(buf) != len(out)*8 {
		return fmt.Errorf("cache: blob length %d does not match expected %d", len(buf), len(out)*8)
	}
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return nil
}
