// Package bpdb implements the bit-perfect block-compressed database: records
// are packed at log2(number of distinct record values) bits per position,
// the packed stream is gzip-compressed in independent fixed-size blocks, and
// a per-block offset table keeps random access cheap.
package bpdb

import (
	"fmt"
	"math"

	"github.com/gamescrafters/tiersolver/db"
)

// dictSizeMax caps both dictionary directions. Raw entries and codes are
// int32, and doubling growth must not overflow.
const dictSizeMax = (math.MaxInt32-1)/2 + 1

// A BpDict is the bijection between raw entry values and the dense codes
// stored in a BpArray. Codes are assigned in first-seen order; code 0 is
// always the raw value 0, the undecided record, because a fresh BpArray is
// all zeros.
type BpDict struct {
	// comp maps raw values to codes, indexed directly by raw value with
	// -1 marking unassigned slots.
	comp []int32

	// decomp is the inverse of comp, dense in [0, numUnique).
	decomp []int32

	numUnique int32
}

// NewBpDict creates a dictionary containing only the 0→0 mapping.
func NewBpDict() *BpDict {
	return &BpDict{
		comp:      []int32{0},
		decomp:    []int32{0},
		numUnique: 1,
	}
}

// Get returns the code for raw, or -1 if raw has no code yet.
func (d *BpDict) Get(raw int32) int32 {
	if raw >= int32(len(d.comp)) {
		return -1
	}
	return d.comp[raw]
}

// Key returns the raw value for code. The code must be valid.
func (d *BpDict) Key(code int32) int32 {
	return d.decomp[code]
}

// NumUnique returns the number of assigned codes.
func (d *BpDict) NumUnique() int32 {
	return d.numUnique
}

// Decomp returns the decompression dictionary, dense in [0, NumUnique).
// The caller must not modify it.
func (d *BpDict) Decomp() []int32 {
	return d.decomp[:d.numUnique]
}

// Set assigns the next sequential code to raw. The caller must have checked
// with Get that raw is unassigned. Fails with db.ErrCapacityExceeded if
// either dictionary direction would outgrow its ceiling, which means the
// game has too many distinct record values for bit-perfect compression.
func (d *BpDict) Set(raw int32) error {
	if int64(raw) >= int64(len(d.comp)) {
		if err := d.growComp(raw); err != nil {
			return err
		}
	}
	if d.numUnique >= dictSizeMax {
		return fmt.Errorf("bpdict: %d codes assigned: %w", d.numUnique,
			db.ErrCapacityExceeded)
	}

	d.comp[raw] = d.numUnique
	d.decomp = append(d.decomp, raw)
	d.numUnique++
	return nil
}

func (d *BpDict) growComp(raw int32) error {
	newSize := int64(len(d.comp))
	for newSize <= int64(raw) {
		if newSize >= dictSizeMax {
			return fmt.Errorf("bpdict: raw value %d: %w", raw,
				db.ErrCapacityExceeded)
		}
		newSize *= 2
	}

	grown := make([]int32, newSize)
	copy(grown, d.comp)
	for i := len(d.comp); i < len(grown); i++ {
		grown[i] = -1
	}
	d.comp = grown
	return nil
}
