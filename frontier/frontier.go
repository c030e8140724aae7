// Package frontier implements the staging area for solved-but-unprocessed
// positions used by the retrograde tier solver. Positions whose value and
// remoteness have just been determined wait here, bucketed by remoteness,
// until the solver uses them to deduce the values of their parents.
package frontier

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gamescrafters/tiersolver/game"
)

// A Frontier holds one bucket of positions per remoteness plus a divider
// table recording, for each remoteness, how many positions each child tier
// contributed. Child tiers must be loaded strictly sequentially so that each
// tier's contributions form a contiguous run of its bucket; after
// AccumulateDividers the table rows become exclusive prefix-sum offsets into
// the buckets.
type Frontier struct {
	buckets  [][]game.Position
	locks    []sync.Mutex
	dividers [][]int64
	size     int
}

// New creates a frontier with size remoteness buckets and dividersSize
// divider slots per bucket. dividersSize should be the number of child tiers
// of the solving tier plus one, the last slot belonging to the solving tier
// itself.
func New(size, dividersSize int) *Frontier {
	f := &Frontier{
		buckets:  make([][]game.Position, size),
		locks:    make([]sync.Mutex, size),
		dividers: make([][]int64, size),
		size:     size,
	}
	for i := range f.dividers {
		f.dividers[i] = make([]int64, dividersSize)
	}
	return f
}

// Add appends position to the bucket for remoteness and counts it against
// childTierIndex. Safe for concurrent use; adds to the same bucket are
// serialized by that bucket's lock. Returns false if remoteness is out of
// range, which means the configured maximum remoteness is too small for this
// game. Such a failure must abort the solve: a dropped position corrupts
// every ancestor's value.
func (f *Frontier) Add(position game.Position, remoteness, childTierIndex int) bool {
	if remoteness >= f.size {
		log.Error().
			Int("remoteness", remoteness).
			Int("frontier-size", f.size).
			Msg("frontier too small for remoteness; raise game.RemotenessMax")
		return false
	}

	f.locks[remoteness].Lock()
	f.buckets[remoteness] = append(f.buckets[remoteness], position)
	f.dividers[remoteness][childTierIndex]++
	f.locks[remoteness].Unlock()
	return true
}

// AccumulateDividers converts each divider row from per-child-tier counts to
// running offsets. Must be called exactly once, after all Adds are done and
// before any Divider lookup. Calling it twice destroys the row semantics.
func (f *Frontier) AccumulateDividers() {
	for remoteness := 0; remoteness < f.size; remoteness++ {
		row := f.dividers[remoteness]
		// Each row's prefix sum must run sequentially.
		for i := 1; i < len(row); i++ {
			row[i] += row[i-1]
		}
	}
}

// Position returns the i-th position in the bucket for remoteness.
func (f *Frontier) Position(remoteness int, i int64) game.Position {
	return f.buckets[remoteness][i]
}

// BucketSize returns the number of positions at the given remoteness.
func (f *Frontier) BucketSize(remoteness int) int64 {
	return int64(len(f.buckets[remoteness]))
}

// Divider returns the accumulated divider at the given remoteness and child
// tier index: the end offset (exclusive) of that tier's run in the bucket.
func (f *Frontier) Divider(remoteness, childTierIndex int) int64 {
	return f.dividers[remoteness][childTierIndex]
}

// FreeRemoteness releases the bucket and divider row for a fully drained
// remoteness level. Levels are processed in increasing order and never
// revisited, so this bounds peak memory during percolation.
func (f *Frontier) FreeRemoteness(remoteness int) {
	f.buckets[remoteness] = nil
	f.dividers[remoteness] = nil
}

// Size returns the number of remoteness buckets.
func (f *Frontier) Size() int {
	return f.size
}
