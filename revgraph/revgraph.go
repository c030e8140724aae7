// Package revgraph implements the in-memory reverse position graph built by
// the tier solver for games that cannot generate parent positions directly.
// While the solver explores a tier forward it records every (child, parent)
// edge here; when a child's value is later finalized, the solver pops that
// child's parent list instead of re-deriving moves.
package revgraph

import (
	"fmt"
	"sync"

	"github.com/gamescrafters/tiersolver/containers"
	"github.com/gamescrafters/tiersolver/game"
)

// lockStripes bounds lock memory: positions share mutexes by index modulo
// this value instead of carrying one mutex each.
const lockStripes = 1 << 12

// A Graph maps each position in the solving tier or any of its child tiers
// to the list of its parent positions within the solving tier. All involved
// tiers are flattened into a single index space using an offset map that
// assigns each tier a disjoint contiguous range sized to its position count.
type Graph struct {
	offsetMap *containers.Int64Map
	parentsOf [][]game.Position
	locks     [lockStripes]sync.Mutex
	size      int64
}

// New builds a reverse graph over childTiers plus thisTier. tierSize reports
// the number of positions in a tier; total graph size is the sum over all
// involved tiers.
func New(childTiers []game.Tier, thisTier game.Tier, tierSize func(game.Tier) int64) *Graph {
	g := &Graph{offsetMap: containers.NewInt64Map(0.5)}
	for _, tier := range childTiers {
		g.offsetMap.Set(int64(tier), g.size)
		g.size += tierSize(tier)
	}
	g.offsetMap.Set(int64(thisTier), g.size)
	g.size += tierSize(thisTier)
	g.parentsOf = make([][]game.Position, g.size)
	return g
}

// index flattens tierPosition into the graph's address space. Looking up a
// tier that was not passed to New is an internal consistency bug in the
// solver, not a user error, and panics.
func (g *Graph) index(tierPosition game.TierPosition) int64 {
	offset, ok := g.offsetMap.Get(int64(tierPosition.Tier))
	if !ok {
		panic(fmt.Sprintf("revgraph: tier %d not registered", tierPosition.Tier))
	}
	return offset + int64(tierPosition.Position)
}

// Add records parent as a parent of child. Safe for concurrent use.
func (g *Graph) Add(child game.TierPosition, parent game.Position) {
	i := g.index(child)
	lock := &g.locks[i%lockStripes]
	lock.Lock()
	g.parentsOf[i] = append(g.parentsOf[i], parent)
	lock.Unlock()
}

// PopParentsOf returns the parent list of tierPosition and clears the stored
// slot, transferring ownership to the caller. Each position is popped exactly
// once, when its value is finalized, so settled positions retain no memory.
func (g *Graph) PopParentsOf(tierPosition game.TierPosition) []game.Position {
	i := g.index(tierPosition)
	lock := &g.locks[i%lockStripes]
	lock.Lock()
	parents := g.parentsOf[i]
	g.parentsOf[i] = nil
	lock.Unlock()
	return parents
}

// Size returns the total number of position slots across all registered
// tiers.
func (g *Graph) Size() int64 {
	return g.size
}
