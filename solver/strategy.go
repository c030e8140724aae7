package solver

import (
	"errors"

	"github.com/pbnjay/memory"

	"github.com/gamescrafters/tiersolver/game"
)

// ErrUnsolvable reports that no solving strategy fits the tier within the
// memory limit.
var ErrUnsolvable = errors.New("solver: tier cannot be solved within memory limit")

// A Strategy is one of the backward induction algorithms, trading memory for
// recomputation.
type Strategy int

const (
	// StrategyAuto lets the solver pick the cheapest strategy that fits
	// the memory limit.
	StrategyAuto Strategy = iota

	// FrontierPercolation is classic retrograde analysis: the whole
	// record array stays in memory and newly solved positions are staged
	// in explicit frontier queues. Memory usage depends on the shape of
	// the position graph.
	FrontierPercolation

	// Frontierless optimizes the frontier queues out at the cost of
	// rescanning the record array at each remoteness level to rediscover
	// the positions solved on the previous level. Requires the game to
	// implement ParentPositions.
	Frontierless

	// OneBit is the external-memory algorithm of Wu and Beal using one
	// bit per position in the group formed by the solving tier and its
	// child tiers. Not yet implemented.
	OneBit

	// Unsolvable indicates that the tier does not fit in memory even
	// with the most memory-frugal strategy.
	Unsolvable
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case FrontierPercolation:
		return "frontier percolation"
	case Frontierless:
		return "frontierless"
	case OneBit:
		return "one-bit"
	case Unsolvable:
		return "unsolvable"
	}
	return "unknown"
}

const (
	// Bytes per position held in memory by every in-memory strategy: one
	// 32-bit record cell plus one 32-bit undecided-children counter.
	bytesPerPosition = 4 + 4

	// memLimitNum/memLimitDen of physical memory is the default limit.
	memLimitNum = 9
	memLimitDen = 10
)

// defaultMemLimit returns the default solving memory budget, a fixed
// fraction of physical RAM.
func defaultMemLimit() uint64 {
	return memory.TotalMemory() / memLimitDen * memLimitNum
}

// frontierlessMemReq returns the minimum memory needed to solve a tier of
// the given size with any in-memory strategy. The frontier queues and the
// reverse graph of frontier percolation come on top of this and depend on
// the shape of the position graph.
func frontierlessMemReq(size int64) uint64 {
	return uint64(size) * bytesPerPosition
}

// oneBitMemReq returns the memory needed by the one-bit strategy for a
// tier group (the solving tier plus all of its child tiers) of the given
// total size.
func oneBitMemReq(groupSize int64) uint64 {
	return uint64(groupSize) / 8
}

// bestStrategy picks the cheapest strategy that fits memLimit for tier.
func bestStrategy(g game.Game, tier game.Tier, memLimit uint64) Strategy {
	size := g.TierSize(tier)
	if frontierlessMemReq(size) <= memLimit {
		return FrontierPercolation
	}
	if _, ok := g.(game.ParentAware); !ok {
		return Unsolvable
	}
	groupSize := size
	for _, child := range g.ChildTiers(tier) {
		groupSize += g.TierSize(child)
	}
	if oneBitMemReq(groupSize) <= memLimit {
		return OneBit
	}
	return Unsolvable
}
