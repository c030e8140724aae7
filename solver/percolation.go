package solver

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gamescrafters/tiersolver/frontier"
	"github.com/gamescrafters/tiersolver/game"
	"github.com/gamescrafters/tiersolver/revgraph"
)

// illegalChildren marks unreachable positions in the undecided-children
// counter array so draw marking can tell them apart from decided positions.
const illegalChildren = -1

// percolation is the state of one frontier-percolation tier solve. Newly
// solved positions wait in per-worker frontier triples (one frontier per
// value class per worker, so adds never contend across workers) and are
// drained in increasing remoteness order, decrementing their parents'
// undecided-children counters.
type percolation struct {
	w       *Worker
	workers int

	tier     game.Tier
	tierSize int64

	// Child tiers of the solving tier with the solving tier itself
	// appended. The index into this slice is the frontier divider index.
	childTiers []game.Tier

	win, lose, tie []*frontier.Frontier

	counters []atomic.Int32

	// graph is built only when the game cannot generate parent positions
	// itself.
	graph *revgraph.Graph
}

func (w *Worker) solvePercolation(ctx context.Context, tier game.Tier, workers int) error {
	p := &percolation{
		w:        w,
		workers:  workers,
		tier:     tier,
		tierSize: w.game.TierSize(tier),
	}
	p.initialize()
	if err := p.loadChildren(ctx); err != nil {
		return err
	}
	if err := p.w.db.CreateSolvingTier(tier, p.tierSize); err != nil {
		return err
	}
	if err := p.scanTier(ctx); err != nil {
		return err
	}
	if err := p.pushFrontierUp(ctx); err != nil {
		return err
	}
	p.markDrawPositions()
	if err := p.w.db.FlushSolvingTier(); err != nil {
		return fmt.Errorf("solver: flush tier %d: %w", tier, err)
	}
	p.w.db.FreeSolvingTier()
	return nil
}

func (p *percolation) initialize() {
	children := p.w.game.ChildTiers(p.tier)
	if _, ok := p.w.game.(game.ParentAware); !ok {
		p.graph = revgraph.New(children, p.tier, p.w.game.TierSize)
	}
	p.childTiers = append(append([]game.Tier{}, children...), p.tier)

	p.win = make([]*frontier.Frontier, p.workers)
	p.lose = make([]*frontier.Frontier, p.workers)
	p.tie = make([]*frontier.Frontier, p.workers)
	for i := 0; i < p.workers; i++ {
		p.win[i] = frontier.New(game.NumRemotenesses, len(p.childTiers))
		p.lose[i] = frontier.New(game.NumRemotenesses, len(p.childTiers))
		p.tie[i] = frontier.New(game.NumRemotenesses, len(p.childTiers))
	}

	p.counters = make([]atomic.Int32, p.tierSize)
}

// thisTierIndex is the divider index of the solving tier itself.
func (p *percolation) thisTierIndex() int {
	return len(p.childTiers) - 1
}

// loadFrontier stages a solved position for percolation. Undecided and
// drawing positions have nothing to percolate and are skipped.
func (p *percolation) loadFrontier(tid, childIndex int, position game.Position,
	value game.Value, remoteness int) error {

	var dest *frontier.Frontier
	switch value {
	case game.Undecided, game.Draw:
		return nil
	case game.Win:
		dest = p.win[tid]
	case game.Lose:
		dest = p.lose[tid]
	case game.Tie:
		dest = p.tie[tid]
	default:
		return fmt.Errorf("solver: tier %d position %d has invalid value %v",
			p.childTiers[childIndex], position, value)
	}
	if !dest.Add(position, remoteness, childIndex) {
		return fmt.Errorf("solver: position %d remoteness %d exceeds the frontier",
			position, remoteness)
	}
	return nil
}

// loadChildren scans every child tier's database and stages all non-drawing
// positions. Child tiers are processed strictly sequentially: the frontier
// dividers rely on each tier's contributions forming a contiguous run.
func (p *percolation) loadChildren(ctx context.Context) error {
	for childIndex := 0; childIndex < len(p.childTiers)-1; childIndex++ {
		childTier := p.childTiers[childIndex]
		childSize := p.w.game.TierSize(childTier)
		err := forEachChunk(ctx, p.workers, childSize,
			func(tid int, begin, end int64) error {
				probe, err := p.w.db.NewProbe()
				if err != nil {
					return err
				}
				defer probe.Close()
				for pos := begin; pos < end; pos++ {
					tp := game.TierPosition{Tier: childTier, Position: game.Position(pos)}
					rec, err := probe.Record(tp)
					if err != nil {
						return fmt.Errorf("solver: load child tier %d: %w",
							childTier, err)
					}
					err = p.loadFrontier(tid, childIndex, game.Position(pos),
						rec.Value(), rec.Remoteness())
					if err != nil {
						return err
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// scanTier counts every position's children, writes primitive positions'
// records and stages them at remoteness 0, and registers parent edges in
// the reverse graph when one is in use.
func (p *percolation) scanTier(ctx context.Context) error {
	err := forEachChunk(ctx, p.workers, p.tierSize,
		func(tid int, begin, end int64) error {
			for pos := begin; pos < end; pos++ {
				position := game.Position(pos)
				tp := game.TierPosition{Tier: p.tier, Position: position}
				if !p.w.game.IsLegal(tp) {
					p.counters[pos].Store(illegalChildren)
					continue
				}

				if value := p.w.game.Primitive(tp); value != game.Undecided {
					p.w.db.SetValue(position, value)
					p.w.db.SetRemoteness(position, 0)
					err := p.loadFrontier(tid, p.thisTierIndex(), position, value, 0)
					if err != nil {
						return err
					}
					continue
				}

				children := p.w.game.ChildPositions(tp)
				if len(children) == 0 {
					return fmt.Errorf("solver: undecided position %v has no children", tp)
				}
				if len(children) > maxChildren {
					return fmt.Errorf("solver: position %v has %d children, limit %d",
						tp, len(children), maxChildren)
				}
				if p.graph != nil {
					for _, child := range children {
						p.graph.Add(child, position)
					}
				}
				p.counters[pos].Store(int32(len(children)))
			}
			return nil
		})
	if err != nil {
		return err
	}

	for i := 0; i < p.workers; i++ {
		p.win[i].AccumulateDividers()
		p.lose[i].AccumulateDividers()
		p.tie[i].AccumulateDividers()
	}
	return nil
}

// parentsOf returns the solving-tier parents of child, consuming the reverse
// graph entry when a reverse graph is in use.
func (p *percolation) parentsOf(child game.TierPosition) []game.Position {
	if p.graph != nil {
		return p.graph.PopParentsOf(child)
	}
	return p.w.game.(game.ParentAware).ParentPositions(child, p.tier)
}

// pushFrontierUp drains the frontiers in increasing remoteness order.
// Losing and winning positions percolate first; remoteness r+1 depends on r,
// so levels run strictly sequentially. Tying positions percolate afterwards:
// a tie is only a parent's best outcome once winning is ruled out.
func (p *percolation) pushFrontierUp(ctx context.Context) error {
	for r := 0; r < game.NumRemotenesses; r++ {
		if err := p.pushLevel(ctx, p.lose, r, p.processLose); err != nil {
			return err
		}
		if err := p.pushLevel(ctx, p.win, r, p.processWin); err != nil {
			return err
		}
	}
	for r := 0; r < game.NumRemotenesses; r++ {
		if err := p.pushLevel(ctx, p.tie, r, p.processTie); err != nil {
			return err
		}
	}
	return nil
}

// pushLevel processes all positions of one value class at one remoteness,
// merged across the per-worker frontiers. A worker walking its contiguous
// range keeps monotonic frontier and child-tier hints, so locating each
// position's source tier is amortized constant time.
func (p *percolation) pushLevel(ctx context.Context, frontiers []*frontier.Frontier,
	remoteness int, process func(tid, remoteness int, tp game.TierPosition) error) error {

	offsets := make([]int64, p.workers+1)
	for i := 1; i <= p.workers; i++ {
		offsets[i] = offsets[i-1] + frontiers[i-1].BucketSize(remoteness)
	}

	err := forEachChunk(ctx, p.workers, offsets[p.workers],
		func(tid int, begin, end int64) error {
			frontierID, childIndex := 0, 0
			for i := begin; i < end; i++ {
				for i >= offsets[frontierID+1] {
					frontierID++
					childIndex = 0
				}
				indexInFrontier := i - offsets[frontierID]
				for indexInFrontier >= frontiers[frontierID].Divider(remoteness, childIndex) {
					childIndex++
				}
				tp := game.TierPosition{
					Tier:     p.childTiers[childIndex],
					Position: frontiers[frontierID].Position(remoteness, indexInFrontier),
				}
				if err := process(tid, remoteness, tp); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return err
	}

	for i := 0; i < p.workers; i++ {
		frontiers[i].FreeRemoteness(remoteness)
	}
	return nil
}

// swapToZero atomically fetches the counter and zeroes it. A nonzero return
// means the calling goroutine is the one that finalizes the parent.
func swapToZero(counter *atomic.Int32) int32 {
	return counter.Swap(0)
}

// decrementIfNonZero decrements the counter unless it is already zero and
// returns the original value. Racing goroutines each observe a distinct
// original value, so exactly one of them sees the counter hit zero.
func decrementIfNonZero(counter *atomic.Int32) int32 {
	current := counter.Load()
	for current != 0 {
		if counter.CompareAndSwap(current, current-1) {
			return current
		}
		current = counter.Load()
	}
	return 0
}

// processLose finalizes every undecided parent of a losing position as a win
// in remoteness+1 moves.
func (p *percolation) processLose(tid, remoteness int, tp game.TierPosition) error {
	return p.processLoseOrTie(tid, remoteness, tp, game.Win, p.win[tid])
}

// processTie finalizes every undecided parent of a tying position as a tie
// in remoteness+1 moves. By the time ties percolate, every parent that could
// win has already been decided.
func (p *percolation) processTie(tid, remoteness int, tp game.TierPosition) error {
	return p.processLoseOrTie(tid, remoteness, tp, game.Tie, p.tie[tid])
}

func (p *percolation) processLoseOrTie(tid, remoteness int, tp game.TierPosition,
	value game.Value, dest *frontier.Frontier) error {

	for _, parent := range p.parentsOf(tp) {
		if swapToZero(&p.counters[parent]) == 0 {
			continue // parent already solved
		}
		p.w.db.SetValue(parent, value)
		p.w.db.SetRemoteness(parent, remoteness+1)
		if !dest.Add(parent, remoteness+1, p.thisTierIndex()) {
			return fmt.Errorf("solver: position %d remoteness %d exceeds the frontier",
				parent, remoteness+1)
		}
	}
	return nil
}

// processWin decrements each parent's undecided-children counter. The parent
// whose last undecided child turns out winning has no escape and loses in
// remoteness+1 moves.
func (p *percolation) processWin(tid, remoteness int, tp game.TierPosition) error {
	for _, parent := range p.parentsOf(tp) {
		if decrementIfNonZero(&p.counters[parent]) != 1 {
			continue
		}
		p.w.db.SetValue(parent, game.Lose)
		p.w.db.SetRemoteness(parent, remoteness+1)
		if !p.lose[tid].Add(parent, remoteness+1, p.thisTierIndex()) {
			return fmt.Errorf("solver: position %d remoteness %d exceeds the frontier",
				parent, remoteness+1)
		}
	}
	return nil
}

// markDrawPositions marks every legal position that still has undecided
// children as a draw. Such a position never percolated: optimal play from it
// avoids all decided outcomes forever.
func (p *percolation) markDrawPositions() {
	for pos := int64(0); pos < p.tierSize; pos++ {
		if p.counters[pos].Load() > 0 {
			p.w.db.SetValue(game.Position(pos), game.Draw)
		}
	}
	p.counters = nil
}
