package solver

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gamescrafters/tiersolver/game"
)

// frontierless is the state of one frontierless tier solve. Instead of
// staging solved positions in frontier queues, each remoteness level rescans
// the record array to rediscover the positions solved on the previous
// level. Child-tier moves are folded in up front: one scan over each child
// tier maximizes every parent's best outcome reachable by leaving the tier,
// so the undecided-children counters track same-tier children only.
type frontierless struct {
	w       *Worker
	workers int

	tier     game.Tier
	tierSize int64

	parents game.ParentAware

	counters []atomic.Int32

	maxWinLose atomic.Int32
	maxTie     atomic.Int32
}

func (w *Worker) solveFrontierless(ctx context.Context, tier game.Tier, workers int) error {
	parents, ok := w.game.(game.ParentAware)
	if !ok {
		return fmt.Errorf("solver: frontierless requires parent position generation: %w",
			ErrUnsolvable)
	}
	f := &frontierless{
		w:        w,
		workers:  workers,
		tier:     tier,
		tierSize: w.game.TierSize(tier),
		parents:  parents,
	}
	if err := w.db.CreateSolvingTier(tier, f.tierSize); err != nil {
		return err
	}
	f.counters = make([]atomic.Int32, f.tierSize)

	if err := f.processChildTiers(ctx); err != nil {
		return err
	}
	if err := f.scanTier(ctx); err != nil {
		return err
	}
	if err := f.pushUp(ctx); err != nil {
		return err
	}
	f.markDrawPositions()
	if err := w.db.FlushSolvingTier(); err != nil {
		return fmt.Errorf("solver: flush tier %d: %w", tier, err)
	}
	w.db.FreeSolvingTier()
	return nil
}

func atomicMax(target *atomic.Int32, candidate int32) {
	for {
		current := target.Load()
		if candidate <= current || target.CompareAndSwap(current, candidate) {
			return
		}
	}
}

func (f *frontierless) noteRemoteness(value game.Value, remoteness int) {
	switch value {
	case game.Lose, game.Win:
		atomicMax(&f.maxWinLose, int32(remoteness))
	case game.Tie:
		atomicMax(&f.maxTie, int32(remoteness))
	}
}

// deduceParentsOfChild records, for every parent of a solved child-tier
// position, the outcome the parent can force by moving to that child.
func (f *frontierless) deduceParentsOfChild(child game.TierPosition,
	value game.Value, remoteness int) {

	switch value {
	case game.Lose:
		value, remoteness = game.Win, remoteness+1
	case game.Draw:
	case game.Tie:
		remoteness++
	case game.Win:
		value, remoteness = game.Lose, remoteness+1
	default:
		return
	}
	for _, parent := range f.parents.ParentPositions(child, f.tier) {
		f.w.db.MaximizeValueRemoteness(parent, value, remoteness)
	}
}

// processChildTiers scans every child tier once and maximizes each
// solving-tier position's best outcome reachable by moving into a child
// tier. Also learns the largest remotenesses present so the remoteness
// passes know where to stop.
func (f *frontierless) processChildTiers(ctx context.Context) error {
	for _, childTier := range f.w.game.ChildTiers(f.tier) {
		childSize := f.w.game.TierSize(childTier)
		err := forEachChunk(ctx, f.workers, childSize,
			func(tid int, begin, end int64) error {
				probe, err := f.w.db.NewProbe()
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
					if rec.Value() == game.Undecided {
						continue
					}
					f.noteRemoteness(rec.Value(), rec.Remoteness())
					f.deduceParentsOfChild(tp, rec.Value(), rec.Remoteness())
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// scanTier writes primitive positions' records and counts each undecided
// position's same-tier children.
func (f *frontierless) scanTier(ctx context.Context) error {
	return forEachChunk(ctx, f.workers, f.tierSize,
		func(tid int, begin, end int64) error {
			for pos := begin; pos < end; pos++ {
				position := game.Position(pos)
				tp := game.TierPosition{Tier: f.tier, Position: position}
				if !f.w.game.IsLegal(tp) {
					continue
				}

				if value := f.w.game.Primitive(tp); value != game.Undecided {
					f.w.db.SetValue(position, value)
					f.w.db.SetRemoteness(position, 0)
					f.noteRemoteness(value, 0)
					continue
				}

				sameTier := 0
				for _, child := range f.w.game.ChildPositions(tp) {
					if child.Tier == f.tier {
						sameTier++
					}
				}
				if sameTier > maxChildren {
					return fmt.Errorf("solver: position %v has %d same-tier children, limit %d",
						tp, sameTier, maxChildren)
				}
				f.counters[pos].Store(int32(sameTier))
			}
			return nil
		})
}

// deduceParentsFromWin decrements each parent's same-tier counter; a parent
// whose last undecided same-tier child is winning loses in childRmt+1 moves
// unless it already found a better outcome in a child tier.
func (f *frontierless) deduceParentsFromWin(position game.Position, childRmt int) bool {
	tp := game.TierPosition{Tier: f.tier, Position: position}
	advance := false
	for _, parent := range f.parents.ParentPositions(tp, f.tier) {
		if f.counters[parent].Add(-1) == 0 {
			advance = f.w.db.MaximizeValueRemoteness(parent, game.Lose, childRmt+1) || advance
		}
	}
	return advance
}

// deduceParentsFromLoseOrTie finalizes every still-undecided parent as
// parentValue in childRmt+1 moves. A faster win through a child tier is
// impossible: such a parent would have been processed on an earlier level.
func (f *frontierless) deduceParentsFromLoseOrTie(position game.Position,
	childRmt int, parentValue game.Value) bool {

	tp := game.TierPosition{Tier: f.tier, Position: position}
	advance := false
	for _, parent := range f.parents.ParentPositions(tp, f.tier) {
		if f.counters[parent].Swap(0) <= 0 {
			continue // parent already solved
		}
		f.w.db.SetValue(parent, parentValue)
		f.w.db.SetRemoteness(parent, childRmt+1)
		advance = true
	}
	return advance
}

// pushWinLose rescans the tier for winning and losing positions at
// remoteness childRmt and deduces their parents. Reports whether any new
// position was finalized at childRmt+1.
func (f *frontierless) pushWinLose(ctx context.Context, childRmt int) (bool, error) {
	var advance atomic.Bool
	err := forEachChunk(ctx, f.workers, f.tierSize,
		func(tid int, begin, end int64) error {
			for pos := begin; pos < end; pos++ {
				position := game.Position(pos)
				value := f.w.db.GetValue(position)
				if value != game.Win && value != game.Lose {
					continue
				}
				if f.w.db.GetRemoteness(position) != childRmt {
					continue
				}

				if value == game.Win {
					f.counters[pos].Store(0)
					if f.deduceParentsFromWin(position, childRmt) {
						advance.Store(true)
					}
				} else {
					// A losing record with undecided same-tier
					// children is still tentative.
					if f.counters[pos].Load() > 0 {
						continue
					}
					if f.deduceParentsFromLoseOrTie(position, childRmt, game.Win) {
						advance.Store(true)
					}
				}
			}
			return nil
		})
	return advance.Load(), err
}

// pushTie rescans the tier for tying positions at remoteness childRmt once
// the win/lose passes have settled.
func (f *frontierless) pushTie(ctx context.Context, childRmt int) (bool, error) {
	var advance atomic.Bool
	err := forEachChunk(ctx, f.workers, f.tierSize,
		func(tid int, begin, end int64) error {
			for pos := begin; pos < end; pos++ {
				position := game.Position(pos)
				if f.w.db.GetValue(position) != game.Tie {
					continue
				}
				if f.w.db.GetRemoteness(position) != childRmt {
					continue
				}
				f.counters[pos].Store(0)
				if f.deduceParentsFromLoseOrTie(position, childRmt, game.Tie) {
					advance.Store(true)
				}
			}
			return nil
		})
	return advance.Load(), err
}

// pushUp runs the remoteness passes: winning and losing positions first, in
// strictly ascending remoteness order, then tying positions.
func (f *frontierless) pushUp(ctx context.Context) error {
	remoteness := 0
	advance := true
	for remoteness <= int(f.maxWinLose.Load()) || advance {
		if remoteness >= game.NumRemotenesses {
			return fmt.Errorf("solver: tier %d exceeds the maximum remoteness %d",
				f.tier, game.RemotenessMax)
		}
		var err error
		advance, err = f.pushWinLose(ctx, remoteness)
		if err != nil {
			return err
		}
		remoteness++
	}

	remoteness = 0
	advance = true
	for remoteness <= int(f.maxTie.Load()) || advance {
		if remoteness >= game.NumRemotenesses {
			return fmt.Errorf("solver: tier %d exceeds the maximum remoteness %d",
				f.tier, game.RemotenessMax)
		}
		var err error
		advance, err = f.pushTie(ctx, remoteness)
		if err != nil {
			return err
		}
		remoteness++
	}
	return nil
}

// markDrawPositions marks every position that still has undecided same-tier
// children as a draw, unless a child-tier move already secured a tie or a
// win.
func (f *frontierless) markDrawPositions() {
	for pos := int64(0); pos < f.tierSize; pos++ {
		if f.counters[pos].Load() > 0 {
			f.w.db.MaximizeValueRemoteness(game.Position(pos), game.Draw, 0)
		}
	}
	f.counters = nil
}
