// Package solver implements retrograde analysis of one tier at a time.
// A Worker is bound to a Game and a Database; Solve computes the value and
// remoteness of every position in a tier from the already-solved child
// tiers and flushes the results through the database.
package solver

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// maxChildren is the largest number of children a single position may have.
// Undecided-children counters are 32-bit cells but the contract matches the
// width a 16-bit counter would allow.
const maxChildren = 32767

// Options control a single tier solve.
type Options struct {
	// Force re-solves the tier even if its database file already exists.
	Force bool

	// MemLimit caps solving memory in bytes. Zero means 90% of physical
	// memory.
	MemLimit uint64

	// Workers is the number of solving goroutines. Zero means
	// runtime.NumCPU().
	Workers int

	// Strategy overrides automatic strategy selection.
	Strategy Strategy
}

// A Worker solves tiers of one game into one database. Workers bound to
// different databases may solve concurrently; a single Worker solves one
// tier at a time.
type Worker struct {
	game game.Game
	db   db.Database
}

// New returns a Worker bound to g and database.
func New(g game.Game, database db.Database) *Worker {
	return &Worker{game: g, db: database}
}

// Solve computes values and remotenesses for every position in tier and
// flushes them to the database. All child tiers of tier must already be
// solved. Returns whether the tier was actually solved; a tier whose
// database file already exists is skipped unless opts.Force is set.
func (w *Worker) Solve(ctx context.Context, tier game.Tier, opts Options) (bool, error) {
	if !opts.Force && w.db.TierStatus(tier) == db.TierStatusSolved {
		return false, nil
	}

	memLimit := opts.MemLimit
	if memLimit == 0 {
		memLimit = defaultMemLimit()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	strategy := opts.Strategy
	if strategy == StrategyAuto {
		strategy = bestStrategy(w.game, tier, memLimit)
	}
	log.Debug().Int64("tier", int64(tier)).
		Stringer("strategy", strategy).Int("workers", workers).
		Msg("solving tier")

	switch strategy {
	case FrontierPercolation:
		if err := w.solvePercolation(ctx, tier, workers); err != nil {
			return false, err
		}
	case Frontierless:
		if err := w.solveFrontierless(ctx, tier, workers); err != nil {
			return false, err
		}
	case OneBit, Unsolvable:
		return false, fmt.Errorf("solver: tier %d with strategy %v: %w",
			tier, strategy, ErrUnsolvable)
	default:
		return false, fmt.Errorf("solver: unknown strategy %d", int(strategy))
	}
	return true, nil
}

// forEachChunk runs fn over [0, n) split into one contiguous chunk per
// worker. The chunk index doubles as a stable goroutine id for per-worker
// state such as frontier triples.
func forEachChunk(ctx context.Context, workers int, n int64,
	fn func(tid int, begin, end int64) error) error {

	if int64(workers) > n {
		workers = int(max(n, 1))
	}
	g, ctx := errgroup.WithContext(ctx)
	for tid := 0; tid < workers; tid++ {
		tid := tid
		begin := int64(tid) * n / int64(workers)
		end := int64(tid+1) * n / int64(workers)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(tid, begin, end)
		})
	}
	return g.Wait()
}

// testSizeMax caps the number of positions sampled by Test.
const testSizeMax = 10000

// Test samples positions of tier and validates the game implementation
// against them: every child must be a legal position within its tier's
// bounds, and if the game generates parent positions directly, every child
// must list the sampled position among its parents. The seed makes a failing
// sample reproducible.
func (w *Worker) Test(tier game.Tier, seed uint64) error {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	rng := frand.NewCustom(key[:], 1024, 12)

	tierSize := w.game.TierSize(tier)
	randomTest := tierSize > testSizeMax
	testSize := tierSize
	if randomTest {
		testSize = testSizeMax
	}

	parentAware, hasParents := w.game.(game.ParentAware)
	for i := int64(0); i < testSize; i++ {
		position := game.Position(i)
		if randomTest {
			position = game.Position(rng.Uint64n(uint64(tierSize)))
		}
		tp := game.TierPosition{Tier: tier, Position: position}
		if !w.game.IsLegal(tp) || w.game.Primitive(tp) != game.Undecided {
			continue
		}

		for _, child := range w.game.ChildPositions(tp) {
			if child.Position < 0 ||
				int64(child.Position) >= w.game.TierSize(child.Tier) ||
				!w.game.IsLegal(child) {
				return fmt.Errorf("solver: test %v: illegal child %v", tp, child)
			}
			if !hasParents {
				continue
			}
			if !containsPosition(parentAware.ParentPositions(child, tier), position) {
				return fmt.Errorf("solver: test %v: child %v does not list it as a parent",
					tp, child)
			}
		}
	}
	return nil
}

func containsPosition(positions []game.Position, target game.Position) bool {
	for _, p := range positions {
		if p == target {
			return true
		}
	}
	return false
}
