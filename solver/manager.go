package solver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/gamescrafters/tiersolver/config"
	"github.com/gamescrafters/tiersolver/containers"
	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/db/arraydb"
	"github.com/gamescrafters/tiersolver/db/bpdb"
	"github.com/gamescrafters/tiersolver/game"
)

// OpenDatabase opens the configured database variant for g under the
// configured data path, one directory per game.
func OpenDatabase(cfg *config.Config, g game.Game) (db.Database, error) {
	dir := filepath.Join(cfg.DataPath, g.Name())
	if cfg.Compression {
		return bpdb.New(dir)
	}
	return arraydb.New(dir)
}

// OptionsFromConfig translates configuration into solve options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Force:    cfg.Force,
		MemLimit: cfg.MemLimit,
		Workers:  cfg.Workers,
	}
}

// SolveGame solves every tier reachable from g's initial tier, children
// before parents, then writes the finish flag to the database directory.
// A game whose finish flag already exists is skipped entirely unless
// opts.Force is set; individual tiers whose files exist are skipped the
// same way.
func SolveGame(ctx context.Context, g game.Game, database db.Database, opts Options) error {
	done, err := db.FinishFlagExists(database.Dir())
	if err != nil {
		return err
	}
	if done && !opts.Force {
		log.Debug().Str("game", g.Name()).Msg("already solved")
		return nil
	}

	w := New(g, database)
	for _, tier := range solveOrder(g) {
		if _, err := w.Solve(ctx, tier, opts); err != nil {
			return fmt.Errorf("solver: game %s: %w", g.Name(), err)
		}
	}

	if err := db.WriteFinishFlag(database.Dir()); err != nil {
		return err
	}
	log.Debug().Str("game", g.Name()).Msg("solved")
	return nil
}

// DFS states of a tier during the solve-order walk.
const (
	tierDiscovered int64 = iota + 1
	tierOrdered
)

// solveOrder returns the tiers reachable from g's initial tier in an order
// that solves every tier after all of its children. The walk is an explicit
// post-order DFS: a tier is emitted the second time it surfaces on the
// stack, after its children have been emitted. The tier graph is acyclic by
// the Game contract.
func solveOrder(g game.Game) []game.Tier {
	var order []game.Tier
	states := containers.NewInt64MapSC(0.75)
	var stack containers.Int64Array
	stack.PushBack(int64(g.InitialTier()))
	for !stack.Empty() {
		tier := game.Tier(stack.Back())
		state, _ := states.Get(int64(tier))
		switch state {
		case 0:
			states.Set(int64(tier), tierDiscovered)
			for _, child := range g.ChildTiers(tier) {
				if s, _ := states.Get(int64(child)); s == 0 {
					stack.PushBack(int64(child))
				}
			}
		case tierDiscovered:
			states.Set(int64(tier), tierOrdered)
			order = append(order, tier)
			stack.PopBack()
		default:
			// Reached through a second parent after being ordered.
			stack.PopBack()
		}
	}
	return order
}
