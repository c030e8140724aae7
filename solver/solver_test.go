package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/db/arraydb"
	"github.com/gamescrafters/tiersolver/db/bpdb"
	"github.com/gamescrafters/tiersolver/game"
)

// lineGame is a single tier of three positions. Position 0 is a primitive
// loss; positions 1 and 2 each have a single move to position 0.
type lineGame struct{}

func (lineGame) Name() string                     { return "line" }
func (lineGame) InitialTier() game.Tier           { return 0 }
func (lineGame) TierSize(game.Tier) int64         { return 3 }
func (lineGame) ChildTiers(game.Tier) []game.Tier { return nil }
func (lineGame) IsLegal(game.TierPosition) bool   { return true }

func (lineGame) Primitive(tp game.TierPosition) game.Value {
	if tp.Position == 0 {
		return game.Lose
	}
	return game.Undecided
}

func (lineGame) ChildPositions(tp game.TierPosition) []game.TierPosition {
	if tp.Position == 0 {
		return nil
	}
	return []game.TierPosition{{Tier: 0, Position: 0}}
}

// lineGameParents adds direct parent generation to lineGame.
type lineGameParents struct{ lineGame }

func (lineGameParents) ParentPositions(child game.TierPosition, parentTier game.Tier) []game.Position {
	if child.Position == 0 && parentTier == 0 {
		return []game.Position{1, 2}
	}
	return nil
}

func checkLineGameResults(t *testing.T, d db.Database) {
	t.Helper()
	is := is.New(t)
	p, err := d.NewProbe()
	is.NoErr(err)
	defer p.Close()

	rec, err := p.Record(game.TierPosition{Tier: 0, Position: 0})
	is.NoErr(err)
	is.Equal(rec, db.NewRecord(game.Lose, 0))
	for pos := game.Position(1); pos <= 2; pos++ {
		rec, err := p.Record(game.TierPosition{Tier: 0, Position: pos})
		is.NoErr(err)
		is.Equal(rec, db.NewRecord(game.Win, 1))
	}
}

func TestSolveLineGameWithReverseGraph(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(lineGame{}, d)
	solved, err := w.Solve(context.Background(), 0, Options{})
	is.NoErr(err)
	is.True(solved)
	checkLineGameResults(t, d)
}

func TestSolveLineGameWithParents(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(lineGameParents{}, d)
	solved, err := w.Solve(context.Background(), 0, Options{})
	is.NoErr(err)
	is.True(solved)
	checkLineGameResults(t, d)
}

func TestSolveLineGameFrontierless(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(lineGameParents{}, d)
	solved, err := w.Solve(context.Background(), 0, Options{Strategy: Frontierless})
	is.NoErr(err)
	is.True(solved)
	checkLineGameResults(t, d)
}

func TestSolveSkipsSolvedTier(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(lineGame{}, d)

	solved, err := w.Solve(context.Background(), 0, Options{})
	is.NoErr(err)
	is.True(solved)

	solved, err = w.Solve(context.Background(), 0, Options{})
	is.NoErr(err)
	is.True(!solved)

	solved, err = w.Solve(context.Background(), 0, Options{Force: true})
	is.NoErr(err)
	is.True(solved)
}

func TestSolveUnsolvableMemLimit(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	// lineGame cannot generate parents, so an impossible memory limit
	// leaves no fallback strategy.
	w := New(lineGame{}, d)
	_, err = w.Solve(context.Background(), 0, Options{MemLimit: 1})
	is.True(errors.Is(err, ErrUnsolvable))
}

// splitmix64 is the position hash driving the synthetic game below.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4b9b1
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// dagGame is a deterministic pseudorandom multi-tier game. Tier 0 positions
// are all primitive; higher tiers mix primitives, moves into the tier below
// and forward moves within the same tier (always to a larger position, so
// the position graph stays acyclic).
type dagGame struct {
	numTiers int
	tierSize int64
	seed     uint64
}

func (g dagGame) Name() string           { return "dag" }
func (g dagGame) InitialTier() game.Tier { return game.Tier(g.numTiers - 1) }

func (g dagGame) TierSize(game.Tier) int64 { return g.tierSize }

func (g dagGame) ChildTiers(tier game.Tier) []game.Tier {
	if tier == 0 {
		return nil
	}
	return []game.Tier{tier - 1}
}

func (g dagGame) IsLegal(game.TierPosition) bool { return true }

func (g dagGame) hash(tp game.TierPosition) uint64 {
	return splitmix64(g.seed ^ splitmix64(uint64(tp.Tier)<<32|uint64(tp.Position)))
}

var primitiveValues = []game.Value{game.Lose, game.Win, game.Tie}

func (g dagGame) Primitive(tp game.TierPosition) game.Value {
	h := g.hash(tp)
	if tp.Tier == 0 {
		return primitiveValues[h%3]
	}
	if h%7 == 0 {
		return primitiveValues[(h/7)%3]
	}
	return game.Undecided
}

func (g dagGame) ChildPositions(tp game.TierPosition) []game.TierPosition {
	if g.Primitive(tp) != game.Undecided {
		return nil
	}
	h := g.hash(tp)
	var children []game.TierPosition

	appendUnique := func(child game.TierPosition) {
		for _, c := range children {
			if c == child {
				return
			}
		}
		children = append(children, child)
	}

	// One to three moves into the tier below.
	numBelow := 1 + int(h%3)
	for i := 0; i < numBelow; i++ {
		pos := game.Position((h >> (8 * i)) % uint64(g.tierSize))
		appendUnique(game.TierPosition{Tier: tp.Tier - 1, Position: pos})
	}

	// Up to two forward moves within the same tier.
	for i := 0; i < 2; i++ {
		room := g.tierSize - 1 - int64(tp.Position)
		if room <= 0 {
			break
		}
		step := 1 + int64((h>>(24+8*i))%uint64(min(room, 7)))
		appendUnique(game.TierPosition{Tier: tp.Tier, Position: tp.Position + game.Position(step)})
	}
	return children
}

// parentKey identifies one child position's parent list within one tier.
type parentKey struct {
	child      game.TierPosition
	parentTier game.Tier
}

// dagGameParents wraps a dagGame with parent lists precomputed from the
// forward move generator.
type dagGameParents struct {
	dagGame
	parents map[parentKey][]game.Position
}

func newDagGameParents(g dagGame) dagGameParents {
	parents := make(map[parentKey][]game.Position)
	for tier := 0; tier < g.numTiers; tier++ {
		for pos := int64(0); pos < g.tierSize; pos++ {
			tp := game.TierPosition{Tier: game.Tier(tier), Position: game.Position(pos)}
			for _, child := range g.ChildPositions(tp) {
				key := parentKey{child: child, parentTier: tp.Tier}
				parents[key] = append(parents[key], tp.Position)
			}
		}
	}
	return dagGameParents{dagGame: g, parents: parents}
}

func (g dagGameParents) ParentPositions(child game.TierPosition, parentTier game.Tier) []game.Position {
	return g.parents[parentKey{child: child, parentTier: parentTier}]
}

// solveAll solves every tier of g bottom-up into d.
func solveAll(t *testing.T, g game.Game, d db.Database, opts Options) {
	t.Helper()
	w := New(g, d)
	numTiers := int(g.InitialTier()) + 1
	for tier := 0; tier < numTiers; tier++ {
		solved, err := w.Solve(context.Background(), game.Tier(tier), opts)
		require.NoError(t, err, "tier %d", tier)
		require.True(t, solved, "tier %d", tier)
	}
}

// compareDatabases checks that two databases hold identical records for
// every position of g.
func compareDatabases(t *testing.T, g game.Game, want, got db.Database) {
	t.Helper()
	wantProbe, err := want.NewProbe()
	require.NoError(t, err)
	defer wantProbe.Close()
	gotProbe, err := got.NewProbe()
	require.NoError(t, err)
	defer gotProbe.Close()

	numTiers := int(g.InitialTier()) + 1
	for tier := 0; tier < numTiers; tier++ {
		for pos := int64(0); pos < g.TierSize(game.Tier(tier)); pos++ {
			tp := game.TierPosition{Tier: game.Tier(tier), Position: game.Position(pos)}
			wantRec, err := wantProbe.Record(tp)
			require.NoError(t, err)
			gotRec, err := gotProbe.Record(tp)
			require.NoError(t, err)
			require.Equal(t, wantRec, gotRec,
				"tier %d position %d: want %v/%d, got %v/%d", tier, pos,
				wantRec.Value(), wantRec.Remoteness(),
				gotRec.Value(), gotRec.Remoteness())
		}
	}
}

func TestSolveDagDeterministicAcrossWorkerCounts(t *testing.T) {
	for _, seed := range []uint64{1, 42, 1337} {
		g := dagGame{numTiers: 4, tierSize: 200, seed: seed}

		ref, err := arraydb.New(t.TempDir())
		require.NoError(t, err)
		solveAll(t, g, ref, Options{Workers: 1})

		for _, workers := range []int{2, 8} {
			d, err := arraydb.New(t.TempDir())
			require.NoError(t, err)
			solveAll(t, g, d, Options{Workers: workers})
			compareDatabases(t, g, ref, d)
		}
	}
}

func TestSolveDagParentAwareMatchesReverseGraph(t *testing.T) {
	g := dagGame{numTiers: 3, tierSize: 150, seed: 7}

	ref, err := arraydb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, g, ref, Options{Workers: 1})

	d, err := arraydb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, newDagGameParents(g), d, Options{Workers: 4})
	compareDatabases(t, g, ref, d)
}

func TestSolveDagFrontierlessMatchesPercolation(t *testing.T) {
	g := dagGame{numTiers: 3, tierSize: 150, seed: 99}

	ref, err := arraydb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, g, ref, Options{Workers: 1})

	d, err := arraydb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, newDagGameParents(g), d, Options{Workers: 4, Strategy: Frontierless})
	compareDatabases(t, g, ref, d)
}

func TestSolveDagBitPerfectMatchesArray(t *testing.T) {
	g := dagGame{numTiers: 3, tierSize: 150, seed: 5}

	ref, err := arraydb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, g, ref, Options{Workers: 1})

	d, err := bpdb.New(t.TempDir())
	require.NoError(t, err)
	solveAll(t, g, d, Options{Workers: 4})
	compareDatabases(t, g, ref, d)
}

func TestWorkerTest(t *testing.T) {
	is := is.New(t)
	g := newDagGameParents(dagGame{numTiers: 3, tierSize: 100, seed: 11})
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(g, d)
	for tier := game.Tier(0); tier <= g.InitialTier(); tier++ {
		is.NoErr(w.Test(tier, 2026))
	}
}

// brokenGame generates a child position outside its tier's bounds.
type brokenGame struct{ lineGame }

func (brokenGame) ChildPositions(tp game.TierPosition) []game.TierPosition {
	if tp.Position == 0 {
		return nil
	}
	return []game.TierPosition{{Tier: 0, Position: 99}}
}

func TestWorkerTestDetectsIllegalChild(t *testing.T) {
	is := is.New(t)
	d, err := arraydb.New(t.TempDir())
	is.NoErr(err)
	w := New(brokenGame{}, d)
	is.True(w.Test(0, 1) != nil)
}

func TestStrategySelection(t *testing.T) {
	is := is.New(t)
	g := dagGame{numTiers: 2, tierSize: 100, seed: 3}
	is.Equal(bestStrategy(g, 1, 1<<30), FrontierPercolation)
	is.Equal(bestStrategy(g, 1, 1), Unsolvable)
	is.Equal(bestStrategy(newDagGameParents(g), 1, 30), OneBit)
	is.Equal(bestStrategy(newDagGameParents(g), 1, 1), Unsolvable)
}
