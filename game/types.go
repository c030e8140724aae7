package game

import "fmt"

// A Tier identifies an independent partition of a game's state space. Moves
// from a position in tier T lead only to positions in T or in tiers that are
// solved before T, so the tier graph is acyclic.
type Tier int64

// A Position identifies a game state within a tier. Positions are dense in
// [0, tierSize).
type Position int64

// IllegalTier is used as a sentinel for uninitialized tier fields.
const IllegalTier Tier = -1

// A TierPosition is a fully qualified game state.
type TierPosition struct {
	Tier     Tier
	Position Position
}

func (tp TierPosition) String() string {
	return fmt.Sprintf("%d:%d", tp.Tier, tp.Position)
}

// Value is the game-theoretic value of a position from the perspective of the
// player to move.
type Value uint8

const (
	Undecided Value = iota
	Lose
	Draw
	Tie
	Win
)

// NumValues is the number of distinct Value constants, used by record packing.
const NumValues = 5

func (v Value) String() string {
	switch v {
	case Undecided:
		return "undecided"
	case Lose:
		return "lose"
	case Draw:
		return "draw"
	case Tie:
		return "tie"
	case Win:
		return "win"
	}
	return fmt.Sprintf("value(%d)", uint8(v))
}

const (
	// RemotenessMax is the largest remoteness the solver supports. A tier
	// containing positions farther than this from a primitive position
	// cannot be solved without raising this constant.
	RemotenessMax = 1023

	// NumRemotenesses is the number of values a remoteness can take.
	NumRemotenesses = RemotenessMax + 1
)
