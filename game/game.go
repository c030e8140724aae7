package game

// A Game supplies the solver with move generation, hashing and primitive-value
// testing for a tiered game. All methods must be pure functions of their
// arguments; the solver calls them concurrently from multiple goroutines.
type Game interface {
	// Name is used to build the on-disk database directory for this game
	// and variant.
	Name() string

	// InitialTier returns the tier containing the initial position.
	InitialTier() Tier

	// TierSize returns the number of positions in the given tier. Position
	// hashes within the tier are dense in [0, TierSize).
	TierSize(tier Tier) int64

	// ChildTiers returns the tiers reachable in one move from positions in
	// the given tier, not including the tier itself. The solver solves all
	// child tiers before their parents.
	ChildTiers(tier Tier) []Tier

	// IsLegal reports whether the given position is reachable in actual
	// play. Illegal positions are skipped by the solver.
	IsLegal(tp TierPosition) bool

	// Primitive returns the value of the given position if it is terminal,
	// or Undecided otherwise.
	Primitive(tp TierPosition) Value

	// ChildPositions returns all positions reachable in one move from the
	// given position. A child must not appear more than once: undecided
	// child counting depends on each edge appearing exactly once.
	ChildPositions(tp TierPosition) []TierPosition
}

// ParentAware is implemented by games that can generate parent positions
// directly. Games that do not implement it cost the solver an in-memory
// reverse graph over the tier being solved plus all of its child tiers.
type ParentAware interface {
	// ParentPositions returns the positions in parentTier that have the
	// given child as one of their children.
	ParentPositions(child TierPosition, parentTier Tier) []Position
}
