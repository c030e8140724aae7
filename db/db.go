// Package db defines the database abstraction the tier solver writes to
// while solving and reads from while probing, along with the Record type
// shared by all implementations.
package db

import (
	"errors"

	"github.com/gamescrafters/tiersolver/game"
)

var (
	// ErrCapacityExceeded reports a design-limit violation, such as a
	// record too wide for bit-perfect encoding or a dictionary past its
	// size ceiling. Not retryable: the game does not fit this scheme.
	ErrCapacityExceeded = errors.New("db: capacity exceeded")

	// ErrCorruptHeader reports a database file whose header fails bounds
	// checks before use.
	ErrCorruptHeader = errors.New("db: corrupt file header")

	// ErrTierNotSolved reports a probe of a tier with no database file.
	ErrTierNotSolved = errors.New("db: tier not solved")

	// ErrNoSolvingTier reports a solving call with no tier created.
	ErrNoSolvingTier = errors.New("db: no solving tier")
)

// TierStatus describes whether a tier's results are on disk.
type TierStatus int

const (
	TierStatusUnsolved TierStatus = iota
	TierStatusSolved
	TierStatusCheckError
)

// A Database stores solver results, one file per tier. At most one tier is
// being solved at a time per Database instance; its records live in memory
// until FlushSolvingTier writes them out. The solving-tier accessors are
// safe for concurrent use by the solver's workers.
type Database interface {
	// Dir returns the directory holding this database's tier files.
	Dir() string

	// CreateSolvingTier allocates the in-memory record store for tier,
	// which has size positions, discarding any previous solving tier.
	CreateSolvingTier(tier game.Tier, size int64) error

	// SetValue sets the value of position in the solving tier.
	SetValue(position game.Position, value game.Value)

	// SetRemoteness sets the remoteness of position in the solving tier.
	SetRemoteness(position game.Position, remoteness int)

	// MaximizeValueRemoteness replaces position's record if
	// (value, remoteness) is a better outcome than the current record per
	// OutcomeCompare, reporting whether the record changed.
	MaximizeValueRemoteness(position game.Position, value game.Value, remoteness int) bool

	// GetValue returns the value of position in the solving tier.
	GetValue(position game.Position) game.Value

	// GetRemoteness returns the remoteness of position in the solving
	// tier.
	GetRemoteness(position game.Position) int

	// FlushSolvingTier writes the solving tier's records to disk.
	FlushSolvingTier() error

	// FreeSolvingTier releases the in-memory record store.
	FreeSolvingTier()

	// TierStatus reports whether tier already has a database file.
	TierStatus(tier game.Tier) TierStatus

	// NewProbe returns a new probe for random-access reads of solved
	// tiers. A probe is single-goroutine state; concurrent probing needs
	// one probe per goroutine.
	NewProbe() (Probe, error)
}

// A Probe reads records of already-solved tiers, caching whatever state the
// implementation needs to make repeated nearby queries cheap.
type Probe interface {
	// Record returns the record of tierPosition.
	Record(tierPosition game.TierPosition) (Record, error)

	// Value returns the value of tierPosition.
	Value(tierPosition game.TierPosition) (game.Value, error)

	// Remoteness returns the remoteness of tierPosition.
	Remoteness(tierPosition game.TierPosition) (int, error)

	// Close releases the probe's resources.
	Close() error
}
