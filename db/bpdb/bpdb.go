package bpdb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// DB is the bit-perfect database. While a tier is being solved its records
// live in an atomic RecordArray; FlushSolvingTier packs them into a BpArray
// and writes the block-compressed tier file. Probes read the files back.
type DB struct {
	dir string

	tier    game.Tier
	size    int64
	records *db.RecordArray
}

var _ db.Database = (*DB)(nil)

// New creates (or reopens) a bit-perfect database rooted at dir.
func New(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bpdb: create %s: %w", dir, err)
	}
	return &DB{dir: dir, tier: game.IllegalTier}, nil
}

// Dir returns the database directory.
func (d *DB) Dir() string {
	return d.dir
}

// CreateSolvingTier allocates the in-memory record array for tier,
// discarding any previous solving tier.
func (d *DB) CreateSolvingTier(tier game.Tier, size int64) error {
	d.tier = tier
	d.size = size
	d.records = db.NewRecordArray(size)
	log.Debug().Int64("tier", int64(tier)).Int64("size", size).
		Msg("created solving tier")
	return nil
}

// SetValue sets the value of position in the solving tier, keeping its
// remoteness.
func (d *DB) SetValue(position game.Position, value game.Value) {
	d.records.SetValue(position, value)
}

// SetRemoteness sets the remoteness of position in the solving tier,
// keeping its value.
func (d *DB) SetRemoteness(position game.Position, remoteness int) {
	d.records.SetRemoteness(position, remoteness)
}

// MaximizeValueRemoteness replaces position's record if (value, remoteness)
// is a better outcome than the current record.
func (d *DB) MaximizeValueRemoteness(position game.Position, value game.Value, remoteness int) bool {
	return d.records.MaximizeOutcome(position, value, remoteness)
}

// GetValue returns the value of position in the solving tier.
func (d *DB) GetValue(position game.Position) game.Value {
	return d.records.Load(position).Value()
}

// GetRemoteness returns the remoteness of position in the solving tier.
func (d *DB) GetRemoteness(position game.Position) int {
	return d.records.Load(position).Remoteness()
}

// FlushSolvingTier encodes the solving tier's records bit-perfectly and
// writes the tier file.
func (d *DB) FlushSolvingTier() error {
	if d.records == nil {
		return db.ErrNoSolvingTier
	}
	arr, err := EncodeAll(d.records)
	if err != nil {
		return fmt.Errorf("bpdb: encode tier %d: %w", d.tier, err)
	}
	return flushToFile(tierPath(d.dir, d.tier), arr)
}

// FreeSolvingTier releases the in-memory record array.
func (d *DB) FreeSolvingTier() {
	d.records = nil
	d.tier = game.IllegalTier
	d.size = 0
}

// TierStatus reports whether tier's file exists on disk.
func (d *DB) TierStatus(tier game.Tier) db.TierStatus {
	_, err := os.Stat(tierPath(d.dir, tier))
	if err == nil {
		return db.TierStatusSolved
	}
	if errors.Is(err, fs.ErrNotExist) {
		return db.TierStatusUnsolved
	}
	return db.TierStatusCheckError
}

// NewProbe returns a probe over this database's tier files.
func (d *DB) NewProbe() (db.Probe, error) {
	return NewProbe(d.dir), nil
}
