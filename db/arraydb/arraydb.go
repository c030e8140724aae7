// Package arraydb is the uncompressed database: one little-endian uint16
// record per position, written out verbatim. Tier files are larger than
// bpdb's but trivially seekable, which makes this the database of choice
// for small games and for cross-checking the compressed implementation.
package arraydb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// recordBytes is the on-disk size of one record.
const recordBytes = 2

// DB stores one flat file of records per tier.
type DB struct {
	dir string

	tier    game.Tier
	records *db.RecordArray
}

var _ db.Database = (*DB)(nil)

// New creates (or reopens) an uncompressed database rooted at dir.
func New(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("arraydb: create %s: %w", dir, err)
	}
	return &DB{dir: dir, tier: game.IllegalTier}, nil
}

// Dir returns the database directory.
func (d *DB) Dir() string {
	return d.dir
}

func tierPath(dir string, tier game.Tier) string {
	return filepath.Join(dir, fmt.Sprintf("%d.arr", tier))
}

// CreateSolvingTier allocates the in-memory record array for tier,
// discarding any previous solving tier.
func (d *DB) CreateSolvingTier(tier game.Tier, size int64) error {
	d.tier = tier
	d.records = db.NewRecordArray(size)
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

// FlushSolvingTier writes the solving tier's records to disk as a flat
// little-endian uint16 array.
func (d *DB) FlushSolvingTier() error {
	if d.records == nil {
		return db.ErrNoSolvingTier
	}
	path := tierPath(d.dir, d.tier)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("arraydb: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	size := d.records.Size()
	var buf [recordBytes]byte
	for i := int64(0); i < size; i++ {
		binary.LittleEndian.PutUint16(buf[:], uint16(d.records.Load(game.Position(i))))
		if _, err := w.Write(buf[:]); err != nil {
			f.Close()
			return fmt.Errorf("arraydb: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("arraydb: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("arraydb: close %s: %w", path, err)
	}
	log.Debug().Int64("tier", int64(d.tier)).Int64("size", size).
		Str("path", path).Msg("flushed tier")
	return nil
}

// FreeSolvingTier releases the in-memory record array.
func (d *DB) FreeSolvingTier() {
	d.records = nil
	d.tier = game.IllegalTier
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
	return &probe{dir: d.dir, tier: game.IllegalTier}, nil
}
