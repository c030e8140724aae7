package arraydb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// A probe keeps the most recently probed tier's file open and seeks within
// it. Single-goroutine state.
type probe struct {
	dir string

	tier game.Tier
	file *os.File
	size int64 // number of records
}

var _ db.Probe = (*probe)(nil)

func (p *probe) Record(tierPosition game.TierPosition) (db.Record, error) {
	if tierPosition.Tier != p.tier {
		if err := p.reload(tierPosition.Tier); err != nil {
			return 0, err
		}
	}
	pos := int64(tierPosition.Position)
	if pos < 0 || pos >= p.size {
		return 0, fmt.Errorf("arraydb: position %d out of range for tier %d (size %d)",
			pos, p.tier, p.size)
	}
	var buf [recordBytes]byte
	if _, err := p.file.ReadAt(buf[:], pos*recordBytes); err != nil {
		return 0, fmt.Errorf("arraydb: read %v: %w", tierPosition, err)
	}
	return db.Record(binary.LittleEndian.Uint16(buf[:])), nil
}

func (p *probe) Value(tierPosition game.TierPosition) (game.Value, error) {
	rec, err := p.Record(tierPosition)
	if err != nil {
		return game.Undecided, err
	}
	return rec.Value(), nil
}

func (p *probe) Remoteness(tierPosition game.TierPosition) (int, error) {
	rec, err := p.Record(tierPosition)
	if err != nil {
		return 0, err
	}
	return rec.Remoteness(), nil
}

func (p *probe) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	p.tier = game.IllegalTier
	return err
}

func (p *probe) reload(tier game.Tier) error {
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.tier = game.IllegalTier
	path := tierPath(p.dir, tier)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("arraydb: tier %d: %w", tier, db.ErrTierNotSolved)
		}
		return fmt.Errorf("arraydb: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("arraydb: stat %s: %w", path, err)
	}
	if info.Size()%recordBytes != 0 {
		f.Close()
		return fmt.Errorf("arraydb: %s has odd length %d: %w",
			path, info.Size(), db.ErrCorruptHeader)
	}
	p.file = f
	p.tier = tier
	p.size = info.Size() / recordBytes
	return nil
}
