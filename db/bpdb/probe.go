package bpdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// blocksPerBuffer is the read-ahead window: a cache miss decompresses this
// many consecutive blocks, amortizing the seek for sequential-ish probing.
const blocksPerBuffer = 2

// A probe is a reusable reader of solved tier files. It caches one tier's
// header and decompression dictionary plus a sliding window of decompressed
// blocks. The whole cache reloads when the requested tier changes; the block
// window reloads when the requested position falls outside it. A probe is
// single-goroutine state.
type probe struct {
	dir string

	tier   game.Tier
	header *fileHeader
	decomp []int32

	// buffer holds the current block window plus 8 pad bytes for
	// segment reads. begin is the window's byte offset within the
	// uncompressed stream, or -1 when nothing is buffered.
	buffer []byte
	begin  int64
}

// NewProbe creates a probe over the tier files in dir.
func NewProbe(dir string) *probe {
	return &probe{dir: dir, tier: game.IllegalTier, begin: -1}
}

// Record returns the record of tierPosition, reloading the header or block
// window as needed.
func (p *probe) Record(tierPosition game.TierPosition) (db.Record, error) {
	if p.tier != tierPosition.Tier {
		if err := p.reloadHeader(tierPosition.Tier); err != nil {
			return 0, err
		}
	}
	if p.cacheMiss(tierPosition.Position) {
		if err := p.loadBlocks(tierPosition.Position); err != nil {
			return 0, err
		}
	}
	return p.loadRecord(tierPosition.Position)
}

// Value returns the value of tierPosition.
func (p *probe) Value(tierPosition game.TierPosition) (game.Value, error) {
	rec, err := p.Record(tierPosition)
	if err != nil {
		return game.Undecided, err
	}
	return rec.Value(), nil
}

// Remoteness returns the remoteness of tierPosition.
func (p *probe) Remoteness(tierPosition game.TierPosition) (int, error) {
	rec, err := p.Record(tierPosition)
	if err != nil {
		return 0, err
	}
	return rec.Remoteness(), nil
}

// Close releases the probe's buffers.
func (p *probe) Close() error {
	p.buffer = nil
	p.decomp = nil
	p.header = nil
	p.tier = game.IllegalTier
	p.begin = -1
	return nil
}

func (p *probe) reloadHeader(tier game.Tier) error {
	path := tierPath(p.dir, tier)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("bpdb: tier %d: %w", tier, db.ErrTierNotSolved)
		}
		return fmt.Errorf("bpdb: open %s: %w", path, err)
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		return err
	}

	decomp := make([]int32, header.DecompDictSize/4)
	if err := binary.Read(f, binary.LittleEndian, decomp); err != nil {
		return fmt.Errorf("bpdb: read decomp dict of %s: %w", path, err)
	}

	windowSize := blocksPerBuffer*header.BlockSize + 8
	if int64(cap(p.buffer)) < windowSize {
		p.buffer = make([]byte, windowSize)
	}
	p.buffer = p.buffer[:windowSize]

	p.header = header
	p.decomp = decomp
	p.tier = tier
	p.begin = -1 // force a block reload on the next Record
	return nil
}

// cacheMiss reports whether position's bit range lies outside the buffered
// window.
func (p *probe) cacheMiss(position game.Position) bool {
	if p.begin < 0 {
		return true
	}
	bits := int64(p.header.BitsPerEntry)
	entryBitBegin := int64(position) * bits
	entryBitEnd := entryBitBegin + bits

	windowBitBegin := p.begin * bitsPerByte
	windowBitEnd := windowBitBegin +
		blocksPerBuffer*p.header.BlockSize*bitsPerByte
	return entryBitBegin < windowBitBegin || entryBitEnd > windowBitEnd
}

// loadBlocks seeks the lookup table for the block owning position,
// positions the file at that block's compressed bytes and inflates up to
// blocksPerBuffer blocks into the window.
func (p *probe) loadBlocks(position game.Position) error {
	path := tierPath(p.dir, p.tier)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bpdb: open %s: %w", path, err)
	}
	defer f.Close()

	byteOff := int64(position) * int64(p.header.BitsPerEntry) / bitsPerByte
	blockOff := byteOff / p.header.BlockSize
	if blockOff >= p.header.NumBlocks {
		return fmt.Errorf("bpdb: position %d beyond %d blocks: %w",
			position, p.header.NumBlocks, db.ErrCorruptHeader)
	}

	// The lookup table sits between the dictionary and the blocks.
	lookupBase := int64(headerSize) + int64(p.header.DecompDictSize)
	if _, err := f.Seek(lookupBase+blockOff*8, io.SeekStart); err != nil {
		return fmt.Errorf("bpdb: seek lookup of %s: %w", path, err)
	}
	var compressedOff int64
	if err := binary.Read(f, binary.LittleEndian, &compressedOff); err != nil {
		return fmt.Errorf("bpdb: read lookup of %s: %w", path, err)
	}

	blocksBase := lookupBase + p.header.NumBlocks*8
	if _, err := f.Seek(blocksBase+compressedOff, io.SeekStart); err != nil {
		return fmt.Errorf("bpdb: seek block %d of %s: %w", blockOff, path, err)
	}

	// Inflate the window. Each block is its own gzip member and the
	// members are concatenated, so one multistream reader decodes the
	// look-ahead blocks in a single pass. The window is only short at
	// the end of the stream.
	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("bpdb: inflate block %d of %s: %w", blockOff, path, err)
	}
	window := p.buffer[:blocksPerBuffer*p.header.BlockSize]
	n, err := io.ReadFull(zr, window)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		zr.Close()
		return fmt.Errorf("bpdb: inflate block %d of %s: %w", blockOff, path, err)
	}
	zr.Close()
	for i := n; i < len(p.buffer); i++ {
		p.buffer[i] = 0
	}

	p.begin = blockOff * p.header.BlockSize
	return nil
}

// loadRecord extracts and decodes position's entry from the buffered
// window. The window's 8 pad bytes keep the segment read in bounds. The
// header validates against the dictionary and the entry width, but a
// corrupt block can still inflate to a code with no dictionary slot, so the
// code is range-checked before decoding.
func (p *probe) loadRecord(position game.Position) (db.Record, error) {
	bits := int(p.header.BitsPerEntry)
	bitOff := int64(position) * int64(bits)
	byteOff := bitOff/bitsPerByte - p.begin
	local := int(bitOff % bitsPerByte)

	segment := binary.LittleEndian.Uint64(p.buffer[byteOff : byteOff+8])
	code := (segment & entryMask(bits, local)) >> local
	if code >= uint64(len(p.decomp)) {
		return 0, fmt.Errorf("bpdb: tier %d position %d: code %d beyond %d dictionary entries: %w",
			p.tier, position, code, len(p.decomp), db.ErrCorruptHeader)
	}
	return db.Record(p.decomp[code]), nil
}
