package bpdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

// minBlockSize is the floor for the uncompressed block size. The actual
// block size is rounded up so that every block holds a whole number of
// entries; see blockSizeFor.
const minBlockSize = 1 << 14

// fileHeader is the fixed-layout header at offset 0 of every tier file,
// little-endian, followed immediately by the decompression dictionary, the
// block offset lookup table, and the concatenated compressed blocks. Built
// once at flush time and immutable thereafter.
type fileHeader struct {
	DecompDictSize int32 // bytes of decompression dictionary
	BitsPerEntry   int32
	BlockSize      int64 // uncompressed bytes per block
	NumBlocks      int64
	StreamLength   int64 // packed stream bytes, including the 8 pad bytes
	NumEntries     int64
}

// headerSize is the on-disk size of fileHeader: all fields are fixed-width.
const headerSize = 4 + 4 + 8 + 8 + 8 + 8

func (h *fileHeader) write(w *bufio.Writer) error {
	return binary.Write(w, binary.LittleEndian, h)
}

func readHeader(f *os.File) (*fileHeader, error) {
	var h fileHeader
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("bpdb: read header: %w", err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// validate bounds-checks the header before any field is used to size a read
// or a buffer, so corruption surfaces here rather than as a bad slice index.
func (h *fileHeader) validate() error {
	switch {
	case h.BitsPerEntry < 1 || h.BitsPerEntry > maxBitsPerEntry:
		return fmt.Errorf("bpdb: bits per entry %d: %w", h.BitsPerEntry,
			db.ErrCorruptHeader)
	case h.DecompDictSize < 4 || h.DecompDictSize%4 != 0:
		return fmt.Errorf("bpdb: decomp dict size %d: %w", h.DecompDictSize,
			db.ErrCorruptHeader)
	case h.BlockSize < 1:
		return fmt.Errorf("bpdb: block size %d: %w", h.BlockSize,
			db.ErrCorruptHeader)
	case h.NumEntries < 0 || h.NumBlocks < 0:
		return fmt.Errorf("bpdb: negative counts: %w", db.ErrCorruptHeader)
	case h.StreamLength != streamLength(h.NumEntries, int(h.BitsPerEntry)):
		return fmt.Errorf("bpdb: stream length %d inconsistent: %w",
			h.StreamLength, db.ErrCorruptHeader)
	}
	return nil
}

// blockSizeFor returns the uncompressed block size for the given entry
// width: the smallest multiple of 8*bitsPerEntry bytes that is at least
// minBlockSize. A block of that size holds a whole number of entries, so a
// sequential reader never needs two blocks for one entry.
func blockSizeFor(bitsPerEntry int) int64 {
	entryAlign := int64(8 * bitsPerEntry)
	return (minBlockSize + entryAlign - 1) / entryAlign * entryAlign
}

// tierPath returns the database file path for tier under dir.
func tierPath(dir string, tier game.Tier) string {
	return filepath.Join(dir, fmt.Sprintf("%d.bpdb", tier))
}

// flushToFile compresses the packed stream of arr block by block and writes
// the tier file: header, decompression dictionary, lookup table, blocks, in
// that order with nothing in between.
func flushToFile(path string, arr *BpArray) error {
	blockSize := blockSizeFor(arr.BitsPerEntry())
	res, err := deflateBlocks(arr.Stream(), blockSize)
	if err != nil {
		return fmt.Errorf("bpdb: compress %s: %w", path, err)
	}

	decomp := arr.Dict().Decomp()
	header := fileHeader{
		DecompDictSize: int32(len(decomp) * 4),
		BitsPerEntry:   int32(arr.BitsPerEntry()),
		BlockSize:      blockSize,
		NumBlocks:      int64(len(res.lookup)),
		StreamLength:   int64(len(arr.Stream())),
		NumEntries:     arr.NumEntries(),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bpdb: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	err = header.write(w)
	if err == nil {
		err = binary.Write(w, binary.LittleEndian, decomp)
	}
	if err == nil {
		err = binary.Write(w, binary.LittleEndian, res.lookup)
	}
	if err == nil {
		_, err = w.Write(res.out)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("bpdb: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("bpdb: close %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int64("entries", header.NumEntries).
		Int32("bits-per-entry", header.BitsPerEntry).
		Int64("blocks", header.NumBlocks).
		Int("compressed-bytes", len(res.out)).
		Msg("flushed tier file")
	return nil
}
