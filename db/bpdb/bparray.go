package bpdb

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

const (
	bitsPerByte         = 8
	defaultBitsPerEntry = 1

	// maxBitsPerEntry is 31 because the dictionaries are int32 arrays,
	// and because an entry of at most 32 bits always fits inside one
	// 8-byte segment starting at the entry's byte offset. Longer entries
	// could straddle two segments and would not be readable with a
	// single uint64 load.
	maxBitsPerEntry = 31

	// entriesPerChunk is the parallel re-encoding granularity. Eight
	// entries of any common width span a whole number of bytes, so
	// chunks never write a byte another chunk is writing.
	entriesPerChunk = 8
)

// A BpArray is a bit-packed array of fixed-width codes plus the dictionary
// that maps codes back to raw entry values. The width starts at one bit and
// grows by one whenever a newly inserted value's code no longer fits,
// re-packing the whole stream. Widening is amortized like a growable
// array's doubling: most tiers have few distinct record values, so
// expansions are rare relative to Sets.
type BpArray struct {
	// stream is over-allocated by 8 bytes past the packed payload so
	// that reading an 8-byte segment at any entry's byte offset stays in
	// bounds. streamLength maintains the invariant.
	stream       []byte
	numEntries   int64
	bitsPerEntry int
	dict         *BpDict
}

// streamLength returns the byte length of a packed stream of numEntries
// entries at bitsPerEntry bits each, including the 8 trailing pad bytes.
func streamLength(numEntries int64, bitsPerEntry int) int64 {
	payload := (numEntries*int64(bitsPerEntry) + bitsPerByte - 1) / bitsPerByte
	return payload + 8
}

// NewBpArray creates an all-zero (all-undecided) array of size entries.
func NewBpArray(size int64) *BpArray {
	return &BpArray{
		stream:       make([]byte, streamLength(size, defaultBitsPerEntry)),
		numEntries:   size,
		bitsPerEntry: defaultBitsPerEntry,
		dict:         NewBpDict(),
	}
}

// NumEntries returns the number of entries.
func (a *BpArray) NumEntries() int64 {
	return a.numEntries
}

// BitsPerEntry returns the current fixed code width.
func (a *BpArray) BitsPerEntry() int {
	return a.bitsPerEntry
}

// Dict returns the array's compression dictionary.
func (a *BpArray) Dict() *BpDict {
	return a.dict
}

// Stream returns the packed byte stream, including the 8 pad bytes.
func (a *BpArray) Stream() []byte {
	return a.stream
}

func byteOffset(i int64, bitsPerEntry int) int64 {
	return i * int64(bitsPerEntry) / bitsPerByte
}

func localBitOffset(i int64, bitsPerEntry int) int {
	return int(i * int64(bitsPerEntry) % bitsPerByte)
}

func entryMask(bitsPerEntry, localBitOffset int) uint64 {
	return ((uint64(1) << bitsPerEntry) - 1) << localBitOffset
}

// segment returns the 8 bytes starting at entry i's byte offset. The pad
// bytes guarantee the read is in bounds for every valid i.
func (a *BpArray) segment(i int64) uint64 {
	off := byteOffset(i, a.bitsPerEntry)
	return binary.LittleEndian.Uint64(a.stream[off : off+8])
}

func (a *BpArray) setSegment(i int64, segment uint64) {
	off := byteOffset(i, a.bitsPerEntry)
	binary.LittleEndian.PutUint64(a.stream[off:off+8], segment)
}

// Get returns the raw value of entry i.
func (a *BpArray) Get(i int64) int32 {
	local := localBitOffset(i, a.bitsPerEntry)
	code := (a.segment(i) & entryMask(a.bitsPerEntry, local)) >> local
	return a.dict.Key(int32(code))
}

// Set stores raw as entry i, assigning a new code if raw was never seen and
// widening the array if that code does not fit the current width. Not safe
// for concurrent use: parallel encoding goes through EncodeAll.
func (a *BpArray) Set(i int64, raw int32) error {
	code := a.dict.Get(raw)
	if code < 0 {
		if err := a.dict.Set(raw); err != nil {
			return err
		}
		code = a.dict.Get(raw)
	}
	for int64(code) >= int64(1)<<a.bitsPerEntry {
		if err := a.expand(); err != nil {
			return err
		}
	}
	a.setCode(i, code)
	return nil
}

// setCode writes an already-assigned, already-fitting code at entry i.
func (a *BpArray) setCode(i int64, code int32) {
	packCode(a.stream, a.bitsPerEntry, i, uint64(code))
}

// packCode writes code as entry i of a stream packed at bits per entry. It
// reads and writes only the bytes the entry's bits occupy, so goroutines
// packing byte-aligned disjoint entry ranges never touch a shared byte. A
// full 8-byte load here would reach into a neighboring range and race with
// its writer.
func packCode(dest []byte, bits int, i int64, code uint64) {
	local := localBitOffset(i, bits)
	off := byteOffset(i, bits)
	lastByte := ((i+1)*int64(bits) - 1) / bitsPerByte
	n := lastByte - off + 1

	var buf [8]byte
	copy(buf[:n], dest[off:off+n])
	segment := binary.LittleEndian.Uint64(buf[:])
	segment &^= entryMask(bits, local)
	segment |= code << local
	binary.LittleEndian.PutUint64(buf[:], segment)
	copy(dest[off:off+n], buf[:n])
}

// expand widens every entry by one bit, re-packing the whole stream. Since
// the old and new widths differ, entries move bit by bit; there is no bulk
// byte copy. Chunks of eight entries are byte-aligned in both the old and
// the new stream, so chunks re-pack in parallel.
func (a *BpArray) expand() error {
	newBits := a.bitsPerEntry + 1
	if newBits > maxBitsPerEntry {
		return fmt.Errorf("bparray: entries wider than %d bits: %w",
			maxBitsPerEntry, db.ErrCapacityExceeded)
	}

	newStream := make([]byte, streamLength(a.numEntries, newBits))
	numChunks := a.numEntries / entriesPerChunk

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	const chunksPerTask = 1 << 12
	for start := int64(0); start < numChunks; start += chunksPerTask {
		end := start + chunksPerTask
		if end > numChunks {
			end = numChunks
		}
		first, last := start*entriesPerChunk, end*entriesPerChunk
		g.Go(func() error {
			for i := first; i < last; i++ {
				a.repackEntry(newStream, newBits, i)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := numChunks * entriesPerChunk; i < a.numEntries; i++ {
		a.repackEntry(newStream, newBits, i)
	}

	a.stream = newStream
	a.bitsPerEntry = newBits
	return nil
}

// repackEntry copies entry i from the current stream into dest at the wider
// width.
func (a *BpArray) repackEntry(dest []byte, newBits int, i int64) {
	local := localBitOffset(i, a.bitsPerEntry)
	code := (a.segment(i) & entryMask(a.bitsPerEntry, local)) >> local
	packCode(dest, newBits, i, code)
}

// EncodeAll packs one record per position of records into a new BpArray. A
// sequential first-seen pass assigns the dictionary codes and fixes the
// final width up front, then disjoint byte-aligned entry ranges are encoded
// in parallel.
func EncodeAll(records *db.RecordArray) (*BpArray, error) {
	size := records.Size()
	a := &BpArray{numEntries: size, dict: NewBpDict()}

	for i := int64(0); i < size; i++ {
		raw := int32(records.Load(game.Position(i)))
		if a.dict.Get(raw) < 0 {
			if err := a.dict.Set(raw); err != nil {
				return nil, err
			}
		}
	}

	a.bitsPerEntry = codeWidth(a.dict.NumUnique())
	if a.bitsPerEntry > maxBitsPerEntry {
		return nil, fmt.Errorf("bparray: %d unique records: %w",
			a.dict.NumUnique(), db.ErrCapacityExceeded)
	}
	a.stream = make([]byte, streamLength(size, a.bitsPerEntry))

	numChunks := size / entriesPerChunk
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	const chunksPerTask = 1 << 12
	for start := int64(0); start < numChunks; start += chunksPerTask {
		end := start + chunksPerTask
		if end > numChunks {
			end = numChunks
		}
		first, last := start*entriesPerChunk, end*entriesPerChunk
		g.Go(func() error {
			for i := first; i < last; i++ {
				raw := int32(records.Load(game.Position(i)))
				packCode(a.stream, a.bitsPerEntry, i, uint64(a.dict.Get(raw)))
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := numChunks * entriesPerChunk; i < size; i++ {
		raw := int32(records.Load(game.Position(i)))
		packCode(a.stream, a.bitsPerEntry, i, uint64(a.dict.Get(raw)))
	}

	return a, nil
}

// codeWidth returns the number of bits needed to store any code in
// [0, numUnique), at least one.
func codeWidth(numUnique int32) int {
	width := 1
	for int64(numUnique) > int64(1)<<width {
		width++
	}
	return width
}
