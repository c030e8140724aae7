package db

import (
	"sync/atomic"

	"github.com/gamescrafters/tiersolver/game"
)

// A RecordArray is the solving-time store of one tier's records: one Record
// per position, updated lock-free by the solver's worker goroutines. Each
// cell is a 32-bit atomic holding a Record in its low 16 bits. Only
// atomicity of the single record update is required, never ordering against
// unrelated memory, so plain atomic loads and compare-and-swap suffice.
type RecordArray struct {
	cells []atomic.Uint32
}

// NewRecordArray creates an array of size undecided records.
func NewRecordArray(size int64) *RecordArray {
	return &RecordArray{cells: make([]atomic.Uint32, size)}
}

// Size returns the number of records.
func (a *RecordArray) Size() int64 {
	return int64(len(a.cells))
}

// Load returns the record at position.
func (a *RecordArray) Load(position game.Position) Record {
	return Record(a.cells[position].Load())
}

// Store unconditionally replaces the record at position.
func (a *RecordArray) Store(position game.Position, rec Record) {
	a.cells[position].Store(uint32(rec))
}

// SetValue replaces the value at position, keeping the remoteness. Retries
// on contention so that a concurrent SetRemoteness is never lost.
func (a *RecordArray) SetValue(position game.Position, value game.Value) {
	cell := &a.cells[position]
	for {
		old := cell.Load()
		want := uint32(Record(old).WithValue(value))
		if cell.CompareAndSwap(old, want) {
			return
		}
	}
}

// SetRemoteness replaces the remoteness at position, keeping the value.
func (a *RecordArray) SetRemoteness(position game.Position, remoteness int) {
	cell := &a.cells[position]
	for {
		old := cell.Load()
		want := uint32(Record(old).WithRemoteness(remoteness))
		if cell.CompareAndSwap(old, want) {
			return
		}
	}
}

// OutcomeCompare orders two (value, remoteness) pairs by desirability for
// the player to move: negative if the first is worse, positive if better,
// zero if identical. Values order Undecided < Lose < Draw < Tie < Win;
// between equal values a losing player prefers larger remoteness while a
// winning or tying player prefers smaller.
func OutcomeCompare(v1 game.Value, r1 int, v2 game.Value, r2 int) int {
	if v1 != v2 {
		return int(v1) - int(v2)
	}
	if v1 == game.Lose {
		return r1 - r2
	}
	return r2 - r1
}

// MaximizeOutcome replaces the record at position if (value, remoteness) is
// a better outcome than the current record per OutcomeCompare. Reports
// whether the record changed. Safe for concurrent use; racing goroutines
// settle on the best of all candidate outcomes.
func (a *RecordArray) MaximizeOutcome(position game.Position, value game.Value, remoteness int) bool {
	cell := &a.cells[position]
	for {
		old := Record(cell.Load())
		if OutcomeCompare(value, remoteness, old.Value(), old.Remoteness()) <= 0 {
			return false
		}
		if cell.CompareAndSwap(uint32(old), uint32(NewRecord(value, remoteness))) {
			return true
		}
	}
}
