package db

import "github.com/gamescrafters/tiersolver/game"

// A Record packs a position's value and remoteness into one small integer:
// remoteness*game.NumValues + value. The zero Record is the undecided record.
// The largest record, game.RemotenessMax*game.NumValues + game.Win, is 5124
// and fits comfortably in 16 bits.
type Record uint16

// NewRecord packs value and remoteness.
func NewRecord(value game.Value, remoteness int) Record {
	return Record(remoteness*game.NumValues + int(value))
}

// Value returns the packed value.
func (r Record) Value() game.Value {
	return game.Value(r % game.NumValues)
}

// Remoteness returns the packed remoteness.
func (r Record) Remoteness() int {
	return int(r / game.NumValues)
}

// WithValue returns a copy of r with the value replaced.
func (r Record) WithValue(value game.Value) Record {
	return NewRecord(value, r.Remoteness())
}

// WithRemoteness returns a copy of r with the remoteness replaced.
func (r Record) WithRemoteness(remoteness int) Record {
	return NewRecord(r.Value(), remoteness)
}
