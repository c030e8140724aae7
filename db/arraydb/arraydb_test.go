package arraydb

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/gamescrafters/tiersolver/db"
	"github.com/gamescrafters/tiersolver/game"
)

func TestFlushAndProbeRoundTrip(t *testing.T) {
	is := is.New(t)
	d, err := New(t.TempDir())
	is.NoErr(err)

	const size = 5000
	is.NoErr(d.CreateSolvingTier(0, size))
	want := make([]db.Record, size)
	for i := int64(0); i < size; i++ {
		value := game.Value(1 + frand.Intn(4))
		remoteness := frand.Intn(300)
		d.SetValue(game.Position(i), value)
		d.SetRemoteness(game.Position(i), remoteness)
		want[i] = db.NewRecord(value, remoteness)
	}
	is.NoErr(d.FlushSolvingTier())
	d.FreeSolvingTier()

	p, err := d.NewProbe()
	is.NoErr(err)
	defer p.Close()
	for i := int64(0); i < size; i++ {
		rec, err := p.Record(game.TierPosition{Tier: 0, Position: game.Position(i)})
		is.NoErr(err)
		is.Equal(rec, want[i])
	}
	for k := 0; k < 500; k++ {
		i := int64(frand.Intn(size))
		v, err := p.Value(game.TierPosition{Tier: 0, Position: game.Position(i)})
		is.NoErr(err)
		is.Equal(v, want[i].Value())
	}
}

func TestProbeUnsolvedTier(t *testing.T) {
	is := is.New(t)
	d, err := New(t.TempDir())
	is.NoErr(err)
	p, err := d.NewProbe()
	is.NoErr(err)
	defer p.Close()
	_, err = p.Record(game.TierPosition{Tier: 42, Position: 0})
	is.True(errors.Is(err, db.ErrTierNotSolved))
}

func TestProbePositionOutOfRange(t *testing.T) {
	is := is.New(t)
	d, err := New(t.TempDir())
	is.NoErr(err)
	is.NoErr(d.CreateSolvingTier(0, 10))
	is.NoErr(d.FlushSolvingTier())
	d.FreeSolvingTier()

	p, err := d.NewProbe()
	is.NoErr(err)
	defer p.Close()
	_, err = p.Record(game.TierPosition{Tier: 0, Position: 10})
	is.True(err != nil)
}

func TestTierStatus(t *testing.T) {
	is := is.New(t)
	d, err := New(t.TempDir())
	is.NoErr(err)
	is.Equal(d.TierStatus(1), db.TierStatusUnsolved)
	is.NoErr(d.CreateSolvingTier(1, 5))
	is.NoErr(d.FlushSolvingTier())
	is.Equal(d.TierStatus(1), db.TierStatusSolved)
}
