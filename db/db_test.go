package db

import (
	"sync"
	"testing"

	"github.com/matryer/is"

	"github.com/gamescrafters/tiersolver/game"
)

func TestRecordPacking(t *testing.T) {
	is := is.New(t)
	values := []game.Value{game.Undecided, game.Lose, game.Draw, game.Tie, game.Win}
	for _, v := range values {
		for _, rem := range []int{0, 1, 17, game.RemotenessMax} {
			r := NewRecord(v, rem)
			is.Equal(r.Value(), v)
			is.Equal(r.Remoteness(), rem)
		}
	}
	is.Equal(NewRecord(game.Undecided, 0), Record(0))
}

func TestRecordWith(t *testing.T) {
	is := is.New(t)
	r := NewRecord(game.Win, 12)
	is.Equal(r.WithValue(game.Lose).Value(), game.Lose)
	is.Equal(r.WithValue(game.Lose).Remoteness(), 12)
	is.Equal(r.WithRemoteness(3).Remoteness(), 3)
	is.Equal(r.WithRemoteness(3).Value(), game.Win)
}

func TestRecordArraySetValueKeepsRemoteness(t *testing.T) {
	is := is.New(t)
	a := NewRecordArray(4)
	a.SetRemoteness(2, 9)
	a.SetValue(2, game.Tie)
	is.Equal(a.Load(2).Value(), game.Tie)
	is.Equal(a.Load(2).Remoteness(), 9)
	is.Equal(a.Load(0), Record(0))
}

func TestRecordArrayConcurrentDisjointWrites(t *testing.T) {
	is := is.New(t)
	const n = 4096
	a := NewRecordArray(n)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for p := int64(w); p < n; p += 8 {
				a.SetValue(game.Position(p), game.Win)
				a.SetRemoteness(game.Position(p), int(p)%game.NumRemotenesses)
			}
		}(w)
	}
	wg.Wait()

	for p := int64(0); p < n; p++ {
		is.Equal(a.Load(game.Position(p)).Value(), game.Win)
		is.Equal(a.Load(game.Position(p)).Remoteness(), int(p)%game.NumRemotenesses)
	}
}

func TestRecordArrayMaximizeOutcome(t *testing.T) {
	is := is.New(t)
	a := NewRecordArray(1)
	is.True(a.MaximizeOutcome(0, game.Lose, 4))
	is.True(!a.MaximizeOutcome(0, game.Lose, 2)) // losing slower is better
	is.True(a.MaximizeOutcome(0, game.Lose, 9))
	is.True(a.MaximizeOutcome(0, game.Tie, 3))
	is.True(a.MaximizeOutcome(0, game.Tie, 1)) // tying faster is better
	is.True(a.MaximizeOutcome(0, game.Win, 5))
	is.True(!a.MaximizeOutcome(0, game.Win, 7)) // winning slower is worse
	is.True(a.MaximizeOutcome(0, game.Win, 2))
	is.Equal(a.Load(0), NewRecord(game.Win, 2))
}

func TestFinishFlag(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	exists, err := FinishFlagExists(dir)
	is.NoErr(err)
	is.True(!exists)

	is.NoErr(WriteFinishFlag(dir))
	exists, err = FinishFlagExists(dir)
	is.NoErr(err)
	is.True(exists)

	is.NoErr(RemoveFinishFlag(dir))
	exists, err = FinishFlagExists(dir)
	is.NoErr(err)
	is.True(!exists)
	is.NoErr(RemoveFinishFlag(dir))
}
