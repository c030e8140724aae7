package frontier

import (
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/gamescrafters/tiersolver/game"
)

func TestAddAndBucketOrder(t *testing.T) {
	is := is.New(t)
	f := New(4, 3)

	positions := []game.Position{7, 3, 11, 5}
	for _, p := range positions {
		is.True(f.Add(p, 2, 0))
	}
	is.Equal(f.BucketSize(2), int64(4))
	for i, want := range positions {
		is.Equal(f.Position(2, int64(i)), want)
	}
	is.Equal(f.BucketSize(0), int64(0))
	is.Equal(f.BucketSize(3), int64(0))
}

func TestAddRemotenessTooLarge(t *testing.T) {
	is := is.New(t)
	f := New(4, 1)
	is.True(!f.Add(0, 4, 0))
	is.True(!f.Add(0, 100, 0))
	is.Equal(f.BucketSize(3), int64(0))
}

func TestAccumulateDividers(t *testing.T) {
	f := New(3, 4)

	// counts per (remoteness, childTierIndex), verified against a direct
	// simulation of the exclusive-to-inclusive running sum below.
	counts := [3][4]int64{
		{2, 0, 3, 1},
		{0, 0, 0, 0},
		{5, 1, 0, 2},
	}
	var pos game.Position
	for r := 0; r < 3; r++ {
		for k := 0; k < 4; k++ {
			for n := int64(0); n < counts[r][k]; n++ {
				if !f.Add(pos, r, k) {
					t.Fatal("Add failed")
				}
				pos++
			}
		}
	}
	f.AccumulateDividers()

	for r := 0; r < 3; r++ {
		var running int64
		for k := 0; k < 4; k++ {
			running += counts[r][k]
			assert.Equal(t, running, f.Divider(r, k), "remoteness %d index %d", r, k)
		}
		assert.Equal(t, f.BucketSize(r), f.Divider(r, 3))
	}
}

func TestConcurrentAdds(t *testing.T) {
	is := is.New(t)
	const workers = 8
	const perWorker = 5000
	f := New(2, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Everyone hammers the same bucket.
				if !f.Add(game.Position(w*perWorker+i), 1, w) {
					t.Error("Add failed")
					return
				}
			}
		}(w)
	}
	wg.Wait()

	is.Equal(f.BucketSize(1), int64(workers*perWorker))

	// Every added position must be present exactly once.
	seen := make(map[game.Position]bool, workers*perWorker)
	for i := int64(0); i < f.BucketSize(1); i++ {
		p := f.Position(1, i)
		is.True(!seen[p])
		seen[p] = true
	}

	f.AccumulateDividers()
	is.Equal(f.Divider(1, workers-1), int64(workers*perWorker))
}

func TestFreeRemoteness(t *testing.T) {
	is := is.New(t)
	f := New(3, 1)
	is.True(f.Add(1, 0, 0))
	is.True(f.Add(2, 1, 0))

	f.FreeRemoteness(0)
	is.Equal(f.BucketSize(0), int64(0))
	is.Equal(f.BucketSize(1), int64(1))
}
