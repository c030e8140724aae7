package bpdb

import (
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"
)

func TestBpDictZeroPreassigned(t *testing.T) {
	is := is.New(t)
	d := NewBpDict()
	is.Equal(d.NumUnique(), int32(1))
	is.Equal(d.Get(0), int32(0))
	is.Equal(d.Key(0), int32(0))
}

func TestBpDictFirstSeenCodes(t *testing.T) {
	is := is.New(t)
	d := NewBpDict()
	raws := []int32{42, 7, 9000, 7, 42, 1}
	is.NoErr(d.Set(raws[0]))
	is.NoErr(d.Set(raws[1]))
	is.NoErr(d.Set(raws[2]))
	is.NoErr(d.Set(raws[3])) // already present, no new code
	is.NoErr(d.Set(raws[4]))
	is.NoErr(d.Set(raws[5]))
	is.Equal(d.NumUnique(), int32(5))
	is.Equal(d.Get(42), int32(1))
	is.Equal(d.Get(7), int32(2))
	is.Equal(d.Get(9000), int32(3))
	is.Equal(d.Get(1), int32(4))
	is.Equal(d.Get(123), int32(-1)) // never inserted
	for code := int32(0); code < d.NumUnique(); code++ {
		is.Equal(d.Get(d.Key(code)), code)
	}
}

func TestBpDictDecomp(t *testing.T) {
	is := is.New(t)
	d := NewBpDict()
	is.NoErr(d.Set(100))
	is.NoErr(d.Set(50))
	is.NoErr(d.Set(200))
	is.Equal(d.Decomp(), []int32{0, 100, 50, 200})
}

func TestBpDictGrowth(t *testing.T) {
	is := is.New(t)
	d := NewBpDict()
	// Large keys force the comp table through several doublings.
	keys := make([]int32, 0, 64)
	for i := 0; i < 64; i++ {
		keys = append(keys, int32(frand.Intn(1<<20)))
	}
	want := make(map[int32]int32)
	for _, k := range keys {
		if _, ok := want[k]; !ok {
			want[k] = d.NumUnique()
		}
		is.NoErr(d.Set(k))
	}
	want[0] = 0
	for k, code := range want {
		is.Equal(d.Get(k), code)
		is.Equal(d.Key(code), k)
	}
}
