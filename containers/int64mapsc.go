package containers

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// Int64MapSC is a separate-chaining hash map from int64 to int64. Unlike
// Int64Map it supports Remove, at the cost of one allocation per entry.
type Int64MapSC struct {
	buckets       []*int64mapSCEntry
	size          int64
	maxLoadFactor float64
}

type int64mapSCEntry struct {
	key   int64
	value int64
	next  *int64mapSCEntry
}

// NewInt64MapSC creates an empty map. maxLoadFactor must be positive; chains
// keep working past it, it only controls when the bucket array doubles.
func NewInt64MapSC(maxLoadFactor float64) *Int64MapSC {
	if maxLoadFactor <= 0 {
		maxLoadFactor = 1.0
	}
	return &Int64MapSC{maxLoadFactor: maxLoadFactor}
}

func (m *Int64MapSC) bucketOf(key int64, numBuckets int64) int64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return int64(xxhash.Sum64(buf[:]) % uint64(numBuckets))
}

// Get returns the value stored at key and whether the key is present.
func (m *Int64MapSC) Get(key int64) (int64, bool) {
	if len(m.buckets) == 0 {
		return 0, false
	}
	b := m.bucketOf(key, int64(len(m.buckets)))
	for e := m.buckets[b]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return 0, false
}

// Contains reports whether key is present.
func (m *Int64MapSC) Contains(key int64) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value at key, replacing any previous value.
func (m *Int64MapSC) Set(key, value int64) {
	if len(m.buckets) == 0 ||
		float64(m.size+1)/float64(len(m.buckets)) > m.maxLoadFactor {
		m.expand()
	}
	b := m.bucketOf(key, int64(len(m.buckets)))
	for e := m.buckets[b]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return
		}
	}
	m.buckets[b] = &int64mapSCEntry{key: key, value: value, next: m.buckets[b]}
	m.size++
}

// Remove deletes key from the map if present and reports whether it was.
func (m *Int64MapSC) Remove(key int64) bool {
	if len(m.buckets) == 0 {
		return false
	}
	b := m.bucketOf(key, int64(len(m.buckets)))
	for p := &m.buckets[b]; *p != nil; p = &(*p).next {
		if (*p).key == key {
			*p = (*p).next
			m.size--
			return true
		}
	}
	return false
}

// Size returns the number of stored keys.
func (m *Int64MapSC) Size() int64 {
	return m.size
}

func (m *Int64MapSC) expand() {
	newNumBuckets := nextPrime(int64(len(m.buckets)) * 2)
	newBuckets := make([]*int64mapSCEntry, newNumBuckets)
	for _, head := range m.buckets {
		for e := head; e != nil; {
			next := e.next
			b := m.bucketOf(e.key, newNumBuckets)
			e.next = newBuckets[b]
			newBuckets[b] = e
			e = next
		}
	}
	m.buckets = newBuckets
}
