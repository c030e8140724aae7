package containers

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// Int64Map is an open-addressing hash map from int64 to int64 with linear
// probing. Capacities are prime so that probe sequences cover the whole
// table. There is no delete: the solver only ever builds these maps up and
// throws them away whole, which keeps the probe invariant trivial.
type Int64Map struct {
	entries       []int64mapEntry
	size          int64
	maxLoadFactor float64
}

type int64mapEntry struct {
	key   int64
	value int64
	used  bool
}

// NewInt64Map creates an empty map. maxLoadFactor is clamped to [0.25, 0.75].
func NewInt64Map(maxLoadFactor float64) *Int64Map {
	if maxLoadFactor < 0.25 {
		maxLoadFactor = 0.25
	}
	if maxLoadFactor > 0.75 {
		maxLoadFactor = 0.75
	}
	return &Int64Map{maxLoadFactor: maxLoadFactor}
}

func hashInt64(key int64, capacity int64) int64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return int64(xxhash.Sum64(buf[:]) % uint64(capacity))
}

// Get returns the value stored at key and whether the key is present.
func (m *Int64Map) Get(key int64) (int64, bool) {
	if len(m.entries) == 0 {
		return 0, false
	}
	capacity := int64(len(m.entries))
	index := hashInt64(key, capacity)
	for m.entries[index].used {
		if m.entries[index].key == key {
			return m.entries[index].value, true
		}
		index = (index + 1) % capacity
	}
	return 0, false
}

// Contains reports whether key is present.
func (m *Int64Map) Contains(key int64) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value at key, replacing any previous value.
func (m *Int64Map) Set(key, value int64) {
	if len(m.entries) == 0 ||
		float64(m.size+1)/float64(len(m.entries)) > m.maxLoadFactor {
		m.expand()
	}
	capacity := int64(len(m.entries))
	index := hashInt64(key, capacity)
	for m.entries[index].used {
		if m.entries[index].key == key {
			m.entries[index].value = value
			return
		}
		index = (index + 1) % capacity
	}
	m.entries[index] = int64mapEntry{key: key, value: value, used: true}
	m.size++
}

// Size returns the number of stored keys.
func (m *Int64Map) Size() int64 {
	return m.size
}

func (m *Int64Map) expand() {
	newCapacity := nextPrime(int64(len(m.entries)) * 2)
	newEntries := make([]int64mapEntry, newCapacity)
	for _, e := range m.entries {
		if !e.used {
			continue
		}
		index := hashInt64(e.key, newCapacity)
		for newEntries[index].used {
			index = (index + 1) % newCapacity
		}
		newEntries[index] = e
	}
	m.entries = newEntries
}

// nextPrime returns the smallest prime not less than n.
func nextPrime(n int64) int64 {
	if n < 2 {
		return 2
	}
	for !isPrime(n) {
		n++
	}
	return n
}

func isPrime(n int64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := int64(3); i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
