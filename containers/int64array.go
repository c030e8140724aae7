// Package containers provides the dynamic integer containers used throughout
// the solver: a growable int64 array and two int64-keyed hash maps, one
// open-addressing and one chained-bucket.
package containers

// Int64Array is a growable array of int64 values. The zero value is an empty
// array ready for use.
type Int64Array struct {
	elems []int64
}

// PushBack appends item to the array.
func (a *Int64Array) PushBack(item int64) {
	a.elems = append(a.elems, item)
}

// PopBack removes the last element. Panics if the array is empty.
func (a *Int64Array) PopBack() {
	a.elems = a.elems[:len(a.elems)-1]
}

// Back returns the last element. Panics if the array is empty.
func (a *Int64Array) Back() int64 {
	return a.elems[len(a.elems)-1]
}

// Get returns the i-th element.
func (a *Int64Array) Get(i int64) int64 {
	return a.elems[i]
}

// Size returns the number of elements.
func (a *Int64Array) Size() int64 {
	return int64(len(a.elems))
}

// Empty reports whether the array holds no elements.
func (a *Int64Array) Empty() bool {
	return len(a.elems) == 0
}

// Contains reports whether item appears in the array. Linear scan.
func (a *Int64Array) Contains(item int64) bool {
	for _, e := range a.elems {
		if e == item {
			return true
		}
	}
	return false
}

// Slice returns the backing slice. The caller must not append to it.
func (a *Int64Array) Slice() []int64 {
	return a.elems
}

// Reset empties the array, keeping the allocated capacity.
func (a *Int64Array) Reset() {
	a.elems = a.elems[:0]
}
