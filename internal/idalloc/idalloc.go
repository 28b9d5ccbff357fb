// Package idalloc implements a dense, low-water identifier pool used to
// hand out OpenFlow group and meter IDs. No library in the surrounding
// stack models a bounded, reusable integer pool; the allocator is small
// enough that pulling in a dependency for it would cost more than it buys.
package idalloc

// An Allocator claims and releases small non-negative integer identifiers,
// always preferring the lowest free value. The zero value is ready to use.
type Allocator struct {
	free map[uint32]struct{}
	next uint32
}

// New returns an Allocator with every non-negative integer initially free.
func New() *Allocator {
	a := &Allocator{
		free: make(map[uint32]struct{}),
	}
	a.free[0] = struct{}{}
	a.next = 1
	return a
}

// Claim removes and returns the lowest free identifier, expanding the pool
// if none remain.
func (a *Allocator) Claim() uint32 {
	if a.free == nil {
		a.free = make(map[uint32]struct{})
		a.free[0] = struct{}{}
		a.next = 1
	}

	id := a.lowestFree()
	delete(a.free, id)

	if len(a.free) == 0 {
		a.free[a.next] = struct{}{}
		a.next++
	}

	return id
}

// Release returns id to the pool, making it available for a future Claim.
func (a *Allocator) Release(id uint32) {
	if a.free == nil {
		a.free = make(map[uint32]struct{})
	}
	a.free[id] = struct{}{}
}

// lowestFree scans the free set for its minimum member. The set is kept
// small in practice (bounded by concurrently-unallocated IDs), so a linear
// scan is cheaper than maintaining a heap for this workload.
func (a *Allocator) lowestFree() uint32 {
	var (
		min   uint32
		found bool
	)

	for id := range a.free {
		if !found || id < min {
			min = id
			found = true
		}
	}

	return min
}
