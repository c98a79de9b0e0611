package repositories

import "sync"

// aggregateLocks serializes read-modify-write cycles per aggregate id
// so concurrent mutations of one room (or one user) never interleave,
// while unrelated aggregates proceed independently. Entries are never
// reclaimed; the id space is bounded by the number of aggregates.
type aggregateLocks struct {
	locks sync.Map // id -> *sync.Mutex
}

func (a *aggregateLocks) lock(id string) *sync.Mutex {
	mu, _ := a.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m
}
