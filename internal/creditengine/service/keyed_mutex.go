package service

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// keyedMutex serializes balance mutations per farmer. It backs up the row
// lock for stores that do not honor SELECT FOR UPDATE.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[snowflake.ID]*lockEntry)}
}

// Lock blocks until the farmer's critical section is free and returns the
// matching unlock.
func (k *keyedMutex) Lock(farmerID snowflake.ID) func() {
	k.mu.Lock()
	entry, ok := k.locks[farmerID]
	if !ok {
		entry = &lockEntry{}
		k.locks[farmerID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, farmerID)
		}
		k.mu.Unlock()
	}
}
