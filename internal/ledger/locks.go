// ABOUTME: Per-entity write locks so each merge-and-write is atomic per id
// ABOUTME: Entries are reference counted and dropped when no writer holds them

package ledger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

type lockKey struct {
	kind store.Kind
	id   uuid.UUID
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedLocks hands out one mutex per (kind, id).
type keyedLocks struct {
	mu      sync.Mutex
	entries map[lockKey]*lockEntry
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[lockKey]*lockEntry)}
}

// lock blocks until the (kind, id) lock is held and returns its release func.
func (k *keyedLocks) lock(kind store.Kind, id uuid.UUID) func() {
	key := lockKey{kind, id}

	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of live entries.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
