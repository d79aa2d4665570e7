package application

import "sync"

// gameLocks serializes roster mutations per game. Locks are created on first
// use and held only for the check-and-commit of a single operation, so
// operations on different games never block one another.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*gameLock)}
}

// acquire blocks until the per-game lock is held and returns the release
// function. Entries are reference counted so the registry does not grow with
// the number of games ever touched.
func (g *gameLocks) acquire(gameID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[gameID]
	if !ok {
		lock = &gameLock{}
		g.locks[gameID] = lock
	}
	lock.refs++
	g.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		g.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(g.locks, gameID)
		}
		g.mu.Unlock()
	}
}
