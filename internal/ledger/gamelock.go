package ledger

import (
	"context"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// gameLocks serializes capacity-affecting operations per game. Operations on
// different games never block each other. Entries are reference counted so
// the map does not grow with every game ever touched.
type gameLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{entries: make(map[string]*lockEntry)}
}

// Acquire takes the per-game lock, waiting at most timeout. It returns a
// release func on success, ErrBusy when the bound elapses, or the context
// error if ctx is done first.
func (l *gameLocks) Acquire(ctx context.Context, gameID string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[gameID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[gameID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.drop(gameID, entry)
		}, nil
	case <-timer.C:
		l.drop(gameID, entry)
		return nil, ErrBusy
	case <-ctx.Done():
		l.drop(gameID, entry)
		return nil, ctx.Err()
	}
}

func (l *gameLocks) drop(gameID string, entry *lockEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, gameID)
	}
	l.mu.Unlock()
}
