package service

import "sync"

// campLocks serialises mutating runs per camp without blocking callers.
type campLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newCampLocks() *campLocks {
	return &campLocks{held: make(map[string]struct{})}
}

// TryLock claims the camp and returns the release func, or false when another run holds it.
func (l *campLocks) TryLock(campID string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[campID]; busy {
		return nil, false
	}
	l.held[campID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, campID)
		l.mu.Unlock()
	}, true
}
