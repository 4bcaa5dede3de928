package transcript

import "sync"

// syncGuard tracks the students being synced in this process.
type syncGuard struct {
	mu         sync.Mutex
	inProgress map[string]struct{}
}

func newSyncGuard() *syncGuard {
	return &syncGuard{inProgress: make(map[string]struct{})}
}

// acquire marks studentID as syncing. It returns false if it already is.
func (g *syncGuard) acquire(studentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inProgress[studentID]; ok {
		return false
	}
	g.inProgress[studentID] = struct{}{}
	return true
}

func (g *syncGuard) release(studentID string) {
	g.mu.Lock()
	delete(g.inProgress, studentID)
	g.mu.Unlock()
}
