package usecase

import "sync"

// MatchmakingQueue is a FIFO of session identities waiting for an opponent.
type MatchmakingQueue struct {
	mu      sync.Mutex
	waiting []string
	queued  map[string]struct{}
}

func NewMatchmakingQueue() *MatchmakingQueue {
	return &MatchmakingQueue{
		queued: make(map[string]struct{}),
	}
}

// Enqueue appends id and reports whether it was added. An id already waiting is left in place.
func (that *MatchmakingQueue) Enqueue(id string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.queued[id]; ok {
		return false
	}

	that.waiting = append(that.waiting, id)
	that.queued[id] = struct{}{}

	return true
}

// DequeuePair removes the two oldest entries, only when at least two are waiting.
func (that *MatchmakingQueue) DequeuePair() (string, string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.waiting) < 2 {
		return "", "", false
	}

	first, second := that.waiting[0], that.waiting[1]
	that.waiting = that.waiting[2:]
	delete(that.queued, first)
	delete(that.queued, second)

	return first, second, true
}

func (that *MatchmakingQueue) Remove(id string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.queued[id]; !ok {
		return false
	}

	delete(that.queued, id)
	for i, waiting := range that.waiting {
		if waiting == id {
			that.waiting = append(that.waiting[:i], that.waiting[i+1:]...)
			break
		}
	}

	return true
}

func (that *MatchmakingQueue) Contains(id string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.queued[id]

	return ok
}

func (that *MatchmakingQueue) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.waiting)
}
