// ABOUTME: Bounded TTL set of Matrix event IDs already handled
// ABOUTME: Guards against sync redelivery running a console command twice

package matrixbot

import (
	"container/list"
	"sync"
	"time"
)

type seenEntry struct {
	at   time.Time
	elem *list.Element
}

// seenEvents remembers event IDs for ttl, holding at most max of them.
// Expired entries are dropped lazily from the oldest end.
type seenEvents struct {
	mu    sync.Mutex
	byID  map[string]*seenEntry
	order *list.List // oldest at front
	ttl   time.Duration
	max   int
	now   func() time.Time
}

func newSeenEvents(ttl time.Duration, max int) *seenEvents {
	return &seenEvents{
		byID:  make(map[string]*seenEntry),
		order: list.New(),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// firstSight records id and reports whether it had not been seen within ttl.
func (s *seenEvents) firstSight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)

	if e, ok := s.byID[id]; ok {
		e.at = now
		s.order.MoveToBack(e.elem)
		return false
	}

	if len(s.byID) >= s.max {
		s.removeLocked(s.order.Front())
	}
	s.byID[id] = &seenEntry{at: now, elem: s.order.PushBack(id)}
	return true
}

func (s *seenEvents) expireLocked(now time.Time) {
	for front := s.order.Front(); front != nil; front = s.order.Front() {
		if now.Sub(s.byID[front.Value.(string)].at) < s.ttl {
			return
		}
		s.removeLocked(front)
	}
}

func (s *seenEvents) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	s.order.Remove(elem)
	delete(s.byID, elem.Value.(string))
}

func (s *seenEvents) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
