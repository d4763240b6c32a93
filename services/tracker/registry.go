package tracker

import (
	"slices"
	"sync"
)

// Registry is the set of trackers that should keep polling. A tracker's
// goroutine stops at its next observation point once it is no longer
// registered, removal is the only way to cancel one.
type Registry interface {
	// Add registers a tracker, it fails with ErrDuplicateTracker when the
	// id is already present.
	Add(t *Tracker) error
	// Remove unregisters a tracker, it reports whether it was registered.
	Remove(subscriber SubscriberId, id TrackerId) bool
	// RemoveAll unregisters every tracker of a subscriber and returns them.
	RemoveAll(subscriber SubscriberId) []*Tracker
	Contains(subscriber SubscriberId, id TrackerId) bool
	Get(subscriber SubscriberId, id TrackerId) (*Tracker, bool)
	// ListActive returns the trackers of a subscriber in creation order.
	ListActive(subscriber SubscriberId) []*Tracker
	Subscribers() []SubscriberId
}

type subscriberEntry struct {
	trackers []*Tracker
}

func (e *subscriberEntry) index(id TrackerId) int {
	return slices.IndexFunc(e.trackers, func(t *Tracker) bool {
		return t.Id == id
	})
}

// MemoryRegistry is a Registry that lives for the duration of the process.
type MemoryRegistry struct {
	mu          sync.RWMutex
	subscribers map[SubscriberId]*subscriberEntry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{subscribers: map[SubscriberId]*subscriberEntry{}}
}

func (r *MemoryRegistry) Add(t *Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.subscribers[t.Subscriber]
	if !ok {
		entry = &subscriberEntry{}
		r.subscribers[t.Subscriber] = entry
	}
	if entry.index(t.Id) >= 0 {
		return ErrDuplicateTracker
	}
	entry.trackers = append(entry.trackers, t)
	return nil
}

func (r *MemoryRegistry) Remove(subscriber SubscriberId, id TrackerId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.subscribers[subscriber]
	if !ok {
		return false
	}
	idx := entry.index(id)
	if idx < 0 {
		return false
	}
	entry.trackers = slices.Delete(entry.trackers, idx, idx+1)
	if len(entry.trackers) == 0 {
		delete(r.subscribers, subscriber)
	}
	return true
}

func (r *MemoryRegistry) RemoveAll(subscriber SubscriberId) []*Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.subscribers[subscriber]
	if !ok {
		return nil
	}
	delete(r.subscribers, subscriber)
	return entry.trackers
}

func (r *MemoryRegistry) Contains(subscriber SubscriberId, id TrackerId) bool {
	_, ok := r.Get(subscriber, id)
	return ok
}

func (r *MemoryRegistry) Get(subscriber SubscriberId, id TrackerId) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.subscribers[subscriber]
	if !ok {
		return nil, false
	}
	idx := entry.index(id)
	if idx < 0 {
		return nil, false
	}
	return entry.trackers[idx], true
}

func (r *MemoryRegistry) ListActive(subscriber SubscriberId) []*Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.subscribers[subscriber]
	if !ok {
		return nil
	}
	return slices.Clone(entry.trackers)
}

func (r *MemoryRegistry) Subscribers() []SubscriberId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SubscriberId, 0, len(r.subscribers))
	for id := range r.subscribers {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
