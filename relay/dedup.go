package relay

import "github.com/omni/bridge-relay/entity"

// seenKeys is a bounded in-process record of recently handled event keys.
// When full, the oldest key is evicted first. It is a defense-in-depth
// measure for replayed ranges within one process lifetime, the checkpoint
// remains the authoritative dedup boundary across restarts.
type seenKeys struct {
	keys     map[entity.EventKey]struct{}
	order    []entity.EventKey
	head     int
	capacity int
}

func newSeenKeys(capacity int) *seenKeys {
	if capacity <= 0 {
		capacity = 1
	}
	return &seenKeys{
		keys:     make(map[entity.EventKey]struct{}, capacity),
		order:    make([]entity.EventKey, 0, capacity),
		capacity: capacity,
	}
}

// SeenOrAdd reports whether key was already recorded, recording it otherwise.
func (s *seenKeys) SeenOrAdd(key entity.EventKey) bool {
	if _, ok := s.keys[key]; ok {
		return true
	}
	if len(s.keys) >= s.capacity {
		s.evictOldest()
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)
	return false
}

// Forget drops a key so the event can be retried when its range is
// re-scanned after a failed batch.
func (s *seenKeys) Forget(key entity.EventKey) {
	delete(s.keys, key)
}

func (s *seenKeys) evictOldest() {
	if s.head >= len(s.order) {
		return
	}
	delete(s.keys, s.order[s.head])
	s.head++
	if s.head > s.capacity && s.head*2 > len(s.order) {
		s.order = append(s.order[:0:0], s.order[s.head:]...)
		s.head = 0
	}
}
