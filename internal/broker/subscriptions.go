package broker

// subscriptionIndex maps a hash name to the set of client ids
// currently subscribed to it. An entry exists iff its set is
// non-empty, except transiently between a drop/disconnect that empties
// it and the next dequeue of that hash (the "Draining" state in
// spec §4.3's per-hash state machine).
type subscriptionIndex struct {
	subs map[string]map[uint64]struct{}
}

func newSubscriptionIndex() *subscriptionIndex {
	return &subscriptionIndex{subs: make(map[string]map[uint64]struct{})}
}

func (s *subscriptionIndex) add(hashName string, clientID uint64) {
	set, ok := s.subs[hashName]
	if !ok {
		set = make(map[uint64]struct{})
		s.subs[hashName] = set
	}
	set[clientID] = struct{}{}
}

// remove drops clientID from hashName's subscriber set. The index
// entry itself is left in place even if the set becomes empty —
// pruning happens lazily at dequeue (spec §4.3).
func (s *subscriptionIndex) remove(hashName string, clientID uint64) {
	set, ok := s.subs[hashName]
	if !ok {
		return
	}
	delete(set, clientID)
}

// removeClient removes clientID from every hash it is subscribed to.
func (s *subscriptionIndex) removeClient(clientID uint64) {
	for _, set := range s.subs {
		delete(set, clientID)
	}
}

// subscribers returns the current subscriber set for hashName, or nil
// if there is none.
func (s *subscriptionIndex) subscribers(hashName string) map[uint64]struct{} {
	return s.subs[hashName]
}

// prune removes hashName's index entry if its subscriber set is empty
// or absent. Returns true if the entry was removed (or never existed).
func (s *subscriptionIndex) prune(hashName string) bool {
	set, ok := s.subs[hashName]
	if !ok {
		return true
	}
	if len(set) == 0 {
		delete(s.subs, hashName)
		return true
	}
	return false
}
