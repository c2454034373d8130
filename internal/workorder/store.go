package workorder

import "sync"

// Store is the in-memory keyed collection of work order records.
// It is pure storage: no business rules, no derived state. All
// returned records are deep copies so the store's state can only be
// changed through Save.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*Detail
	seq    []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{orders: make(map[string]*Detail)}
}

// IsEmpty reports whether the store holds no records.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders) == 0
}

// FindAll returns copies of every record in insertion order.
func (s *Store) FindAll() []*Detail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Detail, 0, len(s.orders))
	for _, id := range s.seq {
		if detail, ok := s.orders[id]; ok {
			out = append(out, detail.Clone())
		}
	}
	return out
}

// FindByID returns a copy of the record, or nil when absent.
func (s *Store) FindByID(id string) *Detail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	detail, ok := s.orders[id]
	if !ok {
		return nil
	}
	return detail.Clone()
}

// Save inserts or replaces the record keyed by its id.
func (s *Store) Save(detail *Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[detail.ID]; !exists {
		s.seq = append(s.seq, detail.ID)
	}
	s.orders[detail.ID] = detail.Clone()
}

// Remove deletes the record and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return false
	}
	delete(s.orders, id)
	for i, existing := range s.seq {
		if existing == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every record. Intended for tests.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]*Detail)
	s.seq = nil
}
