package fakeapi

import (
	"sort"
	"sync"
)

// Store holds customers keyed by numeric id. Ids start at 1 and are never
// reused.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	customers map[int64]any
}

func NewStore() *Store {
	return &Store{
		nextID:    1,
		customers: make(map[int64]any),
	}
}

func (s *Store) Create(customer any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.customers[id] = customer
	return id
}

func (s *Store) Get(id int64) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	return c, ok
}

// List returns every customer ordered by id.
func (s *Store) List() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.customers[id])
	}
	return out
}

// Replace swaps the stored customer. It reports false for an unknown id.
func (s *Store) Replace(id int64, customer any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return false
	}
	s.customers[id] = customer
	return true
}

// Merge copies the top-level keys of patch into the stored customer. Non
// object values on either side leave the customer as it was.
func (s *Store) Merge(id int64, patch any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.customers[id]
	if !ok {
		return false
	}
	dst, dstOK := current.(map[string]any)
	src, srcOK := patch.(map[string]any)
	if dstOK && srcOK {
		for k, v := range src {
			dst[k] = v
		}
	}
	return true
}

func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return false
	}
	delete(s.customers, id)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}
