package jwks

import "sync/atomic"

// KeySource yields the key set to validate against.
type KeySource interface {
	KeySet() *KeySet
}

// Store holds the current key set behind an atomic pointer. Rotation
// replaces the whole set, so a reader always sees one complete set.
type Store struct {
	current atomic.Pointer[KeySet]
}

// NewStore creates a Store holding initial.
func NewStore(initial *KeySet) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// KeySet returns the current set.
func (s *Store) KeySet() *KeySet {
	return s.current.Load()
}

// Replace swaps in next and returns the previous set.
func (s *Store) Replace(next *KeySet) *KeySet {
	return s.current.Swap(next)
}
