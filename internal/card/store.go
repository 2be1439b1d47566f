package card

import "sync"

// Store maps normalized word text to generation state. Duplicate queue
// entries for the same word alias one record. Concurrent writers to the
// same key are unsupported; the prefetch scheduler deduplicates by word
// before submitting work.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*State
}

// NewStore creates an empty card store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*State)}
}

// GetOrCreate returns a snapshot of the word's state, creating a pending
// entry with the given hint on first sight. Idempotent: an existing entry
// keeps its hint.
func (st *Store) GetOrCreate(word, hint string) State {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.entries[word]
	if !ok {
		s = &State{Word: word, Hint: hint}
		st.entries[word] = s
	}
	return *s
}

// Get returns a snapshot of the word's state.
func (st *Store) Get(word string) (State, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.entries[word]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Update merges a patch into the word's state, creating the entry if
// needed. Fields are only ever added or replaced, never removed; the sole
// exception is the image path/error pair, where setting one clears the
// other.
func (st *Store) Update(word string, p Patch) State {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.entries[word]
	if !ok {
		s = &State{Word: word}
		st.entries[word] = s
	}
	s.apply(p)
	return *s
}

// ConsumeForceTextUpdate reports whether the one-shot force flag was set,
// clearing it. The flag is observed exactly once per regeneration.
func (st *Store) ConsumeForceTextUpdate(word string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.entries[word]
	if !ok || !s.ForceTextUpdate {
		return false
	}
	s.ForceTextUpdate = false
	return true
}

// Words returns the known words in unspecified order.
func (st *Store) Words() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	words := make([]string, 0, len(st.entries))
	for w := range st.entries {
		words = append(words, w)
	}
	return words
}
