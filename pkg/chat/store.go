package chat

import "sync"

// Store is the conversation state store. Get returns an immutable snapshot;
// Update runs a mutator against a draft copy and commits it as the new
// snapshot. All mutations happen from the single active event-handling
// chain, but reads may come from a renderer at any time, so snapshots are
// never mutated in place.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a snapshot of the conversation. Callers must treat the
// returned slice and its messages as immutable.
func (s *Store) Get() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

// Len returns the current number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Update applies fn to a draft of the conversation and commits the result.
func (s *Store) Update(fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := &Draft{messages: make([]Message, len(s.messages))}
	copy(draft.messages, s.messages)
	fn(draft)
	s.messages = draft.messages
}

// Draft is the mutable view handed to Update callbacks. Pointers returned by
// Last and At are valid only for the duration of the callback.
type Draft struct {
	messages []Message
}

// Len returns the number of messages in the draft.
func (d *Draft) Len() int { return len(d.messages) }

// Append adds a message to the end of the draft.
func (d *Draft) Append(m Message) {
	d.messages = append(d.messages, m)
}

// Last returns the trailing message for in-place mutation, or nil when the
// draft is empty.
func (d *Draft) Last() *Message {
	if len(d.messages) == 0 {
		return nil
	}
	return &d.messages[len(d.messages)-1]
}

// At returns the message at index i for in-place mutation.
func (d *Draft) At(i int) *Message {
	return &d.messages[i]
}

// TrimLast removes the trailing n messages.
func (d *Draft) TrimLast(n int) {
	if n > len(d.messages) {
		n = len(d.messages)
	}
	d.messages = d.messages[:len(d.messages)-n]
}
