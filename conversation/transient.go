package conversation

import (
	"context"
	"sync"

	"github.com/hupe1980/agentlink/core"
)

// TransientStore is a volatile ConversationStore keeping history in a
// process-local map. Entries have no automatic expiry and are only removed
// by explicit Clear. Safe for concurrent access; concurrent writers to the
// same conversation id race with last-write-wins semantics.
type TransientStore struct {
	mu        sync.RWMutex
	histories map[string][]core.Turn
}

// NewTransientStore constructs an empty in-memory store.
func NewTransientStore() *TransientStore {
	return &TransientStore{histories: make(map[string][]core.Turn)}
}

// Append adds a turn, creating the conversation on first access.
func (s *TransientStore) Append(_ context.Context, id string, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[id] = append(s.histories[id], turn)
	return nil
}

// History returns a defensive copy of the conversation's turns.
func (s *TransientStore) History(_ context.Context, id string) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]core.Turn, len(s.histories[id]))
	copy(turns, s.histories[id])
	return turns, nil
}

// Clear removes the conversation entry.
func (s *TransientStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, id)
	return nil
}

var _ core.ConversationStore = (*TransientStore)(nil)
