// Package conversation manages per-conversation message history: backend
// selection, fallback on store failure, TTL handling and scoped teardown.
//
// The manager never surfaces store faults to callers. When a configured
// persistent backend misbehaves the affected conversation silently degrades
// to an in-process transient handle, keeping the enclosing request alive.
package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// taskNamespace seeds deterministic conversation-id derivation from task ids.
var taskNamespace = uuid.MustParse("9d94e2a2-6c3f-4f3a-9b6a-0f4b62a1d8c4")

// DeriveID deterministically maps a task id to a conversation id. Distinct
// task ids yield distinct conversation ids, isolating concurrently processed
// tasks from each other.
func DeriveID(taskID string) string {
	return uuid.NewSHA1(taskNamespace, []byte(taskID)).String()
}

// Options configures a Manager.
type Options struct {
	// Persistent, when non-nil, is tried first for every conversation.
	// A nil Persistent configures pure transient operation.
	Persistent core.ConversationStore
	// Logger receives fallback diagnostics.
	Logger logging.Logger
}

// Manager maps conversation ids to handles, selecting a backend and applying
// fallback. Safe for concurrent use.
type Manager struct {
	persistent core.ConversationStore
	transient  *TransientStore
	logger     logging.Logger
}

// NewManager constructs a Manager with optional overrides.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		persistent: opts.Persistent,
		transient:  NewTransientStore(),
		logger:     logging.Ensure(opts.Logger),
	}
}

// GetOrCreate returns a handle for the given conversation id, creating it
// lazily on first access. When a persistent backend is configured it is
// probed first; any failure (misconfiguration, connectivity) is logged and
// the call degrades to a transient handle. GetOrCreate never returns an
// error.
func (m *Manager) GetOrCreate(ctx context.Context, id string) *Handle {
	if m.persistent != nil {
		if _, err := m.persistent.History(ctx, id); err == nil {
			return &Handle{
				ID:       id,
				Backend:  core.BackendPersistent,
				store:    m.persistent,
				fallback: m.transient,
				logger:   m.logger,
			}
		} else {
			m.logger.Warn("conversation.persistent_unavailable", "conversation_id", id, "error", err)
		}
	}

	return &Handle{
		ID:      id,
		Backend: core.BackendTransient,
		store:   m.transient,
		logger:  m.logger,
	}
}

// Clear removes the conversation from every backend, best effort. Persistent
// deletion failures are logged, the in-process entry is removed regardless.
// Clear never returns an error.
func (m *Manager) Clear(ctx context.Context, id string) {
	if m.persistent != nil {
		if err := m.persistent.Clear(ctx, id); err != nil {
			m.logger.Warn("conversation.persistent_clear_failed", "conversation_id", id, "error", err)
		}
	}
	if err := m.transient.Clear(ctx, id); err != nil {
		m.logger.Warn("conversation.transient_clear_failed", "conversation_id", id, "error", err)
	}
}

// Handle is a live binding to one conversation's history. Operations degrade
// to the transient fallback when the primary store fails mid-conversation,
// so Append and History keep working for the lifetime of the request.
type Handle struct {
	ID       string
	Backend  core.BackendKind
	store    core.ConversationStore
	fallback *TransientStore
	logger   logging.Logger
}

// Append records one turn.
func (h *Handle) Append(ctx context.Context, turn core.Turn) {
	if err := h.store.Append(ctx, h.ID, turn); err != nil {
		h.degrade(err)
		_ = h.store.Append(ctx, h.ID, turn)
	}
}

// History returns the ordered turns recorded so far.
func (h *Handle) History(ctx context.Context) []core.Turn {
	turns, err := h.store.History(ctx, h.ID)
	if err != nil {
		h.degrade(err)
		turns, _ = h.store.History(ctx, h.ID)
	}
	return turns
}

// degrade switches the handle to the transient fallback after a primary
// store fault. Without a fallback (already transient) it only logs.
func (h *Handle) degrade(err error) {
	h.logger.Warn("conversation.store_degraded", "conversation_id", h.ID, "backend", string(h.Backend), "error", err)
	if h.fallback != nil {
		h.store = h.fallback
		h.Backend = core.BackendTransient
		h.fallback = nil
	}
}
