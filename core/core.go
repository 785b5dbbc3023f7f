package core

import "context"

// Engine is the boundary to the reasoning engine. It receives the primary
// textual input for one turn bound to a conversation id and returns the raw
// model output. The engine may emit directive-shaped text but performs no
// routing itself; classification happens downstream.
//
// Implementations must honor ctx cancellation and return an error only for
// faults of the engine itself (transport, provider rejection). Such errors
// are fatal for the enclosing request.
type Engine interface {
	Generate(ctx context.Context, conversationID, input string) (string, error)
}

// Invoker is the boundary to local capability execution. Invoke runs the
// named capability with the given argument map and returns its textual
// result. An unregistered name must yield a typed KindCapabilityNotFound
// error, not a panic or transport failure.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// Turn is one entry of a conversation history.
type Turn struct {
	Role string `json:"role"` // user or assistant
	Text string `json:"text"`
}

// BackendKind identifies which store a conversation handle is bound to.
type BackendKind string

const (
	// BackendPersistent marks handles served by the durable store.
	BackendPersistent BackendKind = "persistent"
	// BackendTransient marks in-process handles without automatic expiry.
	BackendTransient BackendKind = "transient"
)

// ConversationStore persists ordered per-conversation message history.
// Persistent implementations enforce a TTL per session; transient ones only
// forget on explicit Clear.
type ConversationStore interface {
	Append(ctx context.Context, id string, turn Turn) error
	History(ctx context.Context, id string) ([]Turn, error)
	Clear(ctx context.Context, id string) error
}
