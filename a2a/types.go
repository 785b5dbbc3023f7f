// Package a2a implements the agent-to-agent wire protocol: the task envelope
// exchanged between peers, the discovery document (agent card) and a client
// that drives discovery plus task delegation against a remote agent.
package a2a

import (
	"encoding/json"
	"fmt"
)

// WellKnownPath is the relative location of the discovery document.
const WellKnownPath = "/.well-known/agent.json"

// DefaultTaskEndpoint is the canonical task submission path used when a
// discovered card does not declare one.
const DefaultTaskEndpoint = "/a2a/tasks"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part types.
const (
	PartTypeText = "text"
	PartTypeData = "data"
)

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	// TaskStateCompleted marks a task that produced a final answer, including
	// answers that carry domain-level error text.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed marks a task that could not be processed.
	TaskStateFailed TaskState = "failed"
)

// Part is one segment of a message: plain text or a structured payload.
// Every message carries at least one part.
type Part struct {
	Type    string `json:"type"` // "text" or "data"
	Content any    `json:"content"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Content: text}
}

// NewDataPart creates a structured data part.
func NewDataPart(data any) Part {
	return Part{Type: PartTypeData, Content: data}
}

// Message holds a role tag plus ordered parts.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage creates a user message wrapping the given parts.
func NewUserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// NewAssistantText creates an assistant message with a single text part.
func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{NewTextPart(text)}}
}

// PrimaryText extracts the primary textual content of a part sequence:
// the first text part's content, falling back to JSON-serializing the first
// part when no text part exists. Returns false when parts is empty.
func PrimaryText(parts []Part) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	for _, p := range parts {
		if p.Type != PartTypeText {
			continue
		}
		if s, ok := p.Content.(string); ok {
			return s, true
		}
	}
	raw, err := json.Marshal(parts[0].Content)
	if err != nil {
		return fmt.Sprintf("%v", parts[0].Content), true
	}
	return string(raw), true
}

// TaskStatus pairs the lifecycle state with the message produced by the
// processing agent.
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Artifact is a typed record attached to a completed task.
type Artifact struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// Task is the unit of delegated work exchanged between agents.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// TaskSubmission is the inner object of a task submission envelope: an id
// plus the single request message.
type TaskSubmission struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
}

// TaskRequest is the HTTP body of a task submission: {"task": {...}}.
type TaskRequest struct {
	Task TaskSubmission `json:"task"`
}

// AgentCapabilities advertises protocol features of an agent.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes one named capability advertised on a card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard is the self-describing discovery document an agent serves at
// WellKnownPath. It is derived purely from configuration and never mutated
// at runtime.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills"`
	TaskEndpoint string            `json:"taskEndpoint,omitempty"`
}
