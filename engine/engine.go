// Package engine provides reasoning engine implementations behind the
// core.Engine boundary, plus adapters shared by every provider. Providers
// see the conversation only through a HistoryFunc so they stay decoupled
// from the memory layer.
package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentlink/core"
)

// HistoryFunc supplies the prior turns of a conversation to a provider.
// A nil HistoryFunc configures stateless single-turn generation.
type HistoryFunc func(ctx context.Context, conversationID string) []core.Turn

// Func adapts a plain function to the core.Engine interface.
type Func func(ctx context.Context, conversationID, input string) (string, error)

// Generate implements core.Engine.
func (f Func) Generate(ctx context.Context, conversationID, input string) (string, error) {
	return f(ctx, conversationID, input)
}

// Mock is a lightweight in-memory Engine useful for tests and examples.
// Responses are canned per input; unseen inputs get a deterministic echo.
type Mock struct {
	responses map[string]string
	failWith  error
}

// NewMock constructs an empty Mock.
func NewMock() *Mock {
	return &Mock{responses: make(map[string]string)}
}

// AddResponse registers a deterministic canned output for an input.
func (m *Mock) AddResponse(input, output string) { m.responses[input] = output }

// FailWith makes every Generate call return err.
func (m *Mock) FailWith(err error) { m.failWith = err }

// Generate implements core.Engine.
func (m *Mock) Generate(_ context.Context, _ string, input string) (string, error) {
	if m.failWith != nil {
		return "", core.WrapError(core.KindEngine, m.failWith, "mock engine failure")
	}
	if out, ok := m.responses[input]; ok {
		return out, nil
	}
	return fmt.Sprintf("Mock response to: %s", input), nil
}

var (
	_ core.Engine = (*Mock)(nil)
	_ core.Engine = (Func)(nil)
)
