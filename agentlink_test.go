package agentlink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/capability"
	"github.com/hupe1980/agentlink/engine"
)

func testCard() a2a.AgentCard {
	return a2a.AgentCard{Name: "calc-agent", URL: "http://self", Version: "1.0.0"}
}

func TestDispatcher_Process(t *testing.T) {
	eng := engine.NewMock()
	eng.AddResponse("hello", "Hi there.")
	d := New(testCard(), eng)

	out, err := d.Process(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", out)
}

func TestDispatcher_ProcessRoutesDirectives(t *testing.T) {
	reg := capability.NewRegistry().Register(capability.NewFunctionTool(
		"calculate_sum", "adds numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	))

	eng := engine.NewMock()
	eng.AddResponse("add 2 and 2", `{"tool": "calculate_sum", "tool_input": {"a": 2, "b": 2}}`)

	d := New(testCard(), eng, func(o *Options) {
		o.Invoker = reg
	})

	out, err := d.Process(context.Background(), "conv-1", "add 2 and 2")
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestDispatcher_RoutesServeCardAndTasks(t *testing.T) {
	eng := engine.NewMock()
	eng.AddResponse("what is 2+2", "4")
	d := New(testCard(), eng)

	srv := httptest.NewServer(d.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + a2a.WellKnownPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "calc-agent", card.Name)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDispatcher_SelfIDDefaultsToCardURL(t *testing.T) {
	eng := engine.NewMock()
	eng.AddResponse("loop", `{"tool": "ask_another_a2a_agent", "targetAgentId": "http://self", "taskInput": "x"}`)
	d := New(testCard(), eng)

	out, err := d.Process(context.Background(), "conv-1", "loop")
	require.NoError(t, err)
	assert.Contains(t, out, "cannot delegate to self (http://self)")
}

func TestDispatcher_Release(t *testing.T) {
	eng := engine.NewMock()
	d := New(testCard(), eng)

	_, err := d.Process(context.Background(), "conv-1", "hello")
	require.NoError(t, err)

	// Release is idempotent and never panics without history.
	d.Release(context.Background(), "conv-1")
	d.Release(context.Background(), "conv-1")
}
