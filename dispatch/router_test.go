package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/core"
)

// stubInvoker is a scripted core.Invoker.
type stubInvoker struct {
	result   string
	err      error
	lastName string
	lastArgs map[string]any
}

func (s *stubInvoker) Invoke(_ context.Context, name string, args map[string]any) (string, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

// newPeerServer serves a minimal agent card and a task endpoint that always
// completes with the given reply text.
func newPeerServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc(a2a.WellKnownPath, func(w http.ResponseWriter, _ *http.Request) {
		card := a2a.AgentCard{Name: "peer", URL: srv.URL, Version: "1.0.0"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(card)
	})
	mux.HandleFunc(a2a.DefaultTaskEndpoint, func(w http.ResponseWriter, r *http.Request) {
		var req a2a.TaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		msg := a2a.NewAssistantText(reply)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.Task{
			ID:     req.Task.ID,
			Status: a2a.TaskStatus{State: a2a.TaskStateCompleted, Message: &msg},
		})
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_LocalInvocation(t *testing.T) {
	invoker := &stubInvoker{result: "4"}
	router := NewRouter("self", nil, a2a.NewClient(), invoker)

	out := router.Dispatch(context.Background(), Directive{
		Capability: "mcp_calc",
		Arguments:  map[string]any{"expr": "2+2"},
	})

	assert.Equal(t, "4", out)
	assert.Equal(t, "mcp_calc", invoker.lastName)
	assert.Equal(t, map[string]any{"expr": "2+2"}, invoker.lastArgs)
}

func TestRouter_CapabilityNotFound(t *testing.T) {
	invoker := &stubInvoker{err: core.NewError(core.KindCapabilityNotFound, "no capability registered under %q", "nope")}
	router := NewRouter("self", nil, a2a.NewClient(), invoker)

	out := router.Dispatch(context.Background(), Directive{Capability: "nope"})

	assert.Equal(t, "capability not found: nope", out)
}

func TestRouter_CapabilityFailureFoldedIntoText(t *testing.T) {
	invoker := &stubInvoker{err: assert.AnError}
	router := NewRouter("self", nil, a2a.NewClient(), invoker)

	out := router.Dispatch(context.Background(), Directive{Capability: "mcp_calc"})

	assert.Contains(t, out, "capability mcp_calc failed")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestRouter_DelegateMissingParameters(t *testing.T) {
	router := NewRouter("self", nil, a2a.NewClient(), &stubInvoker{})

	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "no arguments", args: map[string]any{}},
		{name: "missing task input", args: map[string]any{ArgTargetAgentID: "http://peer"}},
		{name: "missing target", args: map[string]any{ArgTaskInput: "hello"}},
		{name: "non-string target", args: map[string]any{ArgTargetAgentID: 7, ArgTaskInput: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := router.Dispatch(context.Background(), Directive{
				Capability: RemoteDelegationCapability,
				Arguments:  tt.args,
			})

			assert.Contains(t, out, "missing required parameters")
			assert.Contains(t, out, ArgTargetAgentID)
			assert.Contains(t, out, ArgTaskInput)
		})
	}
}

func TestRouter_DelegateToPeer(t *testing.T) {
	peer := newPeerServer(t, "4")
	router := NewRouter("self", nil, a2a.NewClient(), &stubInvoker{})

	out := router.Dispatch(context.Background(), Directive{
		Capability: RemoteDelegationCapability,
		Arguments: map[string]any{
			ArgTargetAgentID: peer.URL,
			ArgTaskInput:     "what is 2+2",
		},
	})

	assert.Equal(t, "Response from "+peer.URL+" (completed): 4", out)
}

func TestRouter_SelfTargetWithoutSubstituteRejected(t *testing.T) {
	router := NewRouter("http://me", nil, a2a.NewClient(), &stubInvoker{})

	out := router.Dispatch(context.Background(), Directive{
		Capability: RemoteDelegationCapability,
		Arguments: map[string]any{
			ArgTargetAgentID: "http://me",
			ArgTaskInput:     "loop",
		},
	})

	assert.Equal(t, "cannot delegate to self (http://me): no substitute peer registered", out)
}

func TestRouter_SelfTargetRedirectedToRegisteredPeer(t *testing.T) {
	peer := newPeerServer(t, "pong")
	peers := NewPeerRegistry(map[string]string{"http://me": peer.URL})
	router := NewRouter("http://me", peers, a2a.NewClient(), &stubInvoker{})

	out := router.Dispatch(context.Background(), Directive{
		Capability: RemoteDelegationCapability,
		Arguments: map[string]any{
			ArgTargetAgentID: "http://me",
			ArgTaskInput:     "ping",
		},
	})

	assert.Equal(t, "Response from "+peer.URL+" (completed): pong", out)
}

func TestPeerRegistry(t *testing.T) {
	r := NewPeerRegistry(map[string]string{"a": "http://a"})
	r.Register("b", "http://b")

	url, ok := r.Resolve("a")
	require.True(t, ok)
	assert.Equal(t, "http://a", url)

	url, ok = r.Resolve("b")
	require.True(t, ok)
	assert.Equal(t, "http://b", url)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)
}
