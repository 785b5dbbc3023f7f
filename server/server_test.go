package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/conversation"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/dispatch"
	"github.com/hupe1980/agentlink/engine"
)

func testCard() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "calc-agent",
		Description: "answers arithmetic questions",
		URL:         "http://self",
		Version:     "1.0.0",
		Skills:      []a2a.AgentSkill{{ID: "calc", Name: "Calculator"}},
	}
}

// recordingStore tracks Clear calls so tests can observe conversation
// teardown.
type recordingStore struct {
	inner   *conversation.TransientStore
	cleared []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{inner: conversation.NewTransientStore()}
}

func (r *recordingStore) Append(ctx context.Context, id string, turn core.Turn) error {
	return r.inner.Append(ctx, id, turn)
}

func (r *recordingStore) History(ctx context.Context, id string) ([]core.Turn, error) {
	return r.inner.History(ctx, id)
}

func (r *recordingStore) Clear(ctx context.Context, id string) error {
	r.cleared = append(r.cleared, id)
	return r.inner.Clear(ctx, id)
}

func newTestServer(eng core.Engine, invoker core.Invoker, store core.ConversationStore) *Server {
	router := dispatch.NewRouter("http://self", nil, a2a.NewClient(), invoker)
	conversations := conversation.NewManager(func(o *conversation.Options) {
		o.Persistent = store
	})
	return New(testCard(), eng, router, conversations)
}

// noInvoker rejects every capability.
type noInvoker struct{}

func (noInvoker) Invoke(_ context.Context, name string, _ map[string]any) (string, error) {
	return "", core.NewError(core.KindCapabilityNotFound, "no capability registered under %q", name)
}

func postTask(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, a2a.Task) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, a2a.DefaultTaskEndpoint, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var task a2a.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	return rec, task
}

func taskBody(id, text string) string {
	raw, _ := json.Marshal(a2a.TaskRequest{Task: a2a.TaskSubmission{
		ID:      id,
		Message: a2a.NewUserMessage(a2a.NewTextPart(text)),
	}})
	return string(raw)
}

func statusText(t *testing.T, task a2a.Task) string {
	t.Helper()
	require.NotNil(t, task.Status.Message)
	text, ok := a2a.PrimaryText(task.Status.Message.Parts)
	require.True(t, ok)
	return text
}

func TestServer_AgentCard(t *testing.T) {
	srv := newTestServer(engine.NewMock(), noInvoker{}, nil)

	req := httptest.NewRequest(http.MethodGet, a2a.WellKnownPath, nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "calc-agent", card.Name)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "calc", card.Skills[0].ID)
}

func TestServer_CompletedTask(t *testing.T) {
	eng := engine.NewMock()
	eng.AddResponse("what is 2+2", "The answer is 4.")
	srv := newTestServer(eng, noInvoker{}, nil)

	rec, task := postTask(t, srv.Routes(), taskBody("task-1", "what is 2+2"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "The answer is 4.", statusText(t, task))
}

func TestServer_ValidationFailures(t *testing.T) {
	srv := newTestServer(engine.NewMock(), noInvoker{}, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "malformed json",
			body: "{not json",
			want: "invalid task envelope",
		},
		{
			name: "missing task id",
			body: taskBody("", "hello"),
			want: "missing task id",
		},
		{
			name: "no parts",
			body: `{"task": {"id": "task-1", "message": {"role": "user", "parts": []}}}`,
			want: "message has no parts",
		},
		{
			name: "only empty parts",
			body: `{"task": {"id": "task-1", "message": {"role": "user", "parts": [{"type": "text", "content": ""}]}}}`,
			want: "message has no non-empty part",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, task := postTask(t, srv.Routes(), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
			assert.NotEmpty(t, task.ID)
			assert.Contains(t, statusText(t, task), tt.want)
		})
	}
}

func TestServer_EngineFailure(t *testing.T) {
	eng := engine.NewMock()
	eng.FailWith(errors.New("provider unavailable"))
	srv := newTestServer(eng, noInvoker{}, nil)

	rec, task := postTask(t, srv.Routes(), taskBody("task-1", "hello"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	assert.Contains(t, statusText(t, task), "reasoning engine error")
	assert.Contains(t, statusText(t, task), "provider unavailable")
}

func TestServer_CapabilityFaultYieldsCompletedTask(t *testing.T) {
	eng := engine.NewMock()
	eng.AddResponse("use the tool", `{"tool": "missing_tool", "tool_input": {}}`)
	srv := newTestServer(eng, noInvoker{}, nil)

	rec, task := postTask(t, srv.Routes(), taskBody("task-1", "use the tool"))

	// Capability faults fold into the answer text; the task still completes.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "capability not found: missing_tool", statusText(t, task))
}

func TestServer_ConversationReleasedOnEveryTerminalPhase(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		store := newRecordingStore()
		srv := newTestServer(engine.NewMock(), noInvoker{}, store)

		_, _ = postTask(t, srv.Routes(), taskBody("task-1", "hello"))

		require.Len(t, store.cleared, 1)
		assert.Equal(t, conversation.DeriveID("task-1"), store.cleared[0])
	})

	t.Run("engine failure", func(t *testing.T) {
		store := newRecordingStore()
		eng := engine.NewMock()
		eng.FailWith(errors.New("boom"))
		srv := newTestServer(eng, noInvoker{}, store)

		_, _ = postTask(t, srv.Routes(), taskBody("task-1", "hello"))

		require.Len(t, store.cleared, 1)
		assert.Equal(t, conversation.DeriveID("task-1"), store.cleared[0])
	})
}

func TestServer_DistinctTasksUseDistinctConversations(t *testing.T) {
	store := newRecordingStore()
	srv := newTestServer(engine.NewMock(), noInvoker{}, store)

	_, _ = postTask(t, srv.Routes(), taskBody("task-1", "hello"))
	_, _ = postTask(t, srv.Routes(), taskBody("task-2", "hello"))

	require.Len(t, store.cleared, 2)
	assert.NotEqual(t, store.cleared[0], store.cleared[1])
}

func TestServer_CardDeclaredTaskPath(t *testing.T) {
	card := testCard()
	card.TaskEndpoint = "/tasks/send"

	router := dispatch.NewRouter("http://self", nil, a2a.NewClient(), noInvoker{})
	srv := New(card, engine.NewMock(), router, conversation.NewManager())

	req := httptest.NewRequest(http.MethodPost, "/tasks/send", bytes.NewBufferString(taskBody("task-1", "hi")))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestServer_DelegationEndToEnd drives the full pipeline: an inbound task
// whose engine output is a delegation directive, delivered to a second live
// agent, whose answer flows back into the first agent's completed task.
func TestServer_DelegationEndToEnd(t *testing.T) {
	// Peer agent: plain engine that answers arithmetic. Its card leaves URL
	// empty so the caller resolves the task endpoint against the discovery
	// target.
	peerCard := testCard()
	peerCard.URL = ""
	peerEngine := engine.NewMock()
	peerEngine.AddResponse("what is 2+2", "4")
	peerRouter := dispatch.NewRouter("", nil, a2a.NewClient(), noInvoker{})
	peerSrv := New(peerCard, peerEngine, peerRouter, conversation.NewManager())
	peer := httptest.NewServer(peerSrv.Routes())
	defer peer.Close()

	// Front agent: engine emits a directive targeting the peer.
	frontEngine := engine.NewMock()
	frontEngine.AddResponse("please ask the calculator", fmt.Sprintf(
		`{"tool": "ask_another_a2a_agent", "targetAgentId": %q, "taskInput": "what is 2+2"}`, peer.URL))
	front := newTestServer(frontEngine, noInvoker{}, nil)

	rec, task := postTask(t, front.Routes(), taskBody("task-1", "please ask the calculator"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, fmt.Sprintf("Response from %s (completed): 4", peer.URL), statusText(t, task))
}
