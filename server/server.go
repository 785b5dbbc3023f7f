// Package server exposes an agent over the A2A protocol: the static agent
// card at the well-known discovery path and the task endpoint that drives
// the classify, route, respond pipeline for inbound delegated tasks.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/conversation"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/dispatch"
	"github.com/hupe1980/agentlink/logging"
)

// taskPhase tracks an inbound task through its lifecycle. Terminal phases
// are completed and failed.
type taskPhase string

const (
	phaseReceived   taskPhase = "received"
	phaseValidated  taskPhase = "validated"
	phaseProcessing taskPhase = "processing"
	phaseCompleted  taskPhase = "completed"
	phaseFailed     taskPhase = "failed"
)

// Options configures a Server.
type Options struct {
	Logger logging.Logger
}

// Server is the top-level entry point for inbound delegated tasks. Each
// request is handled independently against the shared collaborators; the
// transient conversation derived for a task is released unconditionally once
// the task reaches a terminal phase.
type Server struct {
	card          a2a.AgentCard
	engine        core.Engine
	router        *dispatch.Router
	conversations *conversation.Manager
	logger        logging.Logger
}

// New constructs a Server from its collaborators.
func New(card a2a.AgentCard, eng core.Engine, router *dispatch.Router, conversations *conversation.Manager, optFns ...func(o *Options)) *Server {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Server{
		card:          card,
		engine:        eng,
		router:        router,
		conversations: conversations,
		logger:        logging.Ensure(opts.Logger),
	}
}

// Routes builds the HTTP routing table.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Get(a2a.WellKnownPath, s.handleAgentCard)
	r.Post(s.taskPath(), s.handleTask)
	return r
}

// taskPath returns the mountable task endpoint path from the card, falling
// back to the canonical default when the card declares none or an absolute
// URL.
func (s *Server) taskPath() string {
	p := s.card.TaskEndpoint
	if p == "" || !strings.HasPrefix(p, "/") {
		return a2a.DefaultTaskEndpoint
	}
	return p
}

// handleAgentCard serves the static discovery document. Pure read, no side
// effects.
func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

// handleTask drives one inbound task through the state machine:
// received -> validated -> processing -> completed | failed.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.logger.Debug("server.task.phase", "phase", string(phaseReceived))

	var req a2a.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondFailed(w, http.StatusBadRequest, uuid.NewString(), "invalid task envelope: malformed JSON body")
		return
	}

	taskID := req.Task.ID
	if reason, ok := validate(req.Task); !ok {
		if taskID == "" {
			taskID = uuid.NewString()
		}
		s.respondFailed(w, http.StatusBadRequest, taskID, "invalid task: "+reason)
		return
	}

	s.logger.Debug("server.task.phase", "task_id", taskID, "phase", string(phaseValidated))

	input, ok := a2a.PrimaryText(req.Task.Message.Parts)
	if !ok || input == "" {
		s.respondFailed(w, http.StatusBadRequest, taskID, "invalid task: unable to extract task input")
		return
	}

	convID := conversation.DeriveID(taskID)
	handle := s.conversations.GetOrCreate(ctx, convID)
	// Scoped teardown: the transient conversation is released on every exit
	// path out of a terminal phase.
	defer s.conversations.Clear(ctx, convID)

	s.logger.Debug("server.task.phase", "task_id", taskID, "phase", string(phaseProcessing), "conversation_id", convID)

	output, err := s.engine.Generate(ctx, convID, input)
	if err != nil {
		s.logger.Error("server.task.engine_failed", "task_id", taskID, "phase", string(phaseFailed), "error", err)
		s.respondFailed(w, http.StatusInternalServerError, taskID, "reasoning engine error: "+err.Error())
		return
	}

	handle.Append(ctx, core.Turn{Role: a2a.RoleUser, Text: input})

	text := output
	if outcome := dispatch.Classify(output); outcome.IsDirective() {
		// At most one capability invocation per inbound task; the router
		// folds every capability fault into the returned text.
		text = s.router.Dispatch(ctx, *outcome.Directive)
	}

	handle.Append(ctx, core.Turn{Role: a2a.RoleAssistant, Text: text})

	s.logger.Info("server.task.phase", "task_id", taskID, "phase", string(phaseCompleted))

	writeJSON(w, http.StatusOK, a2a.Task{
		ID:     taskID,
		Status: a2a.TaskStatus{State: a2a.TaskStateCompleted, Message: ptr(a2a.NewAssistantText(text))},
	})
}

// validate checks the RECEIVED -> VALIDATED transition requirements: a task
// id plus at least one non-empty message part.
func validate(task a2a.TaskSubmission) (string, bool) {
	if task.ID == "" {
		return "missing task id", false
	}
	if len(task.Message.Parts) == 0 {
		return "message has no parts", false
	}
	for _, p := range task.Message.Parts {
		if !emptyPart(p) {
			return "", true
		}
	}
	return "message has no non-empty part", false
}

func emptyPart(p a2a.Part) bool {
	if p.Content == nil {
		return true
	}
	if s, ok := p.Content.(string); ok && s == "" {
		return true
	}
	return false
}

func (s *Server) respondFailed(w http.ResponseWriter, status int, taskID, detail string) {
	s.logger.Warn("server.task.failed", "task_id", taskID, "detail", detail)
	writeJSON(w, status, a2a.Task{
		ID:     taskID,
		Status: a2a.TaskStatus{State: a2a.TaskStateFailed, Message: ptr(a2a.NewAssistantText(detail))},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ptr[T any](v T) *T { return &v }

// requestLogger logs method, path, and latency for every request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("server.http", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}
