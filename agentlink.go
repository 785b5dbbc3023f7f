// Package agentlink provides a high-level façade over the A2A dispatch
// pipeline (reasoning engine, output classifier, capability router and
// conversation memory). Most applications interact with this package by:
//  1. Creating a Dispatcher via New() with a card and a reasoning engine
//  2. Registering local capabilities and known peer agents
//  3. Mounting Routes() on an HTTP listener
//
// The façade wires the underlying components into a single explicit context
// object that is passed by reference into every request handler. All
// defaults are safe for local development and testing; production
// deployments typically supply a persistent conversation store and a
// structured logger.
package agentlink

import (
	"context"
	"net/http"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/conversation"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/dispatch"
	"github.com/hupe1980/agentlink/logging"
	"github.com/hupe1980/agentlink/server"
)

// Options configures the Dispatcher.
type Options struct {
	// SelfID is the delegation identity of this agent, used to detect and
	// redirect self-targeted delegations. Defaults to the card URL.
	SelfID string

	// Peers maps agent identities to base URLs for delegation targeting.
	Peers map[string]string

	// Invoker executes local capabilities named by engine directives. Nil
	// means every local directive resolves to a capability-not-found text.
	Invoker core.Invoker

	// PersistentStore, when non-nil, backs conversations durably with
	// transient fallback on store faults.
	PersistentStore core.ConversationStore

	// RemoteClient overrides the default A2A client used for discovery and
	// task delivery to peer agents.
	RemoteClient *a2a.Client

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Dispatcher is the assembled dispatch pipeline. It owns the router, the
// conversation manager and the HTTP endpoint, and is safe for concurrent
// use by multiple requests.
type Dispatcher struct {
	opts          Options
	card          a2a.AgentCard
	engine        core.Engine
	router        *dispatch.Router
	conversations *conversation.Manager
	srv           *server.Server
}

// New assembles a Dispatcher from a card and a reasoning engine with
// optional overrides. Any unset component is initialized with an in-memory
// implementation.
func New(card a2a.AgentCard, eng core.Engine, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SelfID == "" {
		opts.SelfID = card.URL
	}

	if opts.RemoteClient == nil {
		opts.RemoteClient = a2a.NewClient(func(o *a2a.ClientOptions) {
			o.Logger = opts.Logger
		})
	}

	peers := dispatch.NewPeerRegistry(opts.Peers)

	router := dispatch.NewRouter(opts.SelfID, peers, opts.RemoteClient, opts.Invoker, func(o *dispatch.RouterOptions) {
		o.Logger = opts.Logger
	})

	conversations := conversation.NewManager(func(o *conversation.Options) {
		o.Persistent = opts.PersistentStore
		o.Logger = opts.Logger
	})

	srv := server.New(card, eng, router, conversations, func(o *server.Options) {
		o.Logger = opts.Logger
	})

	return &Dispatcher{
		opts:          opts,
		card:          card,
		engine:        eng,
		router:        router,
		conversations: conversations,
		srv:           srv,
	}
}

// Card returns the discovery document this dispatcher serves.
func (d *Dispatcher) Card() a2a.AgentCard { return d.card }

// Routes returns the HTTP handler exposing the agent card and the task
// endpoint, ready to mount on a listener.
func (d *Dispatcher) Routes() http.Handler { return d.srv.Routes() }

// Process runs one input through the engine and routes any resulting
// directive, returning the final text. It is the in-process equivalent of
// posting a task to the HTTP endpoint and is mainly useful for embedding
// and tests.
func (d *Dispatcher) Process(ctx context.Context, conversationID, input string) (string, error) {
	handle := d.conversations.GetOrCreate(ctx, conversationID)

	raw, err := d.engine.Generate(ctx, conversationID, input)
	if err != nil {
		return "", err
	}

	handle.Append(ctx, core.Turn{Role: a2a.RoleUser, Text: input})

	outcome := dispatch.Classify(raw)
	text := outcome.Text
	if outcome.IsDirective() {
		text = d.router.Dispatch(ctx, *outcome.Directive)
	}

	handle.Append(ctx, core.Turn{Role: a2a.RoleAssistant, Text: text})

	return text, nil
}

// Release drops the conversation state for the given id from all backends.
func (d *Dispatcher) Release(ctx context.Context, conversationID string) {
	d.conversations.Clear(ctx, conversationID)
}
