package dispatch

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// RemoteDelegationCapability is the reserved directive name that routes to
// another agent instead of a local capability.
const RemoteDelegationCapability = "ask_another_a2a_agent"

// Argument keys required by the remote delegation capability.
const (
	ArgTargetAgentID = "targetAgentId"
	ArgTaskInput     = "taskInput"
)

// RouterOptions configures a Router.
type RouterOptions struct {
	Logger logging.Logger
}

// Router resolves directives to the remote agent client or the local
// capability invoker. Every dispatch returns text: capability-level faults
// (missing parameters, unknown capability, remote failure) are folded into
// the result string rather than surfaced as errors, so the endpoint above
// only ever fails on validation or engine faults.
type Router struct {
	selfID  string
	peers   *PeerRegistry
	remote  *a2a.Client
	invoker core.Invoker
	logger  logging.Logger
}

// NewRouter constructs a Router. selfID is this agent's own identity, used to
// detect self-targeting delegation.
func NewRouter(selfID string, peers *PeerRegistry, remote *a2a.Client, invoker core.Invoker, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if peers == nil {
		peers = NewPeerRegistry(nil)
	}

	return &Router{
		selfID:  selfID,
		peers:   peers,
		remote:  remote,
		invoker: invoker,
		logger:  logging.Ensure(opts.Logger),
	}
}

// Dispatch executes a directive and returns its textual result. It never
// returns an error and never panics.
func (r *Router) Dispatch(ctx context.Context, d Directive) string {
	if d.Capability == RemoteDelegationCapability {
		return r.delegate(ctx, d.Arguments)
	}
	return r.invokeLocal(ctx, d)
}

func (r *Router) delegate(ctx context.Context, args map[string]any) string {
	target, _ := args[ArgTargetAgentID].(string)
	input, hasInput := args[ArgTaskInput]

	if target == "" || !hasInput {
		return fmt.Sprintf("missing required parameters: %s and %s are required for %s", ArgTargetAgentID, ArgTaskInput, RemoteDelegationCapability)
	}

	if target == r.selfID {
		substitute, ok := r.peers.Resolve(r.selfID)
		if !ok {
			r.logger.Warn("dispatch.delegate.self_unresolvable", "target", target)
			return fmt.Sprintf("cannot delegate to self (%s): no substitute peer registered", target)
		}
		r.logger.Info("dispatch.delegate.self_redirected", "self", r.selfID, "peer", substitute)
		target = substitute
	}

	return r.remote.Delegate(ctx, target, input)
}

func (r *Router) invokeLocal(ctx context.Context, d Directive) string {
	result, err := r.invoker.Invoke(ctx, d.Capability, d.Arguments)
	if err != nil {
		if kind, ok := core.KindOf(err); ok && kind == core.KindCapabilityNotFound {
			r.logger.Warn("dispatch.invoke.not_found", "capability", d.Capability)
			return fmt.Sprintf("capability not found: %s", d.Capability)
		}
		r.logger.Warn("dispatch.invoke.failed", "capability", d.Capability, "error", err)
		return fmt.Sprintf("capability %s failed: %v", d.Capability, err)
	}
	return result
}
