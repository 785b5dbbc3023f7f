// Package core holds the contracts shared across agentlink: the reasoning
// engine and capability invoker boundaries, the conversation store interface
// and the dispatch error taxonomy. Higher layers depend on these interfaces
// rather than concrete implementations so stores, engines and invokers stay
// swappable.
package core
