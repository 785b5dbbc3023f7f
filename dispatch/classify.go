// Package dispatch turns raw reasoning-engine output into routed capability
// results. The classifier decides whether a turn is a final answer or a
// structured directive; the router resolves directives to either the local
// capability invoker or remote agent delegation.
package dispatch

import (
	"encoding/json"
	"strings"
)

// Directive is a structured invocation instruction extracted from reasoning
// output. It is produced only by Classify; nothing else constructs one.
type Directive struct {
	Capability string
	Arguments  map[string]any
}

// Outcome is the tagged result of classifying one turn: either a final text
// answer or a directive. Directive is nil for final answers.
type Outcome struct {
	Directive *Directive
	Text      string
}

// IsDirective reports whether the outcome carries a directive.
func (o Outcome) IsDirective() bool { return o.Directive != nil }

// Final wraps text as a final-answer outcome.
func Final(text string) Outcome { return Outcome{Text: text} }

// shape is one accepted directive layout: the field naming the capability
// plus the argument fields accepted for it, in preference order.
type shape struct {
	nameField string
	argFields []string
}

// Shapes are tried in sequence; the first whose name field holds a non-empty
// string wins. Argument aliases cover the layouts different models emit.
var shapes = []shape{
	{nameField: "tool", argFields: []string{"tool_input", "arguments", "args", "input"}},
	{nameField: "action", argFields: []string{"action_input", "arguments", "args", "input"}},
	{nameField: "capability", argFields: []string{"arguments", "args", "parameters", "input"}},
}

// Classify inspects raw reasoning output. If it parses as a JSON object
// exposing a capability name under an accepted alias, the matching shape
// yields a directive; arguments come from the first present argument alias,
// else from the remaining top-level fields, else an empty map. Anything
// else (parse failure, no recognized field, directive-like substrings inside
// prose) classifies as Final with the text unchanged. Classify never fails.
func Classify(raw string) Outcome {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Final(raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return Final(raw)
	}

	for _, s := range shapes {
		name, ok := obj[s.nameField].(string)
		if !ok || name == "" {
			continue
		}
		return Outcome{Directive: &Directive{
			Capability: name,
			Arguments:  extractArguments(obj, s),
		}}
	}

	return Final(raw)
}

func extractArguments(obj map[string]any, s shape) map[string]any {
	for _, field := range s.argFields {
		switch v := obj[field].(type) {
		case map[string]any:
			return v
		case string:
			// Some models stringify the argument object.
			var m map[string]any
			if err := json.Unmarshal([]byte(v), &m); err == nil {
				return m
			}
		}
	}

	// No argument field: the remaining top-level keys are the arguments.
	// Covers flat layouts like {"tool":"x","targetAgentId":"...","taskInput":"..."}.
	rest := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == s.nameField {
			continue
		}
		rest[k] = v
	}
	return rest
}
