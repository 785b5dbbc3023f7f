// Package openai provides a reasoning engine backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/engine"
)

// Options configures the OpenAI engine. Fields mirror a minimal subset of
// Chat Completion parameters; extend via functional options without breaking
// callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	SystemPrompt        string
	History             engine.HistoryFunc
}

// Engine wraps the OpenAI Chat Completions API behind the core.Engine interface.
type Engine struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI engine using the official client (API key from the
// environment).
func New(optFns ...func(o *Options)) *Engine {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI engine from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{client: client, opts: opts}
}

// Generate implements core.Engine. Prior turns of the conversation are
// replayed as chat history ahead of the current input.
func (e *Engine) Generate(ctx context.Context, conversationID, input string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion

	if e.opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(e.opts.SystemPrompt))
	}

	if e.opts.History != nil {
		for _, turn := range e.opts.History(ctx, conversationID) {
			switch turn.Role {
			case a2a.RoleAssistant:
				messages = append(messages, openai.AssistantMessage(turn.Text))
			default:
				messages = append(messages, openai.UserMessage(turn.Text))
			}
		}
	}

	messages = append(messages, openai.UserMessage(input))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               e.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", core.WrapError(core.KindEngine, err, "openai api error")
	}

	if len(resp.Choices) == 0 {
		return "", core.NewError(core.KindEngine, "openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

var _ core.Engine = (*Engine)(nil)
