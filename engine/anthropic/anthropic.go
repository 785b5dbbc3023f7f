// Package anthropic provides a reasoning engine backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentlink/a2a"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/engine"
)

// Options configures the Anthropic engine (model id, sampling, system
// prompt, history source).
type Options struct {
	Model        anthropic.Model
	Temperature  float64
	MaxTokens    int64
	APIKey       string
	SystemPrompt string
	History      engine.HistoryFunc
}

// Engine wraps the Anthropic Messages API behind the core.Engine interface.
type Engine struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic engine using the official client.
func New(optFns ...func(o *Options)) *Engine {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Engine{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic engine from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Engine {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Generate implements core.Engine. Prior turns of the conversation are
// replayed as message history ahead of the current input.
func (e *Engine) Generate(ctx context.Context, conversationID, input string) (string, error) {
	messages := e.buildMessages(ctx, conversationID, input)

	params := anthropic.MessageNewParams{
		Model:       e.opts.Model,
		Messages:    messages,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
	}

	if e.opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: e.opts.SystemPrompt}}
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", core.WrapError(core.KindEngine, err, "anthropic api error")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	return sb.String(), nil
}

func (e *Engine) buildMessages(ctx context.Context, conversationID, input string) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	if e.opts.History != nil {
		for _, turn := range e.opts.History(ctx, conversationID) {
			switch turn.Role {
			case a2a.RoleAssistant:
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text)))
			default:
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
			}
		}
	}

	return append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(input)))
}

var _ core.Engine = (*Engine)(nil)
