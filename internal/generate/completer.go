package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/chat"
)

// Completer turns a prompt into text. Implementations must honor ctx.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// AnthropicCompleter completes prompts with the Anthropic Messages API.
type AnthropicCompleter struct {
	Client    anthropic.Client
	Model     string
	MaxTokens int64
}

func (a AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	resp, err := a.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "generate: anthropic completion")
	}
	resp.Usage.Log(resp.Model)
	return resp.Text(), nil
}

// ChatCompleter completes prompts with an OpenAI-compatible endpoint.
type ChatCompleter struct {
	Client    chat.Client
	Model     string
	MaxTokens int
}

func (c ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Client.CreateCompletion(ctx, chat.Request{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Messages:  []chat.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "generate: chat completion")
	}
	return resp.Text(), nil
}
