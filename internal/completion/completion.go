// Package completion turns a user question plus retrieved context into a
// structured agent reply.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeus0z/cloudhumans-takehome/common/llm"
	"github.com/zeus0z/cloudhumans-takehome/internal/model"
)

// ErrInvalidIntent means the model produced an intent outside the closed
// set. The reply is discarded rather than passed through.
var ErrInvalidIntent = errors.New("completion: model returned unknown intent")

// Completer produces one agent reply. The reply's intent is guaranteed to
// be one of the known values.
type Completer interface {
	GetChatCompletion(ctx context.Context, systemPrompt, userMessage, retrievedContext string) (model.AgentReply, error)
}

// agentReplySchema is the JSON shape the model is constrained to.
type agentReplySchema struct {
	Content string `json:"content" jsonschema_description:"The reply shown to the user"`
	Intent  string `json:"intent" jsonschema:"enum=answer,enum=clarification,enum=escalate" jsonschema_description:"What the reply is doing"`
}

var replySchema = llm.GenerateSchema[agentReplySchema]()

type completer struct {
	client  llm.Client
	timeout time.Duration
}

func New(client llm.Client, timeout time.Duration) Completer {
	return &completer{client: client, timeout: timeout}
}

func (c *completer) GetChatCompletion(ctx context.Context, systemPrompt, userMessage, retrievedContext string) (model.AgentReply, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var raw agentReplySchema
	resp, err := c.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(userMessage, retrievedContext),
		SchemaName:   "agent_reply",
		Schema:       replySchema,
		Temperature:  llm.Temp(0.2),
	}, &raw)
	if err != nil {
		return model.AgentReply{}, fmt.Errorf("chat completion: %w", err)
	}

	intent, err := model.ParseIntent(raw.Intent)
	if err != nil {
		slog.WarnContext(ctx, "discarding reply with unknown intent", "intent", raw.Intent)
		return model.AgentReply{}, fmt.Errorf("%w: %q", ErrInvalidIntent, raw.Intent)
	}

	slog.DebugContext(ctx, "chat completion produced",
		"model", c.client.Model(),
		"intent", string(intent),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return model.AgentReply{Content: raw.Content, Intent: intent}, nil
}

// buildUserPrompt pairs the retrieved context with the question. The
// context block comes first so the question stays closest to the answer.
func buildUserPrompt(userMessage, retrievedContext string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", retrievedContext, userMessage)
}
