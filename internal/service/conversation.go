// Package service holds the conversation policy core: it runs the
// embed-retrieve-generate pipeline and enforces the escalation rule the
// prompt alone cannot guarantee.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/zeus0z/cloudhumans-takehome/common/logger"
	"github.com/zeus0z/cloudhumans-takehome/internal/embedding"
	"github.com/zeus0z/cloudhumans-takehome/internal/model"
	"github.com/zeus0z/cloudhumans-takehome/internal/queue"
	"github.com/zeus0z/cloudhumans-takehome/internal/retriever"
)

// clarificationLimit is how many clarification replies the agent may give
// before the conversation must escalate to a human.
const clarificationLimit = 2

type ConversationService interface {
	Complete(ctx context.Context, req model.ConversationRequest) (model.ConversationResponse, error)
}

// Completer produces one structured agent reply from a prompt and context.
type Completer interface {
	GetChatCompletion(ctx context.Context, systemPrompt, userMessage, retrievedContext string) (model.AgentReply, error)
}

type conversationService struct {
	embedder  embedding.Provider
	retriever retriever.Retriever
	completer Completer
	events    queue.Producer // nil disables handover events
	topK      int
}

func NewConversationService(embedder embedding.Provider, ret retriever.Retriever, completer Completer, events queue.Producer, topK int) ConversationService {
	return &conversationService{
		embedder:  embedder,
		retriever: ret,
		completer: completer,
		events:    events,
		topK:      topK,
	}
}

// Complete runs the full pipeline for one request. The pipeline is strictly
// sequential: the embedding feeds retrieval, retrieval feeds the prompt.
// On any upstream failure the request fails whole; no partial response.
func (s *conversationService) Complete(ctx context.Context, req model.ConversationRequest) (model.ConversationResponse, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		HelpDeskID:  logger.Ptr(req.HelpDeskID),
		ProjectName: logger.Ptr(req.ProjectName),
		Component:   "conversation",
	})

	span := logger.StartSpan(ctx, "conversation.complete")
	defer span.End()
	ctx = span.Context()

	lastUser, ok := req.LastUserMessage()
	if !ok {
		return model.ConversationResponse{}, ErrNoUserMessage
	}
	slog.DebugContext(ctx, "answering user message", "message", logger.Truncate(lastUser.Content, 120))

	vector, err := s.embedder.GetEmbedding(ctx, lastUser.Content)
	if err != nil {
		span.RecordError(err)
		return model.ConversationResponse{}, upstream("embedding", err)
	}

	sections, err := s.retriever.SearchByVector(ctx, req.ProjectName, vector, s.topK)
	if err != nil {
		span.RecordError(err)
		return model.ConversationResponse{}, upstream("retrieval", err)
	}

	clarificationCount := req.ClarificationCount()
	systemPrompt := buildSystemPrompt(clarificationCount)

	reply, err := s.completer.GetChatCompletion(ctx, systemPrompt, lastUser.Content, buildContext(sections))
	if err != nil {
		span.RecordError(err)
		return model.ConversationResponse{}, upstream("completion", err)
	}

	// The prompt directive is only a bias; the limit is enforced here. A
	// reply that already escalated on its own passes through untouched.
	overridden := false
	if clarificationCount >= clarificationLimit && reply.Intent == model.IntentClarification {
		reply = model.AgentReply{Content: escalationMessage, Intent: model.IntentEscalate}
		overridden = true
	}

	handover := reply.Intent == model.IntentEscalate
	if handover {
		s.publishEscalation(ctx, req, overridden)
	}

	slog.InfoContext(ctx, "conversation completed",
		"intent", string(reply.Intent),
		"clarification_count", clarificationCount,
		"overridden", overridden,
		"sections", len(sections),
		"handover", handover)

	messages := make([]model.Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)
	messages = append(messages, model.Message{
		Role:    model.RoleAgent,
		Content: reply.Content,
		Intent:  reply.Intent,
	})

	return model.ConversationResponse{
		Messages:              messages,
		HandOverToHumanNeeded: handover,
		SectionsRetrieved:     sections,
	}, nil
}

// publishEscalation emits a handover event for downstream routing. Best
// effort: the response to the user never depends on it.
func (s *conversationService) publishEscalation(ctx context.Context, req model.ConversationRequest, overridden bool) {
	if s.events == nil {
		return
	}

	reason := "model"
	if overridden {
		reason = "clarification_limit"
	}

	err := s.events.PublishEscalation(ctx, queue.EscalationEvent{
		HelpDeskID:  req.HelpDeskID,
		ProjectName: req.ProjectName,
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish escalation event", "error", err)
	}
}
