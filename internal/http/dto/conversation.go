package dto

import (
	"fmt"

	"github.com/zeus0z/cloudhumans-takehome/internal/model"
)

type MessageDTO struct {
	Role    string `json:"role" binding:"required,oneof=USER AGENT"`
	Content string `json:"content" binding:"required"`
	Intent  string `json:"intent,omitempty" binding:"omitempty,oneof=answer clarification escalate"`
}

type ConversationCompletionRequest struct {
	HelpDeskID  int64        `json:"helpDeskId" binding:"required"`
	ProjectName string       `json:"projectName" binding:"required,min=1,max=255"`
	Messages    []MessageDTO `json:"messages" binding:"required,dive"`
}

type RetrievedSectionDTO struct {
	Score   float64 `json:"score"`
	Content string  `json:"content"`
	Type    string  `json:"type,omitempty"`
}

type ConversationCompletionResponse struct {
	Messages              []MessageDTO          `json:"messages"`
	HandOverToHumanNeeded bool                  `json:"handOverToHumanNeeded"`
	SectionsRetrieved     []RetrievedSectionDTO `json:"sectionsRetrieved"`
}

// ToConversationRequest converts the wire request into the domain shape.
// Role and intent values were already constrained by binding tags; parse
// failures here would indicate a binding gap, so they still error.
func ToConversationRequest(req ConversationCompletionRequest) (model.ConversationRequest, error) {
	messages := make([]model.Message, len(req.Messages))
	for i, m := range req.Messages {
		role, err := model.ParseRole(m.Role)
		if err != nil {
			return model.ConversationRequest{}, fmt.Errorf("message %d: %w", i, err)
		}

		msg := model.Message{Role: role, Content: m.Content}
		if m.Intent != "" {
			intent, err := model.ParseIntent(m.Intent)
			if err != nil {
				return model.ConversationRequest{}, fmt.Errorf("message %d: %w", i, err)
			}
			msg.Intent = intent
		}
		messages[i] = msg
	}

	return model.ConversationRequest{
		HelpDeskID:  req.HelpDeskID,
		ProjectName: req.ProjectName,
		Messages:    messages,
	}, nil
}

func ToConversationResponse(resp model.ConversationResponse) ConversationCompletionResponse {
	messages := make([]MessageDTO, len(resp.Messages))
	for i, m := range resp.Messages {
		messages[i] = MessageDTO{
			Role:    string(m.Role),
			Content: m.Content,
			Intent:  string(m.Intent),
		}
	}

	sections := make([]RetrievedSectionDTO, len(resp.SectionsRetrieved))
	for i, s := range resp.SectionsRetrieved {
		sections[i] = RetrievedSectionDTO{
			Score:   s.Score,
			Content: s.Content,
			Type:    s.Type,
		}
	}

	return ConversationCompletionResponse{
		Messages:              messages,
		HandOverToHumanNeeded: resp.HandOverToHumanNeeded,
		SectionsRetrieved:     sections,
	}
}
