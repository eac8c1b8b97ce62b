package handler_test

import (
	"context"

	"github.com/zeus0z/cloudhumans-takehome/internal/model"
)

type mockConversationService struct {
	completeFn func(ctx context.Context, req model.ConversationRequest) (model.ConversationResponse, error)
	lastReq    model.ConversationRequest
	calls      int
}

func (m *mockConversationService) Complete(ctx context.Context, req model.ConversationRequest) (model.ConversationResponse, error) {
	m.calls++
	m.lastReq = req
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return model.ConversationResponse{}, nil
}
