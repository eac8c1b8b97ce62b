package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zeus0z/cloudhumans-takehome/internal/http/dto"
	"github.com/zeus0z/cloudhumans-takehome/internal/service"
)

type ConversationHandler struct {
	conversations service.ConversationService
}

func NewConversationHandler(conversations service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// Complete handles POST /conversations/completions.
func (h *ConversationHandler) Complete(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ConversationCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	domainReq, err := dto.ToConversationRequest(req)
	if err != nil {
		slog.WarnContext(ctx, "invalid conversation payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.conversations.Complete(ctx, domainReq)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToConversationResponse(resp))
}

func (h *ConversationHandler) writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if errors.Is(err, service.ErrNoUserMessage) {
		slog.WarnContext(ctx, "completion requested without user message")
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation has no user message"})
		return
	}

	var upstreamErr *service.UpstreamError
	if errors.As(err, &upstreamErr) {
		slog.ErrorContext(ctx, "upstream provider failed", "stage", upstreamErr.Stage, "error", upstreamErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream " + upstreamErr.Stage + " unavailable"})
		return
	}

	slog.ErrorContext(ctx, "conversation completion failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete conversation"})
}
