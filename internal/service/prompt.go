package service

import (
	"fmt"
	"strings"

	"github.com/zeus0z/cloudhumans-takehome/internal/model"
)

// escalationMessage replaces the model's reply when it keeps asking for
// clarification past the allowed limit.
const escalationMessage = "I've asked for clarification twice, but I still need more information. Let me transfer you to a specialist who can better assist you."

const basePrompt = `You are Claudia, a Tesla support assistant.
Answer ONLY using the provided context.

Return your response as JSON with this exact structure:
{
  "content": "your message here",
  "intent": "answer" | "clarification" | "escalate"
}

Follow these rules:
- Use "answer" when you can answer the question confidently from the context
- Use "clarification" when you need more information from the user
- Use "escalate" when you cannot help and need human assistance`

const escalationDirective = `IMPORTANT: You have already asked for clarification twice. You MUST use "escalate" now if you still cannot answer.`

const promptClosing = `Be friendly, concise, and use emojis occasionally 😊`

// buildSystemPrompt composes the persona prompt. Past the clarification
// threshold it appends a hard directive biasing the model toward escalate;
// the orchestrator still enforces the rule in code regardless.
func buildSystemPrompt(clarificationCount int) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n")
	if clarificationCount >= clarificationLimit {
		b.WriteString(escalationDirective)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(promptClosing)
	return b.String()
}

// buildContext numbers each retrieved section and joins them with blank
// lines, preserving retrieval order.
func buildContext(sections []model.RetrievedSection) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, s.Content)
	}
	return strings.Join(parts, "\n\n")
}
