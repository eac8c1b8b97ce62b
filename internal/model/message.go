package model

import "fmt"

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
)

// ParseRole validates a wire-format role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAgent:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Intent classifies an agent reply. It is a closed three-value enum; the
// completion provider is contractually bound to one of these and anything
// else is rejected at parse time.
type Intent string

const (
	IntentAnswer        Intent = "answer"
	IntentClarification Intent = "clarification"
	IntentEscalate      Intent = "escalate"
)

// ParseIntent validates a wire-format intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentAnswer, IntentClarification, IntentEscalate:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("unknown intent: %q", s)
	}
}

// Message is a single conversation turn. Messages are append-only: the
// orchestrator never rewrites history, it only adds one AGENT message per
// completion. Intent is empty for USER messages.
type Message struct {
	Role    Role
	Content string
	Intent  Intent
}

// AgentReply is the structured output contracted from the completion
// provider before the orchestrator's escalation policy is applied.
type AgentReply struct {
	Content string
	Intent  Intent
}

// RetrievedSection is one piece of evidence returned by the vector index,
// surfaced to the client exactly as retrieved (no re-ranking).
type RetrievedSection struct {
	Score   float64
	Content string
	Type    string
}

// ConversationRequest is the orchestrator's input: the full message history
// plus the project scope. HelpDeskID is carried for handoff routing but does
// not influence the completion itself.
type ConversationRequest struct {
	HelpDeskID  int64
	ProjectName string
	Messages    []Message
}

// ConversationResponse is the orchestrator's output: the input history with
// exactly one AGENT message appended, the handover decision, and the
// evidence used to ground the reply.
type ConversationResponse struct {
	Messages              []Message
	HandOverToHumanNeeded bool
	SectionsRetrieved     []RetrievedSection
}

// LastUserMessage returns the most recent USER-role message, scanning from
// the end. The last entry overall may be an AGENT message; position among
// USER messages is what matters.
func (r ConversationRequest) LastUserMessage() (Message, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i], true
		}
	}
	return Message{}, false
}

// ClarificationCount counts prior AGENT messages that asked for
// clarification. The escalation policy keys off this number.
func (r ConversationRequest) ClarificationCount() int {
	n := 0
	for _, m := range r.Messages {
		if m.Role == RoleAgent && m.Intent == IntentClarification {
			n++
		}
	}
	return n
}
