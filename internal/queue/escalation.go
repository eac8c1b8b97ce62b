// Package queue publishes handover events so downstream tooling can route
// escalated conversations to human specialists.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type EscalationEvent struct {
	HelpDeskID  int64
	ProjectName string
	Reason      string
	OccurredAt  time.Time
}

type Producer interface {
	PublishEscalation(ctx context.Context, event EscalationEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) PublishEscalation(ctx context.Context, event EscalationEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	fields := map[string]any{
		"help_desk_id": event.HelpDeskID,
		"project_name": event.ProjectName,
		"reason":       event.Reason,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish escalation: %w", err)
	}

	p.logger.InfoContext(ctx, "published escalation event", "help_desk_id", event.HelpDeskID, "project_name", event.ProjectName)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
