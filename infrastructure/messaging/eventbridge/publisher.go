// Package eventbridge publishes audit events to the platform event bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
)

// source tags every entry with the emitting system
const source = "skillcourt.backend"

// putEventsBatchSize is the EventBridge limit per PutEvents call
const putEventsBatchSize = 10

// API is the slice of the EventBridge client the publisher depends on
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends audit events to an EventBridge bus, chunked to the
// service's batch limit.
type Publisher struct {
	client       API
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates an audit event publisher over the given bus
func NewPublisher(client API, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish delivers the events, at most ten per PutEvents call. Entries that
// fail to marshal are logged and skipped rather than failing the batch.
func (p *Publisher) Publish(ctx context.Context, events ...ports.AuditEvent) error {
	for start := 0; start < len(events); start += putEventsBatchSize {
		end := start + putEventsBatchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishChunk(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishChunk(ctx context.Context, events []ports.AuditEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("failed to marshal audit event",
				zap.String("type", event.Type),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
			Resources:    []string{fmt.Sprintf("arn:aws:skillcourt::%s", event.Subject)},
		})
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish audit events: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("audit event rejected by event bus",
					zap.String("type", events[i].Type),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("event bus rejected %d of %d audit events",
			result.FailedEntryCount, len(entries))
	}
	return nil
}
