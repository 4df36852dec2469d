// Package events maintains the append-only bridge event log and fans
// committed events out to the message bus.
package events

import (
	"context"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/repositories"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// Service writes event-log rows and publishes them after commit.
type Service struct {
	store     repositories.BridgeStore
	publisher repositories.EventPublisher
	log       *logger.Logger
}

// NewService creates the event service.
func NewService(store repositories.BridgeStore, publisher repositories.EventPublisher, log *logger.Logger) *Service {
	return &Service{store: store, publisher: publisher, log: log}
}

// Append writes one event inside the caller's transaction and returns the
// stored row with its sequence number filled in.
func (s *Service) Append(ctx context.Context, eventType entities.EventType, tokenID string, payload interface{}) (*entities.BridgeEvent, error) {
	event, err := entities.NewBridgeEvent(eventType, tokenID, payload)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// PublishCommitted pushes already committed events to the bus. Failures are
// logged and swallowed; consumers can always poll the event log.
func (s *Service) PublishCommitted(ctx context.Context, events ...*entities.BridgeEvent) {
	for _, event := range events {
		if event == nil {
			continue
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn("Failed to publish event",
				"seq", event.Seq,
				"event_type", event.EventType,
				"error", err)
		}
	}
}

// List returns up to limit events after the given sequence number.
func (s *Service) List(ctx context.Context, afterSeq int64, limit int) ([]*entities.BridgeEvent, error) {
	return s.store.ListEvents(ctx, afterSeq, limit)
}
