// Package natspub publishes committed bridge events to NATS for downstream
// relayers.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/infrastructure/config"
)

// Publisher fans committed events out on per-type subjects.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *zap.Logger
}

// NewPublisher connects to NATS with automatic reconnect.
func NewPublisher(cfg config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:          conn,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}, nil
}

// Publish sends one event on <prefix>.<EventType>. Best effort: the event log
// in Postgres is the durable record.
func (p *Publisher) Publish(ctx context.Context, event *entities.BridgeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.EventType)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event %d: %w", event.Seq, err)
	}

	p.logger.Debug("Published event",
		zap.String("subject", subject),
		zap.Int64("seq", event.Seq))
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// NoopPublisher drops events; used when NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event *entities.BridgeEvent) error { return nil }
func (NoopPublisher) Close() error                                                   { return nil }
