// Package messaging implements the EventPublisher port on NATS.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const (
	natsConnectionTimeoutSeconds = 5

	// Event subjects.
	SubjectRunCompleted = "stocknotifier.runs.completed"
	SubjectAlert        = "stocknotifier.alerts"
)

// Config configures the NATS event publisher.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSEventPublisher publishes run lifecycle and alert events to NATS.
type NATSEventPublisher struct {
	mu   sync.RWMutex
	conn *nats.Conn
}

// NewNATSEventPublisher creates a publisher and connects to the server.
func NewNATSEventPublisher(config Config) (*NATSEventPublisher, error) {
	if config.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(config.URL, "nats://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if config.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if config.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}

	conn, err := nats.Connect(config.URL,
		nats.Timeout(natsConnectionTimeoutSeconds*time.Second),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventPublisher{conn: conn}, nil
}

var _ outbound.EventPublisher = (*NATSEventPublisher)(nil)

// PublishRunCompleted publishes a run-completed event.
func (p *NATSEventPublisher) PublishRunCompleted(ctx context.Context, event outbound.RunCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run-completed event: %w", err)
	}
	return p.publish(ctx, SubjectRunCompleted, payload)
}

// PublishAlert publishes a threshold-breach alert event.
func (p *NATSEventPublisher) PublishAlert(ctx context.Context, alert *entity.Alert) error {
	if alert == nil {
		return errors.New("alert cannot be nil")
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}
	return p.publish(ctx, SubjectAlert, payload)
}

func (p *NATSEventPublisher) publish(ctx context.Context, subject string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("NATS connection is closed")
	}

	if err := conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and releases the connection.
func (p *NATSEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	p.conn.Close()
	return nil
}
