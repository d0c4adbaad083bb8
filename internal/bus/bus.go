// Package bus moves assessment pipeline events between the API, the async
// worker, and external consumers.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagequality/gannet/internal/domain"
)

// New creates an event bus based on configuration.
// Community tier runs on Go channels, Pro tier on NATS.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// envelope wraps an event in the wire message both bus implementations
// deliver to handlers.
func envelope(tenantID string, event domain.Event) (*domain.Message, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if event == nil {
		return nil, fmt.Errorf("event is required")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventTopic(), err)
	}

	return &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     event.EventTopic(),
		Event:     body,
		Timestamp: time.Now().UnixNano(),
	}, nil
}
