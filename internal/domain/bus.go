package domain

import (
	"context"
	"encoding/json"
)

// Standard topic names for the assessment pipeline.
const (
	TopicContentSubmitted    = "content.submitted"
	TopicAssessmentCompleted = "assessment.completed"
	TopicAssessmentReview    = "assessment.review"
)

// Event is a typed message on the assessment pipeline bus. Each event names
// its own topic, so a payload cannot be published to the wrong subject.
type Event interface {
	EventTopic() string
}

// ContentSubmitted asks the async worker to assess a page.
type ContentSubmitted struct {
	TenantID string `json:"tenant_id,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
	Content  string `json:"content"`
	PageType string `json:"page_type,omitempty"`
	Industry string `json:"industry,omitempty"`

	// Optional per-submission overrides; nil falls back to engine defaults.
	RunTier3      *bool `json:"run_tier3,omitempty"`
	ShortCircuit  *bool `json:"short_circuit,omitempty"`
	MaxTier3Rules *int  `json:"max_tier3_rules,omitempty"`
}

func (ContentSubmitted) EventTopic() string { return TopicContentSubmitted }

// AssessmentCompleted announces a finished assessment with its full result.
type AssessmentCompleted struct {
	TenantID string            `json:"tenant_id"`
	Result   *AssessmentResult `json:"result"`
}

func (AssessmentCompleted) EventTopic() string { return TopicAssessmentCompleted }

// AssessmentFlagged routes a failing assessment to human review.
type AssessmentFlagged struct {
	TenantID     string            `json:"tenant_id"`
	AssessmentID string            `json:"assessment_id"`
	OverallScore int               `json:"overall_score"`
	Result       *AssessmentResult `json:"result"`
}

func (AssessmentFlagged) EventTopic() string { return TopicAssessmentReview }

// EventBus moves assessment pipeline events between the API, the async
// worker, and any external consumers. Backed by Go channels (Community) or
// NATS (Pro). All methods require tenantID for strict multi-tenancy
// isolation.
type EventBus interface {
	// Publish routes an event to its topic.
	Publish(ctx context.Context, tenantID string, event Event) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the wire envelope around one event.
type Message struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Topic     string          `json:"topic"`
	Event     json.RawMessage `json:"event"`
	Timestamp int64           `json:"timestamp"`
}

// Decode unmarshals the enclosed event into v. Subscribers know the concrete
// type from the topic they subscribed to.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Event, v)
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}
