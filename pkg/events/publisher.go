package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/pkg/config"
	"github.com/noah-isme/sma-bulletin-api/pkg/middleware/requestid"
)

// Event types published on the bulletin subject hierarchy.
const (
	TypeClassGenerated   = "class_generated"
	TypeStudentGenerated = "student_generated"
	TypeClassPublished   = "class_published"
	TypeDocumentRendered = "document_rendered"
)

// Event is the JSON payload published for bulletin lifecycle changes.
type Event struct {
	Type       string    `json:"type"`
	ClassID    string    `json:"classId"`
	PeriodID   string    `json:"periodId"`
	StudentID  string    `json:"studentId,omitempty"`
	BulletinID string    `json:"bulletinId,omitempty"`
	Count      int       `json:"count,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends events to NATS. A nil Publisher drops events.
type Publisher struct {
	conn    conn
	subject string
	logger  *zap.Logger
	closer  func()
}

// Connect dials NATS. An empty URL disables publishing and returns nil.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("sma-bulletin-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	p := NewPublisher(nc, cfg.Subject, logger)
	p.closer = func() { _ = nc.Drain() }
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(c conn, subject string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = "bulletins.events"
	}
	return &Publisher{conn: c, subject: subject, logger: logger}
}

// Publish sends event to <subject>.<type>.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.RequestID == "" {
		event.RequestID = requestid.FromContext(ctx)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	subject := p.subject + "." + event.Type
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("class_id", event.ClassID))
	return nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.closer == nil {
		return
	}
	p.closer()
}
