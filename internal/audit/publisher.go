package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Entry, error)
}

// Sink receives a copy of every entry after it is persisted, e.g. a Kafka
// topic for downstream consumers. Sink failures are logged, never propagated:
// the store append is the source of truth.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Publisher captures structured audit entries. It is append-only and uses the
// store for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type Option func(*Publisher)

func WithSink(sink Sink) Option {
	return func(p *Publisher) { p.sink = sink }
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, entry); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"visitor_id", entry.VisitorID,
				"action", entry.Action,
				"error", err,
			)
		}
	}
	return nil
}

func (p *Publisher) ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Entry, error) {
	return p.store.ListByVisitor(ctx, visitorID)
}
