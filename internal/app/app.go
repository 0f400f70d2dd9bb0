package app

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
	"github.com/NaikDeepak/village-mandi-sub001/internal/metrics"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// deps are the ambient collaborators shared by services that publish
// events and count outcomes.
type deps struct {
	logger    *zap.Logger
	publisher events.Publisher
	metrics   *metrics.Registry
}

func defaultDeps() deps {
	return deps{
		logger:    zap.NewNop(),
		publisher: events.Nop{},
	}
}

// Option configures the ambient collaborators of a service.
type Option func(*deps)

func WithLogger(l *zap.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(d *deps) {
		if p != nil {
			d.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(d *deps) {
		d.metrics = m
	}
}

func newDeps(opts []Option) deps {
	d := defaultDeps()
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// publish never fails the caller; the transaction has already committed.
func (d deps) publish(ctx context.Context, e events.Event) {
	if err := d.publisher.Publish(ctx, e); err != nil {
		d.logger.Warn("publish event failed",
			zap.String("type", e.Type),
			zap.String("aggregate_id", e.AggregateID),
			zap.Error(err),
		)
		if d.metrics != nil {
			d.metrics.EventsFailed.Inc()
		}
	}
}

func newID() string {
	return uuid.NewString()
}
