package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nurpe/gigflow/internal/metrics"
	"github.com/nurpe/gigflow/internal/model"
)

type Delivery string

const (
	Delivered Delivery = "delivered"
	// Skipped means the principal had no registered channel.
	Skipped Delivery = "skipped"
	// Dropped means a channel was found but refused the event.
	Dropped Delivery = "dropped"
)

// Dispatcher pushes events through whatever channel the registry holds for a
// principal. No queue, no acknowledgement, no retry.
type Dispatcher struct {
	registry Registry
	log      zerolog.Logger
	tracer   trace.Tracer
}

func NewDispatcher(registry Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      log.With().Str("component", "dispatcher").Logger(),
		tracer:   otel.Tracer("gigflow/realtime"),
	}
}

func (d *Dispatcher) Notify(ctx context.Context, principalID uuid.UUID, event model.Event) Delivery {
	_, span := d.tracer.Start(ctx, "realtime.Notify", trace.WithAttributes(
		attribute.String("principal.id", principalID.String()),
		attribute.String("event.type", string(event.Type)),
	))
	defer span.End()

	delivery := d.deliver(principalID, event)
	span.SetAttributes(attribute.String("delivery", string(delivery)))
	metrics.NotificationsTotal.WithLabelValues(string(event.Type), string(delivery)).Inc()
	return delivery
}

func (d *Dispatcher) deliver(principalID uuid.UUID, event model.Event) Delivery {
	ch, ok := d.registry.Lookup(principalID)
	if !ok {
		return Skipped
	}
	if err := ch.Send(event); err != nil {
		d.log.Debug().
			Err(err).
			Str("principal_id", principalID.String()).
			Str("event", string(event.Type)).
			Msg("event dropped")
		return Dropped
	}
	return Delivered
}
