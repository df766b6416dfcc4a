// Package reconciler finishes cascade rejections that a hire left behind.
//
// A hire rejects competing bids after it has already committed, so a failed
// cascade (or a bid accepted while the hire was committing) leaves pending
// bids on an assigned gig. The reconciler rejects those. Assigned gigs with
// no hired bid are partial commits; they are reported and never touched.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nurpe/gigflow/internal/metrics"
)

type Store interface {
	ListGigsNeedingCascade(ctx context.Context) ([]uuid.UUID, error)
	ListOrphanedAssignments(ctx context.Context) ([]uuid.UUID, error)
	RejectPendingBids(ctx context.Context, gigID, exceptID uuid.UUID) (int64, error)
}

type Report struct {
	GigsSwept    int
	BidsRejected int64
	Orphaned     []uuid.UUID
}

type Reconciler struct {
	store  Store
	log    zerolog.Logger
	tracer trace.Tracer
}

func New(store Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		log:    log.With().Str("component", "reconciler").Logger(),
		tracer: otel.Tracer("gigflow/reconciler"),
	}
}

// RunOnce performs one sweep. It keeps going past per-gig failures and
// returns them joined.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	ctx, span := r.tracer.Start(ctx, "reconciler.RunOnce")
	defer span.End()

	var report Report

	gigIDs, err := r.store.ListGigsNeedingCascade(ctx)
	if err != nil {
		span.RecordError(err)
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("list gigs needing cascade: %w", err)
	}

	var errs []error
	for _, gigID := range gigIDs {
		// the hired bid is no longer pending, so nothing needs excluding
		rejected, err := r.store.RejectPendingBids(ctx, gigID, uuid.Nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("gig %s: %w", gigID, err))
			continue
		}
		report.GigsSwept++
		report.BidsRejected += rejected
	}
	metrics.BidsRejectedTotal.WithLabelValues("reconciler").Add(float64(report.BidsRejected))

	orphaned, err := r.store.ListOrphanedAssignments(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list orphaned assignments: %w", err))
	} else {
		report.Orphaned = orphaned
		metrics.OrphanedAssignments.Set(float64(len(orphaned)))
		for _, gigID := range orphaned {
			r.log.Warn().Str("gig_id", gigID.String()).Msg("gig assigned without a hired bid")
		}
	}

	span.SetAttributes(
		attribute.Int("gigs.swept", report.GigsSwept),
		attribute.Int64("bids.rejected", report.BidsRejected),
		attribute.Int("gigs.orphaned", len(report.Orphaned)),
	)

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}
	metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
	if report.BidsRejected > 0 {
		r.log.Info().
			Int("gigs", report.GigsSwept).
			Int64("bids_rejected", report.BidsRejected).
			Msg("cascade reconciled")
	}
	return report, nil
}

// Start runs RunOnce on schedule until ctx is cancelled. Runs never overlap.
func (r *Reconciler) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error().Err(err).Msg("reconcile run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	r.log.Info().Str("schedule", schedule).Msg("reconciler started")
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.log.Info().Msg("reconciler stopped")
	return nil
}

// ValidateSchedule reports whether spec is accepted by Start.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
