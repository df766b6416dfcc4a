package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/metrics"
	"github.com/nurpe/gigflow/internal/model"
	"github.com/nurpe/gigflow/internal/repository"
)

// HiringCoordinator closes a gig and commits exactly one winning bid.
//
// The commit is two conditional updates: gig open -> assigned, then bid
// pending -> hired. The gig update is the linearization point, so among
// concurrent hires for the same gig only one gets past it. When a Transactor
// is configured both updates share one transaction and a failed bid update
// reopens the gig; without one, a failed bid update leaves the gig assigned.
type HiringCoordinator struct {
	gigs     GigStore
	bids     BidStore
	tx       Transactor
	notifier Notifier
	log      zerolog.Logger
	tracer   trace.Tracer
}

type HiringOption func(*HiringCoordinator)

// WithTransactor makes the gig and bid updates commit atomically.
func WithTransactor(tx Transactor) HiringOption {
	return func(c *HiringCoordinator) {
		c.tx = tx
	}
}

func NewHiringCoordinator(gigs GigStore, bids BidStore, notifier Notifier, log zerolog.Logger, opts ...HiringOption) *HiringCoordinator {
	c := &HiringCoordinator{
		gigs:     gigs,
		bids:     bids,
		notifier: notifier,
		log:      log.With().Str("component", "hiring").Logger(),
		tracer:   otel.Tracer("gigflow/service"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type HireInput struct {
	Principal model.Principal
	BidID     uuid.UUID
}

func (c *HiringCoordinator) Hire(ctx context.Context, input HireInput) (*model.HireResult, error) {
	ctx, span := c.tracer.Start(ctx, "service.Hire", trace.WithAttributes(
		attribute.String("bid.id", input.BidID.String()),
		attribute.String("principal.id", input.Principal.UserID.String()),
		attribute.Bool("hire.atomic", c.tx != nil),
	))
	defer span.End()

	result, err := c.hire(ctx, input)
	metrics.HiresTotal.WithLabelValues(hireOutcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hire failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("gig.id", result.Gig.ID.String()))
	return result, nil
}

func (c *HiringCoordinator) hire(ctx context.Context, input HireInput) (*model.HireResult, error) {
	if input.Principal.IsZero() {
		return nil, ErrPermissionDenied
	}

	bid, err := c.bids.GetBid(ctx, input.BidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("load bid: %w", err)
	}

	gig, err := c.gigs.GetGig(ctx, bid.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, fmt.Errorf("load gig: %w", err)
	}

	if !gig.OwnedBy(input.Principal.UserID) {
		return nil, ErrPermissionDenied
	}

	// A bid that is already hired can only be a replay of a committed hire.
	if bid.Status == model.BidStatusHired {
		return nil, ErrBidNotPending
	}

	var (
		assigned *model.Gig
		hired    *model.Bid
	)
	if c.tx != nil {
		err = c.tx.WithinTx(ctx, func(ctx context.Context) error {
			var txErr error
			assigned, hired, txErr = c.commit(ctx, gig.ID, bid.ID)
			return txErr
		})
	} else {
		assigned, hired, err = c.commit(ctx, gig.ID, bid.ID)
		if err != nil && assigned != nil {
			metrics.PartialHiresTotal.Inc()
			c.log.Warn().
				Err(err).
				Str("gig_id", gig.ID.String()).
				Str("bid_id", bid.ID.String()).
				Msg("gig assigned but bid not hired")
		}
	}
	if err != nil {
		return nil, err
	}

	// The hire is final from here on; follow-up work must not be cut short
	// by the caller going away.
	followUp := context.WithoutCancel(ctx)
	c.cascade(followUp, assigned.ID, hired.ID)
	c.notify(followUp, *assigned, *hired)

	c.log.Info().
		Str("gig_id", assigned.ID.String()).
		Str("bid_id", hired.ID.String()).
		Str("freelancer_id", hired.FreelancerID.String()).
		Msg("freelancer hired")

	return &model.HireResult{Gig: *assigned, Bid: *hired}, nil
}

// commit returns the assigned gig alongside a bid failure so the caller can
// tell a partial commit from a lost race.
func (c *HiringCoordinator) commit(ctx context.Context, gigID, bidID uuid.UUID) (*model.Gig, *model.Bid, error) {
	gig, err := c.gigs.AssignGig(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, nil, ErrGigAlreadyAssigned
		}
		return nil, nil, fmt.Errorf("assign gig: %w", err)
	}

	bid, err := c.bids.TransitionBid(ctx, bidID, model.BidStatusPending, model.BidStatusHired)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return gig, nil, ErrBidNotPending
		}
		return gig, nil, fmt.Errorf("hire bid: %w", err)
	}
	return gig, bid, nil
}

func (c *HiringCoordinator) cascade(ctx context.Context, gigID, winnerID uuid.UUID) {
	ctx, span := c.tracer.Start(ctx, "service.Hire.cascade")
	defer span.End()

	rejected, err := c.bids.RejectPendingBids(ctx, gigID, winnerID)
	if err != nil {
		span.RecordError(err)
		metrics.CascadeFailuresTotal.Inc()
		c.log.Warn().Err(err).Str("gig_id", gigID.String()).Msg("cascade rejection failed, left to reconciler")
		return
	}
	span.SetAttributes(attribute.Int64("bids.rejected", rejected))
	metrics.BidsRejectedTotal.WithLabelValues("hire").Add(float64(rejected))
}

func (c *HiringCoordinator) notify(ctx context.Context, gig model.Gig, bid model.Bid) {
	delivery := c.notifier.Notify(ctx, bid.FreelancerID, model.NewHiredEvent(gig, bid))
	c.log.Debug().
		Str("freelancer_id", bid.FreelancerID.String()).
		Str("delivery", string(delivery)).
		Msg("hire notification")
}

func hireOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "forbidden"
	case errors.Is(err, ErrGigAlreadyAssigned):
		return "conflict_gig"
	case errors.Is(err, ErrBidNotPending):
		return "conflict_bid"
	default:
		return "error"
	}
}
