package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/gigflow/internal/model"
	"github.com/nurpe/gigflow/internal/realtime"
)

// GigStore is the gig half of the persistent store. AssignGig is a
// compare-and-set: it fails with repository.ErrStaleState unless the gig is
// still open.
type GigStore interface {
	CreateGig(ctx context.Context, gig model.Gig) (*model.Gig, error)
	GetGig(ctx context.Context, id uuid.UUID) (*model.Gig, error)
	ListOpenGigs(ctx context.Context, search string) ([]model.Gig, error)
	AssignGig(ctx context.Context, id uuid.UUID) (*model.Gig, error)
	ListGigsNeedingCascade(ctx context.Context) ([]uuid.UUID, error)
	ListOrphanedAssignments(ctx context.Context) ([]uuid.UUID, error)
}

// BidStore is the bid half of the persistent store. TransitionBid is a
// compare-and-set on the bid status.
type BidStore interface {
	CreateBid(ctx context.Context, bid model.Bid) (*model.Bid, error)
	GetBid(ctx context.Context, id uuid.UUID) (*model.Bid, error)
	ListBidsByGig(ctx context.Context, gigID uuid.UUID) ([]model.Bid, error)
	TransitionBid(ctx context.Context, id uuid.UUID, from, to model.BidStatus) (*model.Bid, error)
	RejectPendingBids(ctx context.Context, gigID, exceptID uuid.UUID) (int64, error)
}

// Transactor is implemented by stores that can run several writes atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Notifier interface {
	Notify(ctx context.Context, principalID uuid.UUID, event model.Event) realtime.Delivery
}
