package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
)

type BidService struct {
	gigs GigStore
	bids BidStore
}

func NewBidService(gigs GigStore, bids BidStore) *BidService {
	return &BidService{gigs: gigs, bids: bids}
}

type CreateBidInput struct {
	Principal model.Principal
	GigID     uuid.UUID
	Message   string
	Price     float64
}

// Create places a pending bid. The gig must be open; a bid that slips in
// while a hire is committing is rejected later by the reconciler.
func (s *BidService) Create(ctx context.Context, input CreateBidInput) (*model.Bid, error) {
	if input.Principal.IsZero() {
		return nil, ErrPermissionDenied
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if input.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	gig, err := s.gigs.GetGig(ctx, input.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	if !gig.IsOpen() {
		return nil, fmt.Errorf("%w: gig not open for bids", ErrInvalidInput)
	}
	if gig.OwnedBy(input.Principal.UserID) {
		return nil, fmt.Errorf("%w: cannot bid on own gig", ErrPermissionDenied)
	}

	return s.bids.CreateBid(ctx, model.Bid{
		GigID:        gig.ID,
		FreelancerID: input.Principal.UserID,
		Message:      message,
		Price:        input.Price,
	})
}

// ListForGig returns the gig's bids, newest first. Only the owner may see them.
func (s *BidService) ListForGig(ctx context.Context, principal model.Principal, gigID uuid.UUID) ([]model.Bid, error) {
	gig, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	if !gig.OwnedBy(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return s.bids.ListBidsByGig(ctx, gig.ID)
}
