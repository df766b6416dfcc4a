package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
)

const bidColumns = `
			id,
			gig_id,
			freelancer_id,
			message,
			price,
			status,
			created_at,
			updated_at`

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) CreateBid(ctx context.Context, bid model.Bid) (*model.Bid, error) {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	bid.Status = model.BidStatusPending
	now := time.Now().UTC()
	bid.CreatedAt = now
	bid.UpdatedAt = now

	err := conn(ctx, r.db).Exec(`
		INSERT INTO bids (id, gig_id, freelancer_id, message, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		bid.ID,
		bid.GigID,
		bid.FreelancerID,
		bid.Message,
		bid.Price,
		bid.Status,
		bid.CreatedAt,
		bid.UpdatedAt,
	).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) GetBid(ctx context.Context, id uuid.UUID) (*model.Bid, error) {
	var bid model.Bid
	err := conn(ctx, r.db).Raw(`
		SELECT`+bidColumns+`
		FROM bids
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&bid).Error
	if err != nil {
		return nil, err
	}
	if bid.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &bid, nil
}

// ListBidsByGig returns every bid of the gig, newest first.
func (r *BidRepository) ListBidsByGig(ctx context.Context, gigID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	err := conn(ctx, r.db).Raw(`
		SELECT`+bidColumns+`
		FROM bids
		WHERE gig_id = ?
		ORDER BY created_at DESC
	`, gigID).Scan(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// TransitionBid moves a bid from one status to another only if it is still in
// the expected status.
func (r *BidRepository) TransitionBid(ctx context.Context, id uuid.UUID, from, to model.BidStatus) (*model.Bid, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	res := conn(ctx, r.db).Exec(`
		UPDATE bids
		SET
			status = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, to, time.Now().UTC(), id, from)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleState
	}
	return r.GetBid(ctx, id)
}

// RejectPendingBids rejects every pending bid of the gig except exceptID and
// returns how many were rejected. Pass uuid.Nil to reject all of them.
func (r *BidRepository) RejectPendingBids(ctx context.Context, gigID, exceptID uuid.UUID) (int64, error) {
	res := conn(ctx, r.db).Exec(`
		UPDATE bids
		SET
			status = ?,
			updated_at = ?
		WHERE gig_id = ? AND status = ? AND id <> ?
	`, model.BidStatusRejected, time.Now().UTC(), gigID, model.BidStatusPending, exceptID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
