package model

import (
	"time"

	"github.com/google/uuid"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusHired    BidStatus = "hired"
	BidStatusRejected BidStatus = "rejected"
)

// IsTerminal reports whether no further transition is possible from s.
func (s BidStatus) IsTerminal() bool {
	return s == BidStatusHired || s == BidStatusRejected
}

// CanTransitionTo reports whether s -> next is a legal bid transition.
// Only pending bids move, and only to hired or rejected.
func (s BidStatus) CanTransitionTo(next BidStatus) bool {
	if s != BidStatusPending {
		return false
	}
	return next == BidStatusHired || next == BidStatusRejected
}

func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusPending, BidStatusHired, BidStatusRejected:
		return true
	}
	return false
}

type Bid struct {
	ID           uuid.UUID `json:"id"`
	GigID        uuid.UUID `json:"gigId"`
	FreelancerID uuid.UUID `json:"freelancerId"`
	Message      string    `json:"message"`
	Price        float64   `json:"price"`
	Status       BidStatus `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HireResult is the committed outcome of a hire: the assigned gig and the hired bid.
type HireResult struct {
	Gig Gig `json:"gig"`
	Bid Bid `json:"bid"`
}
