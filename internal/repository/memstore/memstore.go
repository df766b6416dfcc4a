// Package memstore is a process-local implementation of the gig and bid
// stores. Every conditional update runs under one mutex, which gives the
// same single-record compare-and-set semantics as the SQL repositories.
// It has no transactions, so hires against it always use the two-step
// protocol.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
	"github.com/nurpe/gigflow/internal/repository"
)

type Store struct {
	mu   sync.RWMutex
	gigs map[uuid.UUID]model.Gig
	bids map[uuid.UUID]model.Bid
	now  func() time.Time
	last time.Time
}

func New() *Store {
	return &Store{
		gigs: make(map[uuid.UUID]model.Gig),
		bids: make(map[uuid.UUID]model.Bid),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateGig(_ context.Context, gig model.Gig) (*model.Gig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gig.ID == uuid.Nil {
		gig.ID = uuid.New()
	}
	if _, exists := s.gigs[gig.ID]; exists {
		return nil, fmt.Errorf("gig %s already exists", gig.ID)
	}
	if gig.Status == "" {
		gig.Status = model.GigStatusOpen
	}
	now := s.stamp()
	gig.CreatedAt = now
	gig.UpdatedAt = now
	s.gigs[gig.ID] = gig
	return &gig, nil
}

func (s *Store) GetGig(_ context.Context, id uuid.UUID) (*model.Gig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gig, ok := s.gigs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &gig, nil
}

func (s *Store) ListOpenGigs(_ context.Context, search string) ([]model.Gig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	result := make([]model.Gig, 0, len(s.gigs))
	for _, gig := range s.gigs {
		if gig.Status != model.GigStatusOpen {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(gig.Title), needle) {
			continue
		}
		result = append(result, gig)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) AssignGig(_ context.Context, id uuid.UUID) (*model.Gig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gig, ok := s.gigs[id]
	if !ok || gig.Status != model.GigStatusOpen {
		return nil, repository.ErrStaleState
	}
	gig.Status = model.GigStatusAssigned
	gig.UpdatedAt = s.stamp()
	s.gigs[id] = gig
	return &gig, nil
}

func (s *Store) ListGigsNeedingCascade(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for _, gig := range s.sortedGigs(model.GigStatusAssigned) {
		hired, pending := s.countBids(gig.ID)
		if hired > 0 && pending > 0 {
			ids = append(ids, gig.ID)
		}
	}
	return ids, nil
}

func (s *Store) ListOrphanedAssignments(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for _, gig := range s.sortedGigs(model.GigStatusAssigned) {
		if hired, _ := s.countBids(gig.ID); hired == 0 {
			ids = append(ids, gig.ID)
		}
	}
	return ids, nil
}

func (s *Store) CreateBid(_ context.Context, bid model.Bid) (*model.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	if _, exists := s.bids[bid.ID]; exists {
		return nil, fmt.Errorf("bid %s already exists", bid.ID)
	}
	bid.Status = model.BidStatusPending
	now := s.stamp()
	bid.CreatedAt = now
	bid.UpdatedAt = now
	s.bids[bid.ID] = bid
	return &bid, nil
}

func (s *Store) GetBid(_ context.Context, id uuid.UUID) (*model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bid, ok := s.bids[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &bid, nil
}

func (s *Store) ListBidsByGig(_ context.Context, gigID uuid.UUID) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Bid, 0)
	for _, bid := range s.bids {
		if bid.GigID == gigID {
			result = append(result, bid)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) TransitionBid(_ context.Context, id uuid.UUID, from, to model.BidStatus) (*model.Bid, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", repository.ErrIllegalTransition, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bid, ok := s.bids[id]
	if !ok || bid.Status != from {
		return nil, repository.ErrStaleState
	}
	bid.Status = to
	bid.UpdatedAt = s.stamp()
	s.bids[id] = bid
	return &bid, nil
}

func (s *Store) RejectPendingBids(_ context.Context, gigID, exceptID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rejected int64
	now := s.stamp()
	for id, bid := range s.bids {
		if bid.GigID != gigID || id == exceptID || bid.Status != model.BidStatusPending {
			continue
		}
		bid.Status = model.BidStatusRejected
		bid.UpdatedAt = now
		s.bids[id] = bid
		rejected++
	}
	return rejected, nil
}

// stamp returns a timestamp strictly after every one handed out before, so
// newest-first ordering stays stable for records created back to back.
// Callers hold the write lock.
func (s *Store) stamp() time.Time {
	now := s.now()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func (s *Store) sortedGigs(status model.GigStatus) []model.Gig {
	gigs := make([]model.Gig, 0, len(s.gigs))
	for _, gig := range s.gigs {
		if gig.Status == status {
			gigs = append(gigs, gig)
		}
	}
	sort.Slice(gigs, func(i, j int) bool {
		return gigs[i].UpdatedAt.Before(gigs[j].UpdatedAt)
	})
	return gigs
}

func (s *Store) countBids(gigID uuid.UUID) (hired, pending int) {
	for _, bid := range s.bids {
		if bid.GigID != gigID {
			continue
		}
		switch bid.Status {
		case model.BidStatusHired:
			hired++
		case model.BidStatusPending:
			pending++
		}
	}
	return hired, pending
}
