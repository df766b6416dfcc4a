package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/gigflow/internal/model"
	"github.com/nurpe/gigflow/internal/realtime"
	"github.com/nurpe/gigflow/internal/repository/memstore"
	"github.com/nurpe/gigflow/internal/service"
)

var errStoreDown = errors.New("store unavailable")

type sentNotification struct {
	principalID uuid.UUID
	event       model.Event
	delivery    realtime.Delivery
}

// recordingNotifier forwards to a real dispatcher and remembers the outcome.
type recordingNotifier struct {
	next *realtime.Dispatcher

	mu   sync.Mutex
	sent []sentNotification
}

func newRecordingNotifier(registry realtime.Registry) *recordingNotifier {
	return &recordingNotifier{next: realtime.NewDispatcher(registry, zerolog.Nop())}
}

func (n *recordingNotifier) Notify(ctx context.Context, principalID uuid.UUID, event model.Event) realtime.Delivery {
	delivery := n.next.Notify(ctx, principalID, event)
	n.mu.Lock()
	n.sent = append(n.sent, sentNotification{principalID: principalID, event: event, delivery: delivery})
	n.mu.Unlock()
	return delivery
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type captureChannel struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *captureChannel) Send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureChannel) received() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.events...)
}

// brokenHire fails the pending -> hired update.
type brokenHire struct {
	service.BidStore
}

func (b brokenHire) TransitionBid(context.Context, uuid.UUID, model.BidStatus, model.BidStatus) (*model.Bid, error) {
	return nil, errStoreDown
}

// brokenCascade fails the bulk rejection.
type brokenCascade struct {
	service.BidStore
}

func (b brokenCascade) RejectPendingBids(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, errStoreDown
}

type marketplace struct {
	store   *memstore.Store
	owner   model.Principal
	gig     *model.Gig
	bids    []*model.Bid
	bidders []model.Principal
}

func principal() model.Principal {
	return model.Principal{UserID: uuid.New()}
}

// newMarketplace stores one open gig with the given number of pending bids.
func newMarketplace(t *testing.T, bids int) *marketplace {
	t.Helper()
	store := memstore.New()
	m := &marketplace{store: store, owner: principal()}
	m.gig, m.bids, m.bidders = seedGig(t, store, store, m.owner, bids)
	return m
}

func seedGig(t *testing.T, gigs service.GigStore, bids service.BidStore, owner model.Principal, count int) (*model.Gig, []*model.Bid, []model.Principal) {
	t.Helper()
	ctx := context.Background()

	gig, err := service.NewGigService(gigs).Create(ctx, service.CreateGigInput{
		Principal:   owner,
		Title:       "Build a landing page",
		Description: "Single page, responsive",
		Budget:      500,
	})
	require.NoError(t, err)

	bidService := service.NewBidService(gigs, bids)
	created := make([]*model.Bid, 0, count)
	bidders := make([]model.Principal, 0, count)
	for i := 0; i < count; i++ {
		bidder := principal()
		bid, err := bidService.Create(ctx, service.CreateBidInput{
			Principal: bidder,
			GigID:     gig.ID,
			Message:   "I can start tomorrow",
			Price:     float64(100 - i*10),
		})
		require.NoError(t, err)
		created = append(created, bid)
		bidders = append(bidders, bidder)
	}
	return gig, created, bidders
}

func bidStatus(t *testing.T, store service.BidStore, id uuid.UUID) model.BidStatus {
	t.Helper()
	bid, err := store.GetBid(context.Background(), id)
	require.NoError(t, err)
	return bid.Status
}

func gigStatus(t *testing.T, store service.GigStore, id uuid.UUID) model.GigStatus {
	t.Helper()
	gig, err := store.GetGig(context.Background(), id)
	require.NoError(t, err)
	return gig.Status
}
