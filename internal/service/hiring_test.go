package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/gigflow/internal/model"
	"github.com/nurpe/gigflow/internal/realtime"
	"github.com/nurpe/gigflow/internal/repository"
	"github.com/nurpe/gigflow/internal/service"
	"github.com/nurpe/gigflow/internal/testutil"
)

func newCoordinator(m *marketplace, registry realtime.Registry, bids service.BidStore) (*service.HiringCoordinator, *recordingNotifier) {
	notifier := newRecordingNotifier(registry)
	if bids == nil {
		bids = m.store
	}
	return service.NewHiringCoordinator(m.store, bids, notifier, zerolog.Nop()), notifier
}

func TestHireClosesGigRejectsOthersAndNotifies(t *testing.T) {
	m := newMarketplace(t, 2)
	registry := realtime.NewConnectionRegistry()
	winnerChannel := &captureChannel{}
	registry.Register(m.bidders[0].UserID, winnerChannel)
	coordinator, notifier := newCoordinator(m, registry, nil)
	ctx := context.Background()

	result, err := coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.GigStatusAssigned, result.Gig.Status)
	assert.Equal(t, model.BidStatusHired, result.Bid.Status)
	assert.Equal(t, m.bids[0].ID, result.Bid.ID)

	assert.Equal(t, model.GigStatusAssigned, gigStatus(t, m.store, m.gig.ID))
	assert.Equal(t, model.BidStatusHired, bidStatus(t, m.store, m.bids[0].ID))
	assert.Equal(t, model.BidStatusRejected, bidStatus(t, m.store, m.bids[1].ID))

	events := winnerChannel.received()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventTypeHired, events[0].Type)
	assert.Equal(t, model.HiredPayload{
		BidID:    m.bids[0].ID,
		GigID:    m.gig.ID,
		GigTitle: m.gig.Title,
		Message:  model.HiredMessage,
	}, events[0].Payload)

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, m.bidders[0].UserID, sent[0].principalID)
	assert.Equal(t, realtime.Delivered, sent[0].delivery)

	// hiring the rejected competitor afterwards changes nothing
	_, err = coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: m.bids[1].ID})
	assert.ErrorIs(t, err, service.ErrGigAlreadyAssigned)
	assert.Equal(t, model.BidStatusRejected, bidStatus(t, m.store, m.bids[1].ID))
	assert.Equal(t, model.GigStatusAssigned, gigStatus(t, m.store, m.gig.ID))
	assert.Len(t, notifier.all(), 1)
}

func TestHireSingleWinnerUnderConcurrency(t *testing.T) {
	const bidders = 16
	m := newMarketplace(t, bidders)
	coordinator, _ := newCoordinator(m, realtime.NewConnectionRegistry(), nil)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, bidders)
	)
	for i := range m.bids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = coordinator.Hire(context.Background(), service.HireInput{
				Principal: m.owner,
				BidID:     m.bids[i].ID,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, service.ErrGigAlreadyAssigned)
	}
	assert.Equal(t, 1, winners)

	hired := 0
	for _, bid := range m.bids {
		switch bidStatus(t, m.store, bid.ID) {
		case model.BidStatusHired:
			hired++
		case model.BidStatusRejected:
		default:
			t.Fatalf("bid %s left pending", bid.ID)
		}
	}
	assert.Equal(t, 1, hired)
	assert.Equal(t, model.GigStatusAssigned, gigStatus(t, m.store, m.gig.ID))
}

func TestHireSameBidConcurrently(t *testing.T) {
	m := newMarketplace(t, 1)
	coordinator, notifier := newCoordinator(m, realtime.NewConnectionRegistry(), nil)

	const attempts = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = coordinator.Hire(context.Background(), service.HireInput{
				Principal: m.owner,
				BidID:     m.bids[0].ID,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, service.ErrConflict)
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, notifier.all(), 1)
}

func TestHireTerminalBids(t *testing.T) {
	m := newMarketplace(t, 2)
	coordinator, _ := newCoordinator(m, realtime.NewConnectionRegistry(), nil)
	ctx := context.Background()

	_, err := coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	require.NoError(t, err)

	_, err = coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	assert.ErrorIs(t, err, service.ErrBidNotPending)
	assert.Equal(t, model.BidStatusHired, bidStatus(t, m.store, m.bids[0].ID))

	_, err = coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: m.bids[1].ID})
	assert.ErrorIs(t, err, service.ErrGigAlreadyAssigned)
	assert.Equal(t, model.BidStatusRejected, bidStatus(t, m.store, m.bids[1].ID))
}

func TestHireAuthorization(t *testing.T) {
	m := newMarketplace(t, 2)
	coordinator, notifier := newCoordinator(m, realtime.NewConnectionRegistry(), nil)
	ctx := context.Background()

	for name, caller := range map[string]model.Principal{
		"stranger": principal(),
		"bidder":   m.bidders[0],
		"nobody":   {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := coordinator.Hire(ctx, service.HireInput{Principal: caller, BidID: m.bids[0].ID})
			assert.ErrorIs(t, err, service.ErrPermissionDenied)
		})
	}

	assert.Equal(t, model.GigStatusOpen, gigStatus(t, m.store, m.gig.ID))
	for _, bid := range m.bids {
		assert.Equal(t, model.BidStatusPending, bidStatus(t, m.store, bid.ID))
	}
	assert.Empty(t, notifier.all())
}

func TestHireNotFound(t *testing.T) {
	m := newMarketplace(t, 1)
	coordinator, _ := newCoordinator(m, realtime.NewConnectionRegistry(), nil)
	ctx := context.Background()

	_, err := coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: uuid.New()})
	assert.ErrorIs(t, err, service.ErrBidNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)

	dangling, err := m.store.CreateBid(ctx, model.Bid{GigID: uuid.New(), FreelancerID: uuid.New(), Message: "m", Price: 1})
	require.NoError(t, err)
	_, err = coordinator.Hire(ctx, service.HireInput{Principal: m.owner, BidID: dangling.ID})
	assert.ErrorIs(t, err, service.ErrGigNotFound)
}

func TestHireSucceedsWhenFreelancerOffline(t *testing.T) {
	m := newMarketplace(t, 1)
	coordinator, notifier := newCoordinator(m, realtime.NewConnectionRegistry(), nil)

	_, err := coordinator.Hire(context.Background(), service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	require.NoError(t, err)

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, realtime.Skipped, sent[0].delivery)
}

func TestHireCascadeFailureDoesNotFailHire(t *testing.T) {
	m := newMarketplace(t, 3)
	coordinator, notifier := newCoordinator(m, realtime.NewConnectionRegistry(), brokenCascade{BidStore: m.store})

	result, err := coordinator.Hire(context.Background(), service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusHired, result.Bid.Status)

	// competitors stay pending until the reconciler sweeps them
	assert.Equal(t, model.BidStatusPending, bidStatus(t, m.store, m.bids[1].ID))
	assert.Equal(t, model.BidStatusPending, bidStatus(t, m.store, m.bids[2].ID))
	assert.Len(t, notifier.all(), 1)

	ids, err := m.store.ListGigsNeedingCascade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{m.gig.ID}, ids)
}

func TestHireTwoStepLeavesGigAssignedWhenBidUpdateFails(t *testing.T) {
	m := newMarketplace(t, 2)
	coordinator, notifier := newCoordinator(m, realtime.NewConnectionRegistry(), brokenHire{BidStore: m.store})

	_, err := coordinator.Hire(context.Background(), service.HireInput{Principal: m.owner, BidID: m.bids[0].ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, errors.Is(err, service.ErrConflict))

	assert.Equal(t, model.GigStatusAssigned, gigStatus(t, m.store, m.gig.ID))
	assert.Equal(t, model.BidStatusPending, bidStatus(t, m.store, m.bids[0].ID))
	assert.Equal(t, model.BidStatusPending, bidStatus(t, m.store, m.bids[1].ID))
	assert.Empty(t, notifier.all())

	orphaned, err := m.store.ListOrphanedAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{m.gig.ID}, orphaned)
}

func TestHireAtomicCommitRollsBackGig(t *testing.T) {
	database := testutil.SQLite(t)
	gigs := repository.NewGigRepository(database)
	bids := repository.NewBidRepository(database)
	owner := principal()
	gig, seeded, _ := seedGig(t, gigs, bids, owner, 2)

	notifier := newRecordingNotifier(realtime.NewConnectionRegistry())
	coordinator := service.NewHiringCoordinator(gigs, brokenHire{BidStore: bids}, notifier, zerolog.Nop(),
		service.WithTransactor(repository.NewTxManager(database)))

	_, err := coordinator.Hire(context.Background(), service.HireInput{Principal: owner, BidID: seeded[0].ID})
	require.ErrorIs(t, err, errStoreDown)

	assert.Equal(t, model.GigStatusOpen, gigStatus(t, gigs, gig.ID))
	assert.Equal(t, model.BidStatusPending, bidStatus(t, bids, seeded[0].ID))
	assert.Empty(t, notifier.all())

	// the gig is still hireable once the store recovers
	healthy := service.NewHiringCoordinator(gigs, bids, notifier, zerolog.Nop(),
		service.WithTransactor(repository.NewTxManager(database)))
	result, err := healthy.Hire(context.Background(), service.HireInput{Principal: owner, BidID: seeded[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.GigStatusAssigned, result.Gig.Status)
	assert.Equal(t, model.BidStatusRejected, bidStatus(t, bids, seeded[1].ID))
}

func TestHireAtomicCommitSingleWinner(t *testing.T) {
	database := testutil.SQLite(t)
	gigs := repository.NewGigRepository(database)
	bids := repository.NewBidRepository(database)
	owner := principal()
	gig, seeded, _ := seedGig(t, gigs, bids, owner, 6)

	coordinator := service.NewHiringCoordinator(gigs, bids, newRecordingNotifier(realtime.NewConnectionRegistry()), zerolog.Nop(),
		service.WithTransactor(repository.NewTxManager(database)))

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(seeded))
	)
	for i := range seeded {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = coordinator.Hire(context.Background(), service.HireInput{Principal: owner, BidID: seeded[i].ID})
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, service.ErrGigAlreadyAssigned)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, model.GigStatusAssigned, gigStatus(t, gigs, gig.ID))

	listed, err := bids.ListBidsByGig(context.Background(), gig.ID)
	require.NoError(t, err)
	hired := 0
	for _, bid := range listed {
		assert.NotEqual(t, model.BidStatusPending, bid.Status)
		if bid.Status == model.BidStatusHired {
			hired++
		}
	}
	assert.Equal(t, 1, hired)
}
