package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to BidStatus
		allowed  bool
	}{
		{BidStatusPending, BidStatusHired, true},
		{BidStatusPending, BidStatusRejected, true},
		{BidStatusPending, BidStatusPending, false},
		{BidStatusHired, BidStatusRejected, false},
		{BidStatusHired, BidStatusPending, false},
		{BidStatusRejected, BidStatusHired, false},
		{BidStatusRejected, BidStatusPending, false},
		{BidStatus("withdrawn"), BidStatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBidStatusTerminal(t *testing.T) {
	assert.False(t, BidStatusPending.IsTerminal())
	assert.True(t, BidStatusHired.IsTerminal())
	assert.True(t, BidStatusRejected.IsTerminal())

	assert.True(t, BidStatusRejected.Valid())
	assert.False(t, BidStatus("").Valid())
}

func TestGigOwnership(t *testing.T) {
	owner := uuid.New()
	gig := Gig{OwnerID: owner, Status: GigStatusOpen}

	assert.True(t, gig.IsOpen())
	assert.True(t, gig.OwnedBy(owner))
	assert.False(t, gig.OwnedBy(uuid.New()))

	gig.Status = GigStatusAssigned
	assert.False(t, gig.IsOpen())
}

func TestNewHiredEventPayload(t *testing.T) {
	gig := Gig{ID: uuid.New(), Title: "Logo design"}
	bid := Bid{ID: uuid.New(), GigID: gig.ID}

	raw, err := json.Marshal(NewHiredEvent(gig, bid))
	require.NoError(t, err)

	var frame struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "hired", frame.Type)
	assert.Equal(t, bid.ID.String(), frame.Payload["bidId"])
	assert.Equal(t, gig.ID.String(), frame.Payload["gigId"])
	assert.Equal(t, "Logo design", frame.Payload["gigTitle"])
	assert.Equal(t, HiredMessage, frame.Payload["message"])
}

func TestPrincipalIsZero(t *testing.T) {
	assert.True(t, Principal{}.IsZero())
	assert.False(t, Principal{UserID: uuid.New()}.IsZero())
}
