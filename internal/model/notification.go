package model

import "github.com/google/uuid"

type EventType string

const (
	EventTypeHired EventType = "hired"
)

const HiredMessage = "You have been hired!"

// Event is the frame pushed to a connected principal.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type HiredPayload struct {
	BidID    uuid.UUID `json:"bidId"`
	GigID    uuid.UUID `json:"gigId"`
	GigTitle string    `json:"gigTitle"`
	Message  string    `json:"message"`
}

func NewHiredEvent(gig Gig, bid Bid) Event {
	return Event{
		Type: EventTypeHired,
		Payload: HiredPayload{
			BidID:    bid.ID,
			GigID:    gig.ID,
			GigTitle: gig.Title,
			Message:  HiredMessage,
		},
	}
}
