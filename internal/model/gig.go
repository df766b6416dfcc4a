package model

import (
	"time"

	"github.com/google/uuid"
)

type GigStatus string

const (
	GigStatusOpen     GigStatus = "open"
	GigStatusAssigned GigStatus = "assigned"
)

type Gig struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      float64   `json:"budget"`
	Status      GigStatus `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (g *Gig) IsOpen() bool {
	return g.Status == GigStatusOpen
}

func (g *Gig) OwnedBy(principalID uuid.UUID) bool {
	return g.OwnerID == principalID
}
