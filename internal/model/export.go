package model

import "time"

// BidSheet is the data behind a gig owner's bids workbook.
type BidSheet struct {
	Gig         Gig
	Bids        []Bid
	GeneratedAt time.Time
}

// HireConfirmation is the data behind the hire confirmation document.
type HireConfirmation struct {
	Gig      Gig
	Bid      Bid
	IssuedAt time.Time
}
