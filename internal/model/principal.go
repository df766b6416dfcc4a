package model

import "github.com/google/uuid"

// Principal is the authenticated caller as extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

func (p Principal) IsZero() bool {
	return p.UserID == uuid.Nil
}
