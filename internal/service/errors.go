package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
)

var (
	ErrBidNotFound = fmt.Errorf("bid %w", ErrNotFound)
	ErrGigNotFound = fmt.Errorf("gig %w", ErrNotFound)

	ErrGigAlreadyAssigned = fmt.Errorf("%w: gig already assigned", ErrConflict)
	ErrBidNotPending      = fmt.Errorf("%w: bid is not pending", ErrConflict)
)
