package repository

import "errors"

var (
	// ErrStaleState is returned when a conditional update matched no row
	// because the record is no longer in the expected state.
	ErrStaleState = errors.New("record is not in the expected state")
	// ErrIllegalTransition is returned for a status change the bid lifecycle forbids.
	ErrIllegalTransition = errors.New("illegal status transition")
)
