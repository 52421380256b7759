package model

import (
	"fmt"
	"time"

	"ridehail/internal/ride-service/core/myerrors"
)

// allowedTransitions is the ride lifecycle as an adjacency map. The two
// terminal states map to empty slices so any attempt out of them fails.
var allowedTransitions = map[Status][]Status{
	StatusRequested:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves the ride to the target status and records the
// timestamp owned by that transition. Each timestamp is written at most
// once, so a replayed transition cannot move time backwards.
func ApplyTransition(r *Ride, to Status, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", myerrors.ErrInvalidTransition, r.Status, to)
	}

	r.Status = to
	r.UpdatedAt = now

	switch to {
	case StatusAccepted:
		if r.AcceptedAt == nil {
			t := now
			r.AcceptedAt = &t
		}
	case StatusInProgress:
		if r.PickupTime == nil {
			t := now
			r.PickupTime = &t
		}
	case StatusCompleted:
		if r.DropoffTime == nil {
			t := now
			r.DropoffTime = &t
		}
		r.FinalFare = r.Fare.Total
	case StatusCancelled:
		if r.CancelledAt == nil {
			t := now
			r.CancelledAt = &t
		}
	}
	return nil
}
