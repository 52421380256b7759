package myerrors

import "errors"

var (
	// ErrRideNotFound: the referenced ride id does not exist. Terminal,
	// clients should not retry.
	ErrRideNotFound = errors.New("ride not found")

	// ErrRideUnavailable: an accept attempt lost the claim race. Distinct
	// from not-found so the losing driver's client removes the entry from
	// its list instead of retrying.
	ErrRideUnavailable = errors.New("ride no longer available")

	// ErrInvalidTransition: the requested transition's precondition failed;
	// the ride state is unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden: the caller is not a party allowed to perform the
	// operation.
	ErrForbidden = errors.New("actor not allowed")

	// ErrDriverNotAvailable: an accept attempt by a driver who is not
	// currently marked available.
	ErrDriverNotAvailable = errors.New("driver not available")

	ErrInvalidInput      = errors.New("invalid input")
	ErrRatingUnavailable = errors.New("ride cannot be rated")
)
