package ws

import "errors"

var (
	errFirstFrameNotAuth  = errors.New("first frame must be an auth event")
	errTokenActorMismatch = errors.New("token does not match connection actor")
	errNotRideParty       = errors.New("actor is not a party to the ride")
)
