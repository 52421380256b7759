package model

import "time"

type ActorKind string

const (
	KindRider  ActorKind = "rider"
	KindDriver ActorKind = "driver"
)

func (k ActorKind) Valid() bool {
	return k == KindRider || k == KindDriver
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Presence is an actor's transient state. It lives only in memory and only
// the owning actor's connection writes it; the event channel and dispatch
// notifier read it for routing.
type Presence struct {
	ActorID     string
	Kind        ActorKind
	Available   bool
	Location    *Coordinates
	ConnectedAt time.Time
	UpdatedAt   time.Time
}
