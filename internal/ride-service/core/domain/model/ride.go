package model

import "time"

type Status string

const (
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Point is a geographic position plus the human-readable address shown to
// both parties.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Fare is the structured breakdown computed once at ride creation. Total
// is copied to FinalFare on completion; only an admin override may change
// it afterwards.
type Fare struct {
	Base         float64 `json:"base"`
	DistanceFare float64 `json:"distance_fare"`
	TimeFare     float64 `json:"time_fare"`
	Total        float64 `json:"total"`
}

type Rating struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

// Ride is one trip request from creation to terminal state. DriverId is
// empty until a driver claims the ride; each timestamp is set exactly once
// by the transition that reaches the corresponding state.
type Ride struct {
	ID         string
	RideNumber string
	RiderId    string
	DriverId   string
	Status     Status

	Pickup  Point
	Dropoff Point

	Fare      Fare
	FinalFare float64

	RequestedAt time.Time
	AcceptedAt  *time.Time
	PickupTime  *time.Time
	DropoffTime *time.Time
	CancelledAt *time.Time

	CancellationReason string
	Rating             *Rating

	CreatedAt time.Time
	UpdatedAt time.Time
}
