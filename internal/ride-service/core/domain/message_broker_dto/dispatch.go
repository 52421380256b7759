// Package messagebrokerdto holds the messages the ride service publishes
// on the ride_topic exchange. The in-process dispatch consumer turns them
// into websocket fan-out.
package messagebrokerdto

import "ridehail/internal/ride-service/core/domain/model"

// Routing keys on the ride_topic exchange.
const (
	KeyRideRequested = "ride.request.new"
	KeyRideRetracted = "ride.request.retracted"
	KeyRideStatus    = "ride.status" // suffixed with the new status
)

type RideRequested struct {
	RideId        string      `json:"ride_id"`
	RideNumber    string      `json:"ride_number"`
	RiderId       string      `json:"rider_id"`
	Pickup        model.Point `json:"pickup"`
	Dropoff       model.Point `json:"dropoff"`
	FareTotal     float64     `json:"fare_total"`
	CorrelationID string      `json:"correlation_id"`
}

// RideRetracted tells drivers other than ClaimedBy that the request is
// gone. ClaimedBy is empty when the retraction comes from a cancel.
type RideRetracted struct {
	RideId    string `json:"ride_id"`
	ClaimedBy string `json:"claimed_by,omitempty"`
}

type RideStatus struct {
	RideId        string `json:"ride_id"`
	RideNumber    string `json:"ride_number"`
	RiderId       string `json:"rider_id"`
	DriverId      string `json:"driver_id,omitempty"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlation_id"`
}
