package ports

import (
	websocketdto "ridehail/internal/ride-service/core/domain/websocket_dto"
)

// IEventChannel routes lifecycle and location events to exactly the
// parties that should see them. Delivery is best effort: a disconnected
// client misses events and recovers by re-fetching the ride over HTTP.
type IEventChannel interface {
	// PublishNewRequest fans the request out to every currently available,
	// connected driver.
	PublishNewRequest(req websocketdto.NewRideRequest)

	// RetractRequest tells drivers other than claimedBy that the request
	// is gone. Empty claimedBy retracts from everyone.
	RetractRequest(rideId, claimedBy string)

	// PublishStatusChange delivers to the ride topic plus the two parties'
	// actor topics, so a rider who has not joined the ride room yet still
	// hears about the accept.
	PublishStatusChange(riderId, driverId string, upd websocketdto.RideStatusUpdate)

	// PublishLocation forwards a location to the counterparty on the ride
	// topic only.
	PublishLocation(senderId string, loc websocketdto.DriverLocation)
}
