package services

import (
	"testing"

	"ridehail/internal/ride-service/core/domain/model"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"
	websocketdto "ridehail/internal/ride-service/core/domain/websocket_dto"
)

type fakeChannel struct {
	newRequests []websocketdto.NewRideRequest
	retractions []websocketdto.RideUnavailable
	claimedBy   []string
	statuses    []websocketdto.RideStatusUpdate
	locations   []websocketdto.DriverLocation
}

func (f *fakeChannel) PublishNewRequest(m websocketdto.NewRideRequest) {
	f.newRequests = append(f.newRequests, m)
}

func (f *fakeChannel) RetractRequest(rideId, claimedBy string) {
	f.retractions = append(f.retractions, websocketdto.RideUnavailable{RideId: rideId})
	f.claimedBy = append(f.claimedBy, claimedBy)
}

func (f *fakeChannel) PublishStatusChange(riderId, driverId string, m websocketdto.RideStatusUpdate) {
	f.statuses = append(f.statuses, m)
}

func (f *fakeChannel) PublishLocation(senderId string, m websocketdto.DriverLocation) {
	f.locations = append(f.locations, m)
}

func TestDispatchMapsRequestToBroadcast(t *testing.T) {
	ch := &fakeChannel{}
	ds := NewDispatchService(testLogger(), ch)

	ds.HandleRideRequested(messagebrokerdto.RideRequested{
		RideId:     "r-1",
		RideNumber: "RIDE_20250601_0001",
		RiderId:    "rider-1",
		Pickup:     model.Point{Latitude: 43.23, Longitude: 76.88, Address: "A"},
		Dropoff:    model.Point{Latitude: 43.22, Longitude: 76.85, Address: "B"},
		FareTotal:  12.50,
	})

	if len(ch.newRequests) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(ch.newRequests))
	}
	got := ch.newRequests[0]
	if got.RideId != "r-1" || got.FareTotal != 12.50 || got.Pickup.Address != "A" {
		t.Errorf("broadcast = %+v", got)
	}
}

func TestDispatchMapsRetraction(t *testing.T) {
	ch := &fakeChannel{}
	ds := NewDispatchService(testLogger(), ch)

	ds.HandleRideRetracted(messagebrokerdto.RideRetracted{RideId: "r-1", ClaimedBy: "driver-1"})

	if len(ch.retractions) != 1 || ch.retractions[0].RideId != "r-1" {
		t.Fatalf("retractions = %+v", ch.retractions)
	}
	if ch.claimedBy[0] != "driver-1" {
		t.Errorf("claimedBy = %q, want driver-1", ch.claimedBy[0])
	}
}

func TestDispatchMapsStatusUpdate(t *testing.T) {
	ch := &fakeChannel{}
	ds := NewDispatchService(testLogger(), ch)

	ds.HandleRideStatus(messagebrokerdto.RideStatus{
		RideId:   "r-1",
		RiderId:  "rider-1",
		DriverId: "driver-1",
		Status:   "accepted",
		Reason:   "",
	})

	if len(ch.statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(ch.statuses))
	}
	if ch.statuses[0].Status != "accepted" || ch.statuses[0].DriverId != "driver-1" {
		t.Errorf("status update = %+v", ch.statuses[0])
	}
}
