package services

import (
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/ports"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"
	websocketdto "ridehail/internal/ride-service/core/domain/websocket_dto"
)

// DispatchService is the notifier between the bus and the event channel.
// It maps broker messages onto channel operations; eligibility itself
// (available drivers only, no ranking) lives in the channel fan-out.
type DispatchService struct {
	mylog   mylogger.Logger
	channel ports.IEventChannel
}

func NewDispatchService(log mylogger.Logger, channel ports.IEventChannel) *DispatchService {
	return &DispatchService{
		mylog:   log,
		channel: channel,
	}
}

func (ds *DispatchService) HandleRideRequested(m messagebrokerdto.RideRequested) {
	ds.mylog.Action("HandleRideRequested").Debug("broadcasting request",
		"ride_id", m.RideId, "correlation_id", m.CorrelationID)

	ds.channel.PublishNewRequest(websocketdto.NewRideRequest{
		RideId:     m.RideId,
		RideNumber: m.RideNumber,
		Pickup:     m.Pickup,
		Dropoff:    m.Dropoff,
		FareTotal:  m.FareTotal,
	})
}

func (ds *DispatchService) HandleRideRetracted(m messagebrokerdto.RideRetracted) {
	ds.channel.RetractRequest(m.RideId, m.ClaimedBy)
}

func (ds *DispatchService) HandleRideStatus(m messagebrokerdto.RideStatus) {
	ds.channel.PublishStatusChange(m.RiderId, m.DriverId, websocketdto.RideStatusUpdate{
		RideId:     m.RideId,
		RideNumber: m.RideNumber,
		Status:     m.Status,
		DriverId:   m.DriverId,
		Timestamp:  m.Timestamp,
		Reason:     m.Reason,
	})
}
