package ports

import (
	"context"

	"ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
)

type IRidesService interface {
	CreateRide(ctx context.Context, riderId string, req dto.CreateRideRequest) (dto.RideDto, error)
	AcceptRide(ctx context.Context, rideId, driverId string) (dto.RideDto, error)
	UpdateStatus(ctx context.Context, rideId, driverId string, to model.Status) (dto.RideDto, error)
	CancelRide(ctx context.Context, rideId string, actor model.Actor, reason string) (dto.RideDto, error)
	GetRide(ctx context.Context, rideId string, actor model.Actor) (dto.RideDto, error)
	ListRides(ctx context.Context, actor model.Actor, q dto.ListRidesQuery) (dto.RideListDto, error)
	AvailableRides(ctx context.Context) ([]dto.RideDto, error)
	RateRide(ctx context.Context, rideId, riderId string, req dto.RateRideRequest) (dto.RideDto, error)
}
