package dto

import (
	"time"

	"ridehail/internal/ride-service/core/domain/model"
)

type CreateRideRequest struct {
	PickupLatitude  *float64 `json:"pickup_latitude" validate:"required,latitude"`
	PickupLongitude *float64 `json:"pickup_longitude" validate:"required,longitude"`
	PickupAddress   string   `json:"pickup_address" validate:"required,max=255"`

	DropoffLatitude  *float64 `json:"dropoff_latitude" validate:"required,latitude"`
	DropoffLongitude *float64 `json:"dropoff_longitude" validate:"required,longitude"`
	DropoffAddress   string   `json:"dropoff_address" validate:"required,max=255"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in-progress completed"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type RateRideRequest struct {
	Score    int    `json:"score" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=1000"`
}

type ListRidesQuery struct {
	Status string
	Page   int
	Limit  int
}

// RideDto is the full ride entity every ride endpoint returns.
type RideDto struct {
	RideId     string       `json:"ride_id"`
	RideNumber string       `json:"ride_number"`
	RiderId    string       `json:"rider_id"`
	DriverId   string       `json:"driver_id,omitempty"`
	Status     model.Status `json:"status"`

	Pickup  model.Point `json:"pickup"`
	Dropoff model.Point `json:"dropoff"`

	Fare      model.Fare `json:"fare"`
	FinalFare float64    `json:"final_fare,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	PickupTime  *time.Time `json:"pickup_time,omitempty"`
	DropoffTime *time.Time `json:"dropoff_time,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CancellationReason string        `json:"cancellation_reason,omitempty"`
	Rating             *model.Rating `json:"rating,omitempty"`
}

func FromRide(r *model.Ride) RideDto {
	return RideDto{
		RideId:             r.ID,
		RideNumber:         r.RideNumber,
		RiderId:            r.RiderId,
		DriverId:           r.DriverId,
		Status:             r.Status,
		Pickup:             r.Pickup,
		Dropoff:            r.Dropoff,
		Fare:               r.Fare,
		FinalFare:          r.FinalFare,
		RequestedAt:        r.RequestedAt,
		AcceptedAt:         r.AcceptedAt,
		PickupTime:         r.PickupTime,
		DropoffTime:        r.DropoffTime,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
		Rating:             r.Rating,
	}
}

type RideListDto struct {
	Rides      []RideDto `json:"rides"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalItems int64     `json:"total_items"`
}
