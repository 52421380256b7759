package ports

import (
	"context"
	"time"

	"ridehail/internal/ride-service/core/domain/model"
)

type RideFilter struct {
	RiderId  string
	DriverId string
	Status   model.Status
	Page     int
	Limit    int
}

// TransitionPatch carries the fields a lifecycle transition writes
// alongside the status. Nil fields are left untouched.
type TransitionPatch struct {
	DriverId           *string
	AcceptedAt         *time.Time
	PickupTime         *time.Time
	DropoffTime        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
	FinalFare          *float64
	UpdatedAt          time.Time
}

// IRidesRepo is the ride entity store. AcceptRide and TransitionStatus are
// conditional updates: they succeed only if the stored status still equals
// the expected one, which is what makes the accept race resolve to exactly
// one winner.
type IRidesRepo interface {
	CreateRide(ctx context.Context, r *model.Ride) error
	GetRide(ctx context.Context, rideId string) (*model.Ride, error)
	ListRides(ctx context.Context, f RideFilter) ([]model.Ride, int64, error)
	ListRequested(ctx context.Context) ([]model.Ride, error)
	CountRidesToday(ctx context.Context) (int64, error)
	GetDistanceKm(ctx context.Context, pickup, dropoff model.Point) (float64, error)

	// AcceptRide sets driver and status accepted only while the ride is
	// still requested. Returns myerrors.ErrRideUnavailable when the ride
	// exists but was already claimed or left the requested state, and
	// myerrors.ErrRideNotFound when it does not exist.
	AcceptRide(ctx context.Context, rideId, driverId string, at time.Time) (*model.Ride, error)

	// TransitionStatus applies "set status to `to` only if current status
	// is `from`" plus the patch. Returns myerrors.ErrInvalidTransition when
	// the conditional write matches no row but the ride exists.
	TransitionStatus(ctx context.Context, rideId string, from, to model.Status, p TransitionPatch) (*model.Ride, error)

	SaveRating(ctx context.Context, rideId string, rating model.Rating) (*model.Ride, error)

	// GetRideParties is the lightweight lookup used to gate ride-topic
	// subscriptions.
	GetRideParties(ctx context.Context, rideId string) (riderId, driverId string, err error)
}
