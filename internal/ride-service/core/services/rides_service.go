package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	"ridehail/internal/ride-service/core/ports"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	opTimeout = 15 * time.Second

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// RidesService drives the ride lifecycle. Preconditions are checked
// synchronously, the store write is a conditional update, and broker
// fan-out happens only after the write is confirmed.
type RidesService struct {
	mylog    mylogger.Logger
	repo     ports.IRidesRepo
	broker   ports.IRidesBroker
	presence ports.IPresenceRegistry
	validate *validator.Validate
}

func NewRidesService(
	log mylogger.Logger,
	repo ports.IRidesRepo,
	broker ports.IRidesBroker,
	presence ports.IPresenceRegistry,
) ports.IRidesService {
	return &RidesService{
		mylog:    log,
		repo:     repo,
		broker:   broker,
		presence: presence,
		validate: validator.New(),
	}
}

func (rs *RidesService) CreateRide(ctx context.Context, riderId string, req dto.CreateRideRequest) (dto.RideDto, error) {
	log := rs.mylog.Action("CreateRide").With("rider_id", riderId)

	if riderId == "" {
		return dto.RideDto{}, fmt.Errorf("%w: missing rider id", myerrors.ErrInvalidInput)
	}
	if err := rs.validate.Struct(req); err != nil {
		return dto.RideDto{}, fmt.Errorf("%w: %v", myerrors.ErrInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pickup := model.Point{Latitude: *req.PickupLatitude, Longitude: *req.PickupLongitude, Address: req.PickupAddress}
	dropoff := model.Point{Latitude: *req.DropoffLatitude, Longitude: *req.DropoffLongitude, Address: req.DropoffAddress}

	distance, err := rs.repo.GetDistanceKm(ctx, pickup, dropoff)
	if err != nil {
		log.Error("cannot estimate route distance", err)
		return dto.RideDto{}, err
	}

	ridesToday, err := rs.repo.CountRidesToday(ctx)
	if err != nil {
		log.Error("cannot count today's rides", err)
		return dto.RideDto{}, err
	}

	now := time.Now()
	ride := &model.Ride{
		ID:          uuid.NewString(),
		RideNumber:  rideNumber(now, ridesToday+1),
		RiderId:     riderId,
		Status:      model.StatusRequested,
		Pickup:      pickup,
		Dropoff:     dropoff,
		Fare:        EstimateFare(distance),
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := rs.repo.CreateRide(ctx, ride); err != nil {
		log.Error("cannot persist ride", err)
		return dto.RideDto{}, err
	}
	metrics.RidesCreated.Inc()

	log.Info("ride created",
		"ride_id", ride.ID, "ride_number", ride.RideNumber,
		"fare_total", ride.Fare.Total, "distance_km", distance)

	// The ride is persisted; dispatch fan-out is best effort. A failed
	// publish leaves the ride visible at GET /rides/available.
	msg := messagebrokerdto.RideRequested{
		RideId:        ride.ID,
		RideNumber:    ride.RideNumber,
		RiderId:       ride.RiderId,
		Pickup:        ride.Pickup,
		Dropoff:       ride.Dropoff,
		FareTotal:     ride.Fare.Total,
		CorrelationID: correlationID(),
	}
	if err := rs.broker.PublishRideRequested(ctx, msg); err != nil {
		log.Error("cannot publish ride request", err, "ride_id", ride.ID)
	}

	return dto.FromRide(ride), nil
}

// AcceptRide is first-writer-wins. The conditional update in the store
// decides the race; the loser gets ErrRideUnavailable, never a state
// change on their side.
func (rs *RidesService) AcceptRide(ctx context.Context, rideId, driverId string) (dto.RideDto, error) {
	log := rs.mylog.Action("AcceptRide").With("ride_id", rideId, "driver_id", driverId)

	p, ok := rs.presence.Get(driverId)
	if !ok || p.Kind != model.KindDriver || !p.Available {
		return dto.RideDto{}, myerrors.ErrDriverNotAvailable
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := rs.repo.AcceptRide(ctx, rideId, driverId, time.Now())
	if err != nil {
		if errors.Is(err, myerrors.ErrRideUnavailable) {
			metrics.LostAcceptRaces.Inc()
			log.Info("lost accept race")
			return dto.RideDto{}, err
		}
		if !errors.Is(err, myerrors.ErrRideNotFound) {
			log.Error("accept failed", err)
		}
		return dto.RideDto{}, err
	}
	metrics.RidesAccepted.Inc()

	log.Info("ride accepted", "ride_number", ride.RideNumber)

	// Write confirmed; now retract the request from the other drivers and
	// tell the rider.
	if err := rs.broker.PublishRideRetracted(ctx, messagebrokerdto.RideRetracted{
		RideId:    ride.ID,
		ClaimedBy: driverId,
	}); err != nil {
		log.Error("cannot publish retraction", err)
	}
	rs.publishStatus(ctx, log, ride, "")

	return dto.FromRide(ride), nil
}

// UpdateStatus handles the assigned driver's start and complete calls.
func (rs *RidesService) UpdateStatus(ctx context.Context, rideId, driverId string, to model.Status) (dto.RideDto, error) {
	log := rs.mylog.Action("UpdateStatus").With("ride_id", rideId, "status", string(to))

	if to != model.StatusInProgress && to != model.StatusCompleted {
		return dto.RideDto{}, fmt.Errorf("%w: target %q", myerrors.ErrInvalidTransition, to)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := rs.repo.GetRide(ctx, rideId)
	if err != nil {
		return dto.RideDto{}, err
	}
	if ride.DriverId == "" || ride.DriverId != driverId {
		return dto.RideDto{}, myerrors.ErrForbidden
	}

	from := ride.Status
	now := time.Now()
	if err := model.ApplyTransition(ride, to, now); err != nil {
		return dto.RideDto{}, err
	}

	patch := ports.TransitionPatch{UpdatedAt: now}
	switch to {
	case model.StatusInProgress:
		patch.PickupTime = ride.PickupTime
	case model.StatusCompleted:
		patch.DropoffTime = ride.DropoffTime
		patch.FinalFare = &ride.FinalFare
	}

	updated, err := rs.repo.TransitionStatus(ctx, rideId, from, to, patch)
	if err != nil {
		return dto.RideDto{}, err
	}
	if to == model.StatusCompleted {
		metrics.RidesCompleted.Inc()
	}

	log.Info("ride status updated", "from", string(from))
	rs.publishStatus(ctx, log, updated, "")

	return dto.FromRide(updated), nil
}

// CancelRide is callable by the rider, the assigned driver, or an admin,
// from any non-terminal state.
func (rs *RidesService) CancelRide(ctx context.Context, rideId string, actor model.Actor, reason string) (dto.RideDto, error) {
	log := rs.mylog.Action("CancelRide").With("ride_id", rideId, "actor_id", actor.ID)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := rs.repo.GetRide(ctx, rideId)
	if err != nil {
		return dto.RideDto{}, err
	}
	if !canTouchRide(actor, ride) {
		return dto.RideDto{}, myerrors.ErrForbidden
	}

	from := ride.Status
	now := time.Now()
	if err := model.ApplyTransition(ride, model.StatusCancelled, now); err != nil {
		return dto.RideDto{}, err
	}

	patch := ports.TransitionPatch{
		CancelledAt:        ride.CancelledAt,
		CancellationReason: &reason,
		UpdatedAt:          now,
	}
	updated, err := rs.repo.TransitionStatus(ctx, rideId, from, model.StatusCancelled, patch)
	if err != nil {
		return dto.RideDto{}, err
	}
	updated.CancellationReason = reason
	metrics.RidesCancelled.Inc()

	log.Info("ride cancelled", "reason", reason, "was", string(from))

	if from == model.StatusRequested {
		// Still being broadcast: pull it from every driver's list.
		if err := rs.broker.PublishRideRetracted(ctx, messagebrokerdto.RideRetracted{RideId: updated.ID}); err != nil {
			log.Error("cannot publish retraction", err)
		}
	}
	rs.publishStatus(ctx, log, updated, reason)

	return dto.FromRide(updated), nil
}

func (rs *RidesService) GetRide(ctx context.Context, rideId string, actor model.Actor) (dto.RideDto, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := rs.repo.GetRide(ctx, rideId)
	if err != nil {
		return dto.RideDto{}, err
	}
	if !canTouchRide(actor, ride) {
		return dto.RideDto{}, myerrors.ErrForbidden
	}
	return dto.FromRide(ride), nil
}

// ListRides is actor-scoped: riders and drivers see their own history,
// admins see everything.
func (rs *RidesService) ListRides(ctx context.Context, actor model.Actor, q dto.ListRidesQuery) (dto.RideListDto, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	f := ports.RideFilter{
		Status: model.Status(q.Status),
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Status != "" && !f.Status.Valid() {
		return dto.RideListDto{}, fmt.Errorf("%w: unknown status %q", myerrors.ErrInvalidInput, q.Status)
	}

	switch actor.Role {
	case model.RoleRider:
		f.RiderId = actor.ID
	case model.RoleDriver:
		f.DriverId = actor.ID
	case model.RoleAdmin:
	default:
		return dto.RideListDto{}, myerrors.ErrForbidden
	}

	rides, total, err := rs.repo.ListRides(ctx, f)
	if err != nil {
		return dto.RideListDto{}, err
	}

	out := dto.RideListDto{
		Rides:      make([]dto.RideDto, 0, len(rides)),
		Page:       f.Page,
		Limit:      f.Limit,
		TotalItems: total,
	}
	for i := range rides {
		out.Rides = append(out.Rides, dto.FromRide(&rides[i]))
	}
	return out, nil
}

// AvailableRides is the driver's pull view of open requests, the HTTP
// fallback behind the websocket broadcast.
func (rs *RidesService) AvailableRides(ctx context.Context) ([]dto.RideDto, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rides, err := rs.repo.ListRequested(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RideDto, 0, len(rides))
	for i := range rides {
		out = append(out, dto.FromRide(&rides[i]))
	}
	return out, nil
}

// RateRide attaches the rider's rating. Ratings unlock only once the ride
// completed and can be set once.
func (rs *RidesService) RateRide(ctx context.Context, rideId, riderId string, req dto.RateRideRequest) (dto.RideDto, error) {
	log := rs.mylog.Action("RateRide").With("ride_id", rideId)

	if err := rs.validate.Struct(req); err != nil {
		return dto.RideDto{}, fmt.Errorf("%w: %v", myerrors.ErrInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := rs.repo.GetRide(ctx, rideId)
	if err != nil {
		return dto.RideDto{}, err
	}
	if ride.RiderId != riderId {
		return dto.RideDto{}, myerrors.ErrForbidden
	}
	if ride.Status != model.StatusCompleted || ride.Rating != nil {
		return dto.RideDto{}, myerrors.ErrRatingUnavailable
	}

	updated, err := rs.repo.SaveRating(ctx, rideId, model.Rating{Score: req.Score, Feedback: req.Feedback})
	if err != nil {
		log.Error("cannot save rating", err)
		return dto.RideDto{}, err
	}

	log.Info("ride rated", "score", req.Score)
	return dto.FromRide(updated), nil
}

func (rs *RidesService) publishStatus(ctx context.Context, log mylogger.Logger, ride *model.Ride, reason string) {
	msg := messagebrokerdto.RideStatus{
		RideId:        ride.ID,
		RideNumber:    ride.RideNumber,
		RiderId:       ride.RiderId,
		DriverId:      ride.DriverId,
		Status:        string(ride.Status),
		Timestamp:     ride.UpdatedAt.Format(time.RFC3339),
		Reason:        reason,
		CorrelationID: correlationID(),
	}
	if err := rs.broker.PublishRideStatus(ctx, msg); err != nil {
		log.Error("cannot publish status change", err, "ride_id", ride.ID)
	}
}

// canTouchRide: parties to the ride plus admins.
func canTouchRide(actor model.Actor, ride *model.Ride) bool {
	if actor.IsAdmin() {
		return true
	}
	switch actor.Role {
	case model.RoleRider:
		return ride.RiderId == actor.ID
	case model.RoleDriver:
		return ride.DriverId != "" && ride.DriverId == actor.ID
	}
	return false
}

// rideNumber is the human-facing reference, sequential per day.
func rideNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("RIDE_%s_%04d", now.Format("20060102"), seq)
}

func correlationID() string {
	return "req_" + uuid.NewString()[:8]
}
