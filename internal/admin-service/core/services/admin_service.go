package services

import (
	"context"
	"fmt"
	"time"

	"ridehail/internal/admin-service/core/domain/dto"
	"ridehail/internal/admin-service/core/ports"
	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"
	ridedto "ridehail/internal/ride-service/core/domain/dto"
	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	rideports "ridehail/internal/ride-service/core/ports"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// AdminService is the operator view over the same ride store the ride
// service writes to. Overrides go through the same conditional update,
// so an override racing a normal transition still resolves to one write.
type AdminService struct {
	mylog    mylogger.Logger
	overview ports.IOverviewRepo
	rides    rideports.IRidesRepo
	broker   rideports.IRidesBroker
}

func NewAdminService(
	log mylogger.Logger,
	overview ports.IOverviewRepo,
	rides rideports.IRidesRepo,
	broker rideports.IRidesBroker,
) ports.IAdminService {
	return &AdminService{
		mylog:    log,
		overview: overview,
		rides:    rides,
		broker:   broker,
	}
}

func (as *AdminService) Overview(ctx context.Context) (dto.OverviewDto, error) {
	return as.overview.GetOverview(ctx)
}

func (as *AdminService) ListRides(ctx context.Context, q ridedto.ListRidesQuery) (ridedto.RideListDto, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}

	f := rideports.RideFilter{Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		status := model.Status(q.Status)
		if !status.Valid() {
			return ridedto.RideListDto{}, fmt.Errorf("%w: unknown status %q", myerrors.ErrInvalidInput, q.Status)
		}
		f.Status = status
	}

	rides, total, err := as.rides.ListRides(ctx, f)
	if err != nil {
		return ridedto.RideListDto{}, err
	}

	out := ridedto.RideListDto{
		Rides:      make([]ridedto.RideDto, 0, len(rides)),
		Page:       q.Page,
		Limit:      q.Limit,
		TotalItems: total,
	}
	for i := range rides {
		out.Rides = append(out.Rides, ridedto.FromRide(&rides[i]))
	}
	return out, nil
}

func (as *AdminService) OverrideStatus(ctx context.Context, rideId string, to model.Status, driverId, reason string) (ridedto.RideDto, error) {
	log := as.mylog.Action("OverrideStatus").With("ride_id", rideId)

	if !to.Valid() || to == model.StatusRequested {
		return ridedto.RideDto{}, fmt.Errorf("%w: cannot override to %q", myerrors.ErrInvalidInput, to)
	}

	ride, err := as.rides.GetRide(ctx, rideId)
	if err != nil {
		return ridedto.RideDto{}, err
	}
	if ride.Status.Terminal() {
		return ridedto.RideDto{}, fmt.Errorf("%w: ride is already %s", myerrors.ErrInvalidTransition, ride.Status)
	}
	if ride.Status == to {
		return ridedto.RideDto{}, fmt.Errorf("%w: ride is already %s", myerrors.ErrInvalidTransition, to)
	}
	if driverId != "" && ride.DriverId != "" && ride.DriverId != driverId {
		return ridedto.RideDto{}, fmt.Errorf("%w: ride is already assigned to another driver", myerrors.ErrInvalidInput)
	}

	now := time.Now().UTC()
	patch := rideports.TransitionPatch{UpdatedAt: now}

	// Every non-cancelled status carries a driver; a forced move off an
	// unclaimed ride has to name one.
	if to != model.StatusCancelled && ride.DriverId == "" {
		if driverId == "" {
			return ridedto.RideDto{}, fmt.Errorf("%w: ride has no driver, driver_id is required to force %s", myerrors.ErrInvalidInput, to)
		}
		patch.DriverId = &driverId
	}

	// Skipped intermediate states still get their timestamps.
	switch to {
	case model.StatusAccepted:
		patch.AcceptedAt = &now
	case model.StatusInProgress:
		if ride.AcceptedAt == nil {
			patch.AcceptedAt = &now
		}
		patch.PickupTime = &now
	case model.StatusCompleted:
		if ride.AcceptedAt == nil {
			patch.AcceptedAt = &now
		}
		if ride.PickupTime == nil {
			patch.PickupTime = &now
		}
		patch.DropoffTime = &now
		finalFare := ride.Fare.Total
		patch.FinalFare = &finalFare
	case model.StatusCancelled:
		patch.CancelledAt = &now
		tagged := overrideReason(reason)
		patch.CancellationReason = &tagged
	}

	updated, err := as.rides.TransitionStatus(ctx, rideId, ride.Status, to, patch)
	if err != nil {
		return ridedto.RideDto{}, err
	}

	switch to {
	case model.StatusCompleted:
		metrics.RidesCompleted.Inc()
	case model.StatusCancelled:
		metrics.RidesCancelled.Inc()
	}

	if ride.Status == model.StatusRequested {
		retraction := messagebrokerdto.RideRetracted{RideId: rideId}
		if err := as.broker.PublishRideRetracted(ctx, retraction); err != nil {
			log.Error("cannot publish retraction", err)
		}
	}

	msg := messagebrokerdto.RideStatus{
		RideId:        updated.ID,
		RideNumber:    updated.RideNumber,
		RiderId:       updated.RiderId,
		DriverId:      updated.DriverId,
		Status:        string(updated.Status),
		Timestamp:     updated.UpdatedAt.Format(time.RFC3339),
		Reason:        overrideReason(reason),
		CorrelationID: "adm_" + uuid.NewString()[:8],
	}
	if err := as.broker.PublishRideStatus(ctx, msg); err != nil {
		log.Error("cannot publish status change", err)
	}

	log.Warn("ride status overridden", "from", ride.Status, "to", to, "reason", reason)
	return ridedto.FromRide(updated), nil
}

func overrideReason(reason string) string {
	if reason == "" {
		return "admin override"
	}
	return "admin override: " + reason
}
