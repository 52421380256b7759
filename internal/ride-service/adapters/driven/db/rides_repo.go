package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	"ridehail/internal/ride-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type RidesRepo struct {
	db *DB
}

func NewRidesRepo(db *DB) ports.IRidesRepo {
	return &RidesRepo{db: db}
}

const rideColumns = `
	ride_id, ride_number, rider_id, driver_id, status,
	pickup_latitude, pickup_longitude, pickup_address,
	dropoff_latitude, dropoff_longitude, dropoff_address,
	fare_base, fare_distance, fare_time, fare_total, final_fare,
	requested_at, accepted_at, pickup_time, dropoff_time, cancelled_at,
	cancellation_reason, rating_score, rating_feedback,
	created_at, updated_at`

func (rr *RidesRepo) CreateRide(ctx context.Context, r *model.Ride) error {
	q := `
	INSERT INTO rides (
		ride_id, ride_number, rider_id, status,
		pickup_latitude, pickup_longitude, pickup_address,
		dropoff_latitude, dropoff_longitude, dropoff_address,
		fare_base, fare_distance, fare_time, fare_total,
		requested_at, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := rr.db.pool.Exec(ctx, q,
		r.ID, r.RideNumber, r.RiderId, r.Status,
		r.Pickup.Latitude, r.Pickup.Longitude, r.Pickup.Address,
		r.Dropoff.Latitude, r.Dropoff.Longitude, r.Dropoff.Address,
		r.Fare.Base, r.Fare.DistanceFare, r.Fare.TimeFare, r.Fare.Total,
		r.RequestedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (rr *RidesRepo) GetRide(ctx context.Context, rideId string) (*model.Ride, error) {
	q := `SELECT ` + rideColumns + ` FROM rides WHERE ride_id = $1`

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q, rideId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, myerrors.ErrRideNotFound
		}
		return nil, fmt.Errorf("select ride: %w", err)
	}
	return ride, nil
}

func (rr *RidesRepo) ListRides(ctx context.Context, f ports.RideFilter) ([]model.Ride, int64, error) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RiderId != "" {
		where = append(where, "rider_id = "+arg(f.RiderId))
	}
	if f.DriverId != "" {
		where = append(where, "driver_id = "+arg(f.DriverId))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := rr.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rides WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rides: %w", err)
	}

	q := `SELECT ` + rideColumns + ` FROM rides WHERE ` + cond +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg((f.Page-1)*f.Limit)

	rows, err := rr.db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select rides: %w", err)
	}
	defer rows.Close()

	var rides []model.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, *ride)
	}
	return rides, total, rows.Err()
}

func (rr *RidesRepo) ListRequested(ctx context.Context) ([]model.Ride, error) {
	q := `SELECT ` + rideColumns + ` FROM rides WHERE status = 'requested' ORDER BY requested_at`

	rows, err := rr.db.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select requested rides: %w", err)
	}
	defer rows.Close()

	var rides []model.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

func (rr *RidesRepo) CountRidesToday(ctx context.Context) (int64, error) {
	q := `SELECT COUNT(*) FROM rides WHERE created_at::date = current_date`

	var count int64
	if err := rr.db.pool.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count today's rides: %w", err)
	}
	return count, nil
}

func (rr *RidesRepo) GetDistanceKm(ctx context.Context, pickup, dropoff model.Point) (float64, error) {
	q := `SELECT ST_Distance(ST_MakePoint($1, $2)::geography, ST_MakePoint($3, $4)::geography) / 1000`

	var distance float64
	err := rr.db.pool.QueryRow(ctx, q,
		pickup.Longitude, pickup.Latitude,
		dropoff.Longitude, dropoff.Latitude,
	).Scan(&distance)
	if err != nil {
		return 0, fmt.Errorf("estimate distance: %w", err)
	}
	return distance, nil
}

// AcceptRide is the claim race's single conditional write: the row updates
// only while it is still requested and unassigned, so exactly one of two
// concurrent accepts matches.
func (rr *RidesRepo) AcceptRide(ctx context.Context, rideId, driverId string, at time.Time) (*model.Ride, error) {
	q := `
	UPDATE rides
	SET driver_id = $2, status = 'accepted', accepted_at = $3, updated_at = $3
	WHERE ride_id = $1 AND status = 'requested' AND driver_id IS NULL
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q, rideId, driverId, at))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("accept ride: %w", err)
	}
	return nil, rr.classifyMiss(ctx, rideId, myerrors.ErrRideUnavailable)
}

// TransitionStatus applies "set status to `to` only if current status is
// `from`" plus the transition's timestamp patch.
func (rr *RidesRepo) TransitionStatus(ctx context.Context, rideId string, from, to model.Status, p ports.TransitionPatch) (*model.Ride, error) {
	q := `
	UPDATE rides
	SET status = $3,
		driver_id = COALESCE($4, driver_id),
		accepted_at = COALESCE($5, accepted_at),
		pickup_time = COALESCE($6, pickup_time),
		dropoff_time = COALESCE($7, dropoff_time),
		cancelled_at = COALESCE($8, cancelled_at),
		cancellation_reason = COALESCE($9, cancellation_reason),
		final_fare = COALESCE($10, final_fare),
		updated_at = $11
	WHERE ride_id = $1 AND status = $2
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q,
		rideId, from, to,
		p.DriverId, p.AcceptedAt, p.PickupTime, p.DropoffTime, p.CancelledAt,
		p.CancellationReason, p.FinalFare, p.UpdatedAt,
	))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transition ride status: %w", err)
	}
	return nil, rr.classifyMiss(ctx, rideId, myerrors.ErrInvalidTransition)
}

func (rr *RidesRepo) SaveRating(ctx context.Context, rideId string, rating model.Rating) (*model.Ride, error) {
	q := `
	UPDATE rides
	SET rating_score = $2, rating_feedback = $3, updated_at = now()
	WHERE ride_id = $1 AND status = 'completed' AND rating_score IS NULL
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q, rideId, rating.Score, rating.Feedback))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return nil, rr.classifyMiss(ctx, rideId, myerrors.ErrRatingUnavailable)
}

// GetRideParties is the lightweight lookup the websocket hub uses to gate
// ride-topic joins.
func (rr *RidesRepo) GetRideParties(ctx context.Context, rideId string) (string, string, error) {
	q := `SELECT rider_id, driver_id FROM rides WHERE ride_id = $1`

	var riderId string
	var driverId *string
	err := rr.db.pool.QueryRow(ctx, q, rideId).Scan(&riderId, &driverId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", myerrors.ErrRideNotFound
		}
		return "", "", fmt.Errorf("select ride parties: %w", err)
	}
	if driverId == nil {
		return riderId, "", nil
	}
	return riderId, *driverId, nil
}

// classifyMiss distinguishes "row exists but the condition failed" from
// "no such ride" after a conditional update matched nothing.
func (rr *RidesRepo) classifyMiss(ctx context.Context, rideId string, existsErr error) error {
	var exists bool
	err := rr.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE ride_id = $1)`, rideId).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check ride existence: %w", err)
	}
	if !exists {
		return myerrors.ErrRideNotFound
	}
	return existsErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*model.Ride, error) {
	var (
		r            model.Ride
		driverId     *string
		cancelReason *string
		ratingScore  *int
		ratingText   *string
		finalFare    *float64
	)

	err := row.Scan(
		&r.ID, &r.RideNumber, &r.RiderId, &driverId, &r.Status,
		&r.Pickup.Latitude, &r.Pickup.Longitude, &r.Pickup.Address,
		&r.Dropoff.Latitude, &r.Dropoff.Longitude, &r.Dropoff.Address,
		&r.Fare.Base, &r.Fare.DistanceFare, &r.Fare.TimeFare, &r.Fare.Total, &finalFare,
		&r.RequestedAt, &r.AcceptedAt, &r.PickupTime, &r.DropoffTime, &r.CancelledAt,
		&cancelReason, &ratingScore, &ratingText,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverId != nil {
		r.DriverId = *driverId
	}
	if cancelReason != nil {
		r.CancellationReason = *cancelReason
	}
	if finalFare != nil {
		r.FinalFare = *finalFare
	}
	if ratingScore != nil {
		r.Rating = &model.Rating{Score: *ratingScore}
		if ratingText != nil {
			r.Rating.Feedback = *ratingText
		}
	}
	return &r, nil
}
