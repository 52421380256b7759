package db

import (
	"context"
	"fmt"

	"ridehail/internal/admin-service/core/domain/dto"
	"ridehail/internal/admin-service/core/ports"
)

type OverviewRepo struct {
	db *DB
}

func NewOverviewRepo(db *DB) ports.IOverviewRepo {
	return &OverviewRepo{db: db}
}

// GetOverview aggregates the operator dashboard in two queries over the
// rides table. "Active drivers" means drivers currently on a ride.
func (or *OverviewRepo) GetOverview(ctx context.Context) (dto.OverviewDto, error) {
	var out dto.OverviewDto

	q1 := `
	SELECT
		COUNT(*) FILTER (WHERE status = 'requested'),
		COUNT(*) FILTER (WHERE status = 'accepted'),
		COUNT(*) FILTER (WHERE status = 'in-progress'),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(*) FILTER (WHERE status IN ('accepted', 'in-progress')),
		COUNT(*) FILTER (WHERE created_at::date = current_date),
		COALESCE(SUM(final_fare) FILTER (WHERE status = 'completed' AND created_at::date = current_date), 0)::float,
		CASE
			WHEN COUNT(*) FILTER (WHERE created_at::date = current_date) > 0 THEN
				COUNT(*) FILTER (WHERE status = 'cancelled' AND created_at::date = current_date)::float /
				COUNT(*) FILTER (WHERE created_at::date = current_date)::float
			ELSE 0
		END::float,
		COALESCE(AVG(EXTRACT(EPOCH FROM (accepted_at - requested_at)) / 60)
			FILTER (WHERE accepted_at IS NOT NULL), 0)::float,
		COALESCE(AVG(EXTRACT(EPOCH FROM (dropoff_time - pickup_time)) / 60)
			FILTER (WHERE status = 'completed' AND dropoff_time IS NOT NULL AND pickup_time IS NOT NULL), 0)::float
	FROM rides;
	`

	err := or.db.pool.QueryRow(ctx, q1).Scan(
		&out.StatusCounts.Requested,
		&out.StatusCounts.Accepted,
		&out.StatusCounts.InProgress,
		&out.StatusCounts.Completed,
		&out.StatusCounts.Cancelled,
		&out.ActiveRides,
		&out.RidesToday,
		&out.RevenueToday,
		&out.CancellationRateToday,
		&out.AvgWaitTimeMinutes,
		&out.AvgRideDurationMinutes,
	)
	if err != nil {
		return dto.OverviewDto{}, fmt.Errorf("failed to get ride metrics: %w", err)
	}

	q2 := `
	SELECT COUNT(DISTINCT driver_id)
	FROM rides
	WHERE status IN ('accepted', 'in-progress') AND driver_id IS NOT NULL;
	`

	if err := or.db.pool.QueryRow(ctx, q2).Scan(&out.ActiveDrivers); err != nil {
		return dto.OverviewDto{}, fmt.Errorf("failed to get driver metrics: %w", err)
	}

	return out, nil
}
