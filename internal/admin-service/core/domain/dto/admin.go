package dto

type StatusCounts struct {
	Requested  int64 `json:"requested"`
	Accepted   int64 `json:"accepted"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

type OverviewDto struct {
	StatusCounts           StatusCounts `json:"status_counts"`
	ActiveRides            int64        `json:"active_rides"`
	ActiveDrivers          int64        `json:"active_drivers"`
	RidesToday             int64        `json:"rides_today"`
	RevenueToday           float64      `json:"revenue_today"`
	CancellationRateToday  float64      `json:"cancellation_rate_today"`
	AvgWaitTimeMinutes     float64      `json:"avg_wait_time_minutes"`
	AvgRideDurationMinutes float64      `json:"avg_ride_duration_minutes"`
}

// DriverId assigns a driver when forcing a driverless ride forward;
// every status except cancelled requires one on the ride.
type OverrideRequest struct {
	Status   string `json:"status" validate:"required,oneof=accepted in-progress completed cancelled"`
	DriverId string `json:"driver_id" validate:"omitempty,max=64"`
	Reason   string `json:"reason" validate:"max=255"`
}
