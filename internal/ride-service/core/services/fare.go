package services

import (
	"math"

	"ridehail/internal/ride-service/core/domain/model"
)

// Flat city tariff. The fare is computed once at creation from the
// estimated route and stays immutable afterwards, admin override aside.
const (
	BaseFare         = 2.00
	RatePerKm        = 1.00
	RatePerMin       = 0.25
	AvgSpeedKmPerMin = 0.5
)

// EstimateFare builds the fare breakdown for an estimated route distance.
// Duration is derived from the city average speed; all amounts are rounded
// to cents.
func EstimateFare(distanceKm float64) model.Fare {
	durationMin := distanceKm / AvgSpeedKmPerMin

	f := model.Fare{
		Base:         BaseFare,
		DistanceFare: roundCents(distanceKm * RatePerKm),
		TimeFare:     roundCents(durationMin * RatePerMin),
	}
	f.Total = roundCents(f.Base + f.DistanceFare + f.TimeFare)
	return f
}

// EstimateDurationMinutes is what the create response reports to the rider.
func EstimateDurationMinutes(distanceKm float64) float64 {
	return math.Round(distanceKm / AvgSpeedKmPerMin)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
