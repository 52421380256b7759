package ports

import (
	"context"

	"ridehail/internal/admin-service/core/domain/dto"
	ridedto "ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
)

type IOverviewRepo interface {
	GetOverview(ctx context.Context) (dto.OverviewDto, error)
}

type IAdminService interface {
	Overview(ctx context.Context) (dto.OverviewDto, error)
	ListRides(ctx context.Context, q ridedto.ListRidesQuery) (ridedto.RideListDto, error)

	// OverrideStatus forces a ride out of any non-terminal state, skipping
	// the normal transition rules. Forcing a driverless ride anywhere but
	// cancelled requires driverId. The reason lands in the audit trail and
	// in the status event pushed to both parties.
	OverrideStatus(ctx context.Context, rideId string, to model.Status, driverId, reason string) (ridedto.RideDto, error)
}
