package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"ridehail/internal/admin-service/core/domain/dto"
	"ridehail/internal/admin-service/core/ports"
	"ridehail/internal/mylogger"
	ridedto "ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	rideports "ridehail/internal/ride-service/core/ports"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeRides implements only what the admin service touches; the embedded
// interface panics on anything else.
type fakeRides struct {
	rideports.IRidesRepo
	mu    sync.Mutex
	rides map[string]*model.Ride
}

func newFakeRides(seed ...*model.Ride) *fakeRides {
	f := &fakeRides{rides: make(map[string]*model.Ride)}
	for _, r := range seed {
		cp := *r
		f.rides[r.ID] = &cp
	}
	return f
}

func (f *fakeRides) GetRide(ctx context.Context, rideId string) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return nil, myerrors.ErrRideNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRides) ListRides(ctx context.Context, flt rideports.RideFilter) ([]model.Ride, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ride
	for _, r := range f.rides {
		if flt.Status != "" && r.Status != flt.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRides) TransitionStatus(ctx context.Context, rideId string, from, to model.Status, p rideports.TransitionPatch) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return nil, myerrors.ErrRideNotFound
	}
	if r.Status != from {
		return nil, myerrors.ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = p.UpdatedAt
	if p.DriverId != nil {
		r.DriverId = *p.DriverId
	}
	if p.AcceptedAt != nil {
		r.AcceptedAt = p.AcceptedAt
	}
	if p.PickupTime != nil {
		r.PickupTime = p.PickupTime
	}
	if p.DropoffTime != nil {
		r.DropoffTime = p.DropoffTime
	}
	if p.CancelledAt != nil {
		r.CancelledAt = p.CancelledAt
	}
	if p.CancellationReason != nil {
		r.CancellationReason = *p.CancellationReason
	}
	if p.FinalFare != nil {
		r.FinalFare = *p.FinalFare
	}
	cp := *r
	return &cp, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	retracted []messagebrokerdto.RideRetracted
	statuses  []messagebrokerdto.RideStatus
}

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) PublishRideRequested(ctx context.Context, m messagebrokerdto.RideRequested) error {
	return nil
}

func (f *fakeBroker) PublishRideRetracted(ctx context.Context, m messagebrokerdto.RideRetracted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, m)
	return nil
}

func (f *fakeBroker) PublishRideStatus(ctx context.Context, m messagebrokerdto.RideStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, m)
	return nil
}

func (f *fakeBroker) Consume(ctx context.Context, queue, bindingKey string) (<-chan amqp.Delivery, error) {
	return nil, nil
}

type fakeOverview struct {
	out dto.OverviewDto
}

func (f *fakeOverview) GetOverview(ctx context.Context) (dto.OverviewDto, error) {
	return f.out, nil
}

func testLogger() mylogger.Logger {
	return mylogger.NewWithWriter(io.Discard, slog.LevelError, "test-host", "test")
}

func requestedRide(id string) *model.Ride {
	return &model.Ride{
		ID:         id,
		RideNumber: "RIDE_20250601_0001",
		RiderId:    "rider-1",
		Status:     model.StatusRequested,
		Fare:       model.Fare{Base: 2.00, DistanceFare: 7.00, TimeFare: 3.50, Total: 12.50},
	}
}

func setup(seed ...*model.Ride) (ports.IAdminService, *fakeRides, *fakeBroker) {
	rides := newFakeRides(seed...)
	broker := &fakeBroker{}
	svc := NewAdminService(testLogger(), &fakeOverview{}, rides, broker)
	return svc, rides, broker
}

func TestOverrideSkipsLifecycleRules(t *testing.T) {
	svc, _, broker := setup(requestedRide("r-1"))

	// requested -> completed is not a legal edge for normal callers.
	res, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusCompleted, "driver-9", "stuck ride")
	if err != nil {
		t.Fatalf("OverrideStatus: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", res.Status)
	}
	if res.DriverId != "driver-9" {
		t.Errorf("driver = %q, want driver-9", res.DriverId)
	}
	if res.FinalFare != 12.50 {
		t.Errorf("final fare = %v, want 12.50", res.FinalFare)
	}
	if res.AcceptedAt == nil || res.PickupTime == nil || res.DropoffTime == nil {
		t.Error("skipped-state timestamps not filled in")
	}

	// The request was still open, so drivers must see it retracted.
	if len(broker.retracted) != 1 {
		t.Errorf("retractions = %d, want 1", len(broker.retracted))
	}
	if len(broker.statuses) != 1 || !strings.HasPrefix(broker.statuses[0].Reason, "admin override") {
		t.Errorf("status events = %+v, want one tagged admin override", broker.statuses)
	}
}

func TestOverrideCancelTagsReason(t *testing.T) {
	ride := requestedRide("r-1")
	ride.Status = model.StatusAccepted
	ride.DriverId = "driver-1"
	svc, rides, broker := setup(ride)

	res, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusCancelled, "", "payment dispute")
	if err != nil {
		t.Fatalf("OverrideStatus: %v", err)
	}
	if res.CancellationReason != "admin override: payment dispute" {
		t.Errorf("reason = %q", res.CancellationReason)
	}
	if res.CancelledAt == nil {
		t.Error("CancelledAt not set")
	}

	// Not an open request: no retraction, only the status event.
	if len(broker.retracted) != 0 {
		t.Errorf("retractions = %d, want 0", len(broker.retracted))
	}

	stored, _ := rides.GetRide(context.Background(), "r-1")
	if stored.Status != model.StatusCancelled {
		t.Errorf("stored status = %s, want cancelled", stored.Status)
	}
}

func TestOverrideRejections(t *testing.T) {
	done := requestedRide("r-done")
	done.Status = model.StatusCompleted
	svc, _, _ := setup(requestedRide("r-1"), done)

	if _, err := svc.OverrideStatus(context.Background(), "r-done", model.StatusCancelled, "", ""); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("override terminal: err = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusRequested, "", ""); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("override to requested: err = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.OverrideStatus(context.Background(), "r-1", model.Status("flying"), "", ""); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("override to bogus status: err = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.OverrideStatus(context.Background(), "ghost", model.StatusCancelled, "", ""); !errors.Is(err, myerrors.ErrRideNotFound) {
		t.Errorf("override missing ride: err = %v, want ErrRideNotFound", err)
	}
}

func TestOverrideDriverlessRideNeedsDriver(t *testing.T) {
	svc, rides, _ := setup(requestedRide("r-1"))

	// No claimant yet: forcing any status but cancelled must name a driver.
	for _, to := range []model.Status{model.StatusAccepted, model.StatusInProgress, model.StatusCompleted} {
		if _, err := svc.OverrideStatus(context.Background(), "r-1", to, "", ""); !errors.Is(err, myerrors.ErrInvalidInput) {
			t.Errorf("force %s without driver: err = %v, want ErrInvalidInput", to, err)
		}
	}

	stored, _ := rides.GetRide(context.Background(), "r-1")
	if stored.Status != model.StatusRequested || stored.DriverId != "" {
		t.Errorf("rejected override changed the ride: %+v", stored)
	}

	// Cancelling an unclaimed ride stays driverless.
	res, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusCancelled, "", "")
	if err != nil {
		t.Fatalf("cancel without driver: %v", err)
	}
	if res.DriverId != "" {
		t.Errorf("driver = %q, want empty on a cancelled unclaimed ride", res.DriverId)
	}
}

func TestOverrideRejectsDriverReassignment(t *testing.T) {
	ride := requestedRide("r-1")
	ride.Status = model.StatusAccepted
	ride.DriverId = "driver-1"
	svc, _, _ := setup(ride)

	if _, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusInProgress, "driver-2", ""); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("reassign driver: err = %v, want ErrInvalidInput", err)
	}

	// Naming the assigned driver is a no-op, not a conflict.
	res, err := svc.OverrideStatus(context.Background(), "r-1", model.StatusInProgress, "driver-1", "")
	if err != nil {
		t.Fatalf("OverrideStatus: %v", err)
	}
	if res.Status != model.StatusInProgress || res.DriverId != "driver-1" {
		t.Errorf("ride = %+v, want in-progress with driver-1", res)
	}
}

func TestAdminListRides(t *testing.T) {
	cancelled := requestedRide("r-2")
	cancelled.Status = model.StatusCancelled
	svc, _, _ := setup(requestedRide("r-1"), cancelled)

	list, err := svc.ListRides(context.Background(), ridedto.ListRidesQuery{Status: "cancelled"})
	if err != nil {
		t.Fatalf("ListRides: %v", err)
	}
	if len(list.Rides) != 1 || list.Rides[0].RideId != "r-2" {
		t.Errorf("rides = %+v, want only r-2", list.Rides)
	}

	if _, err := svc.ListRides(context.Background(), ridedto.ListRidesQuery{Status: "flying"}); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("bogus status: err = %v, want ErrInvalidInput", err)
	}
}
