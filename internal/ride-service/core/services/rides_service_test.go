package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	"ridehail/internal/ride-service/core/ports"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeRidesRepo mimics the conditional updates of the real store under a
// mutex, which is what makes the accept race test meaningful.
type fakeRidesRepo struct {
	mu         sync.Mutex
	rides      map[string]*model.Ride
	distanceKm float64
}

func newFakeRidesRepo() *fakeRidesRepo {
	return &fakeRidesRepo{
		rides:      make(map[string]*model.Ride),
		distanceKm: 7.0,
	}
}

func (f *fakeRidesRepo) CreateRide(ctx context.Context, r *model.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rides[r.ID] = &cp
	return nil
}

func (f *fakeRidesRepo) GetRide(ctx context.Context, rideId string) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return nil, myerrors.ErrRideNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRidesRepo) ListRides(ctx context.Context, flt ports.RideFilter) ([]model.Ride, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ride
	for _, r := range f.rides {
		if flt.RiderId != "" && r.RiderId != flt.RiderId {
			continue
		}
		if flt.DriverId != "" && r.DriverId != flt.DriverId {
			continue
		}
		if flt.Status != "" && r.Status != flt.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRidesRepo) ListRequested(ctx context.Context) ([]model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ride
	for _, r := range f.rides {
		if r.Status == model.StatusRequested {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRidesRepo) CountRidesToday(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rides)), nil
}

func (f *fakeRidesRepo) GetDistanceKm(ctx context.Context, pickup, dropoff model.Point) (float64, error) {
	return f.distanceKm, nil
}

func (f *fakeRidesRepo) AcceptRide(ctx context.Context, rideId, driverId string, at time.Time) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return nil, myerrors.ErrRideNotFound
	}
	if r.Status != model.StatusRequested || r.DriverId != "" {
		return nil, myerrors.ErrRideUnavailable
	}
	r.Status = model.StatusAccepted
	r.DriverId = driverId
	r.AcceptedAt = &at
	r.UpdatedAt = at
	cp := *r
	return &cp, nil
}

func (f *fakeRidesRepo) TransitionStatus(ctx context.Context, rideId string, from, to model.Status, p ports.TransitionPatch) (*model.Ride, error) {
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

func (f *fakeRidesRepo) SaveRating(ctx context.Context, rideId string, rating model.Rating) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return nil, myerrors.ErrRideNotFound
	}
	if r.Status != model.StatusCompleted || r.Rating != nil {
		return nil, myerrors.ErrRatingUnavailable
	}
	r.Rating = &rating
	cp := *r
	return &cp, nil
}

func (f *fakeRidesRepo) GetRideParties(ctx context.Context, rideId string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideId]
	if !ok {
		return "", "", myerrors.ErrRideNotFound
	}
	return r.RiderId, r.DriverId, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	requested []messagebrokerdto.RideRequested
	retracted []messagebrokerdto.RideRetracted
	statuses  []messagebrokerdto.RideStatus
}

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) PublishRideRequested(ctx context.Context, m messagebrokerdto.RideRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, m)
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

func (f *fakeBroker) lastStatus() (messagebrokerdto.RideStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return messagebrokerdto.RideStatus{}, false
	}
	return f.statuses[len(f.statuses)-1], true
}

func testLogger() mylogger.Logger {
	return mylogger.NewWithWriter(io.Discard, slog.LevelError, "test-host", "test")
}

func ptr(v float64) *float64 { return &v }

func createReq() dto.CreateRideRequest {
	return dto.CreateRideRequest{
		PickupLatitude:   ptr(43.238949),
		PickupLongitude:  ptr(76.889709),
		PickupAddress:    "Abay Ave 10",
		DropoffLatitude:  ptr(43.222015),
		DropoffLongitude: ptr(76.851250),
		DropoffAddress:   "Tole Bi St 59",
	}
}

func setup() (ports.IRidesService, *fakeRidesRepo, *fakeBroker, ports.IPresenceRegistry) {
	repo := newFakeRidesRepo()
	broker := &fakeBroker{}
	presence := NewPresenceRegistry()
	svc := NewRidesService(testLogger(), repo, broker, presence)
	return svc, repo, broker, presence
}

func connectAvailableDriver(presence ports.IPresenceRegistry, driverId string) {
	presence.Connect(driverId, model.KindDriver)
	presence.SetAvailability(driverId, true)
}

func TestCreateRide(t *testing.T) {
	svc, _, broker, _ := setup()

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	if ride.Status != model.StatusRequested {
		t.Errorf("status = %s, want requested", ride.Status)
	}
	if ride.Fare.Total != 12.50 {
		t.Errorf("fare total = %v, want 12.50", ride.Fare.Total)
	}
	if !strings.HasPrefix(ride.RideNumber, "RIDE_") {
		t.Errorf("ride number %q missing prefix", ride.RideNumber)
	}
	if ride.DriverId != "" {
		t.Errorf("new ride must have no driver, got %q", ride.DriverId)
	}

	if len(broker.requested) != 1 {
		t.Fatalf("published %d request events, want 1", len(broker.requested))
	}
	if broker.requested[0].RideId != ride.RideId {
		t.Errorf("published ride_id = %s, want %s", broker.requested[0].RideId, ride.RideId)
	}
}

func TestCreateRideRejectsBadInput(t *testing.T) {
	svc, _, _, _ := setup()

	req := createReq()
	req.PickupLatitude = ptr(120.0) // out of range
	if _, err := svc.CreateRide(context.Background(), "rider-1", req); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("bad latitude: err = %v, want ErrInvalidInput", err)
	}

	req = createReq()
	req.DropoffAddress = ""
	if _, err := svc.CreateRide(context.Background(), "rider-1", req); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("empty address: err = %v, want ErrInvalidInput", err)
	}
}

func TestAcceptRideRequiresAvailableDriver(t *testing.T) {
	svc, _, _, presence := setup()

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	// Never connected.
	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); !errors.Is(err, myerrors.ErrDriverNotAvailable) {
		t.Errorf("offline driver: err = %v, want ErrDriverNotAvailable", err)
	}

	// Connected but not toggled available.
	presence.Connect("driver-2", model.KindDriver)
	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-2"); !errors.Is(err, myerrors.ErrDriverNotAvailable) {
		t.Errorf("unavailable driver: err = %v, want ErrDriverNotAvailable", err)
	}
}

func TestAcceptRide(t *testing.T) {
	svc, _, broker, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	accepted, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1")
	if err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}
	if accepted.Status != model.StatusAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}
	if accepted.DriverId != "driver-1" {
		t.Errorf("driver = %q, want driver-1", accepted.DriverId)
	}
	if accepted.AcceptedAt == nil {
		t.Error("AcceptedAt not set")
	}

	if len(broker.retracted) != 1 || broker.retracted[0].ClaimedBy != "driver-1" {
		t.Errorf("retraction = %+v, want one claimed by driver-1", broker.retracted)
	}
	if st, ok := broker.lastStatus(); !ok || st.Status != string(model.StatusAccepted) {
		t.Errorf("status event = %+v, want accepted", st)
	}
}

func TestAcceptRideRace(t *testing.T) {
	svc, _, _, presence := setup()

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	const drivers = 16
	ids := make([]string, drivers)
	for i := range ids {
		ids[i] = "driver-" + string(rune('a'+i))
		connectAvailableDriver(presence, ids[i])
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	losers := 0

	for _, id := range ids {
		wg.Add(1)
		go func(driverId string) {
			defer wg.Done()
			_, err := svc.AcceptRide(context.Background(), ride.RideId, driverId)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, myerrors.ErrRideUnavailable):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != drivers-1 {
		t.Errorf("losers = %d, want %d", losers, drivers-1)
	}
}

func TestRideLifecycle(t *testing.T) {
	svc, _, broker, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}

	started, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusInProgress)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.PickupTime == nil {
		t.Error("PickupTime not set")
	}

	done, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.DropoffTime == nil {
		t.Error("DropoffTime not set")
	}
	if done.FinalFare != ride.Fare.Total {
		t.Errorf("final fare = %v, want the creation estimate %v", done.FinalFare, ride.Fare.Total)
	}
	if done.Fare != ride.Fare {
		t.Errorf("fare breakdown changed during the ride: %+v != %+v", done.Fare, ride.Fare)
	}

	if st, ok := broker.lastStatus(); !ok || st.Status != string(model.StatusCompleted) {
		t.Errorf("status event = %+v, want completed", st)
	}

	// Terminal state: nothing moves any more.
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusInProgress); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("restart after complete: err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatusGuards(t *testing.T) {
	svc, _, _, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}

	// Only the assigned driver may move the ride.
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-2", model.StatusInProgress); !errors.Is(err, myerrors.ErrForbidden) {
		t.Errorf("other driver: err = %v, want ErrForbidden", err)
	}

	// Only in-progress and completed are valid targets here.
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusCancelled); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("cancel via status: err = %v, want ErrInvalidTransition", err)
	}

	// Skipping in-progress is not a legal edge.
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusCompleted); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("accepted -> completed: err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelRequestedRide(t *testing.T) {
	svc, _, broker, _ := setup()

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	rider := model.Actor{ID: "rider-1", Role: model.RoleRider}
	cancelled, err := svc.CancelRide(context.Background(), ride.RideId, rider, "changed my mind")
	if err != nil {
		t.Fatalf("CancelRide: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.DriverId != "" {
		t.Errorf("cancel from requested must leave driver empty, got %q", cancelled.DriverId)
	}
	if cancelled.CancellationReason != "changed my mind" {
		t.Errorf("reason = %q", cancelled.CancellationReason)
	}

	// The open request was still broadcast, so it has to be retracted.
	if len(broker.retracted) != 1 || broker.retracted[0].ClaimedBy != "" {
		t.Errorf("retraction = %+v, want one with no claimant", broker.retracted)
	}
}

func TestCancelRideAuthorization(t *testing.T) {
	svc, _, _, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	stranger := model.Actor{ID: "rider-2", Role: model.RoleRider}
	if _, err := svc.CancelRide(context.Background(), ride.RideId, stranger, ""); !errors.Is(err, myerrors.ErrForbidden) {
		t.Errorf("stranger cancel: err = %v, want ErrForbidden", err)
	}

	// An unassigned driver is not a party to the ride either.
	driver := model.Actor{ID: "driver-1", Role: model.RoleDriver}
	if _, err := svc.CancelRide(context.Background(), ride.RideId, driver, ""); !errors.Is(err, myerrors.ErrForbidden) {
		t.Errorf("unassigned driver cancel: err = %v, want ErrForbidden", err)
	}

	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}
	if _, err := svc.CancelRide(context.Background(), ride.RideId, driver, "rider no-show"); err != nil {
		t.Errorf("assigned driver cancel: %v", err)
	}
}

func TestCancelCompletedRideRejected(t *testing.T) {
	svc, _, _, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rider := model.Actor{ID: "rider-1", Role: model.RoleRider}
	if _, err := svc.CancelRide(context.Background(), ride.RideId, rider, ""); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("cancel completed: err = %v, want ErrInvalidTransition", err)
	}
}

func TestRateRide(t *testing.T) {
	svc, _, _, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	ride, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	req := dto.RateRideRequest{Score: 5, Feedback: "smooth ride"}

	// Rating unlocks only after completion.
	if _, err := svc.RateRide(context.Background(), ride.RideId, "rider-1", req); !errors.Is(err, myerrors.ErrRatingUnavailable) {
		t.Errorf("rate requested ride: err = %v, want ErrRatingUnavailable", err)
	}

	if _, err := svc.AcceptRide(context.Background(), ride.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ride.RideId, "driver-1", model.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := svc.RateRide(context.Background(), ride.RideId, "rider-2", req); !errors.Is(err, myerrors.ErrForbidden) {
		t.Errorf("other rider rates: err = %v, want ErrForbidden", err)
	}

	rated, err := svc.RateRide(context.Background(), ride.RideId, "rider-1", req)
	if err != nil {
		t.Fatalf("RateRide: %v", err)
	}
	if rated.Rating == nil || rated.Rating.Score != 5 {
		t.Errorf("rating = %+v, want score 5", rated.Rating)
	}

	// Set once.
	if _, err := svc.RateRide(context.Background(), ride.RideId, "rider-1", req); !errors.Is(err, myerrors.ErrRatingUnavailable) {
		t.Errorf("second rating: err = %v, want ErrRatingUnavailable", err)
	}
}

func TestListRidesScoping(t *testing.T) {
	svc, _, _, _ := setup()

	if _, err := svc.CreateRide(context.Background(), "rider-1", createReq()); err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if _, err := svc.CreateRide(context.Background(), "rider-2", createReq()); err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	rider := model.Actor{ID: "rider-1", Role: model.RoleRider}
	list, err := svc.ListRides(context.Background(), rider, dto.ListRidesQuery{})
	if err != nil {
		t.Fatalf("ListRides: %v", err)
	}
	if len(list.Rides) != 1 || list.Rides[0].RiderId != "rider-1" {
		t.Errorf("rider sees %d rides, want their own 1", len(list.Rides))
	}

	admin := model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	list, err = svc.ListRides(context.Background(), admin, dto.ListRidesQuery{})
	if err != nil {
		t.Fatalf("ListRides admin: %v", err)
	}
	if len(list.Rides) != 2 {
		t.Errorf("admin sees %d rides, want 2", len(list.Rides))
	}

	if _, err := svc.ListRides(context.Background(), rider, dto.ListRidesQuery{Status: "flying"}); !errors.Is(err, myerrors.ErrInvalidInput) {
		t.Errorf("bogus status filter: err = %v, want ErrInvalidInput", err)
	}
}

func TestAvailableRides(t *testing.T) {
	svc, _, _, presence := setup()
	connectAvailableDriver(presence, "driver-1")

	first, err := svc.CreateRide(context.Background(), "rider-1", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	second, err := svc.CreateRide(context.Background(), "rider-2", createReq())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	if _, err := svc.AcceptRide(context.Background(), first.RideId, "driver-1"); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}

	open, err := svc.AvailableRides(context.Background())
	if err != nil {
		t.Fatalf("AvailableRides: %v", err)
	}
	if len(open) != 1 || open[0].RideId != second.RideId {
		t.Errorf("open rides = %+v, want only the unclaimed one", open)
	}
}
