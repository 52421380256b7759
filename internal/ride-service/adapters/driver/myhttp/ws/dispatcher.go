package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/ports"

	websocketdto "ridehail/internal/ride-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const authTimeout = 5 * time.Second

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser dashboard and the mobile apps connect from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RidePartiesLookup resolves who is on a ride, used to gate ride-topic
// joins.
type RidePartiesLookup interface {
	GetRideParties(ctx context.Context, rideId string) (riderId, driverId string, err error)
}

// Hub is the realtime event channel. It is constructed explicitly and
// injected where publishing is needed; there is no package-level instance.
type Hub struct {
	mu       sync.RWMutex
	mylog    mylogger.Logger
	auth     *EventHandler
	presence ports.IPresenceRegistry
	parties  RidePartiesLookup

	clients map[string]*Client            // actor topic: actorId -> connection
	rooms   map[string]map[string]*Client // ride topic: rideId -> actorId -> connection

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log mylogger.Logger, auth *EventHandler, presence ports.IPresenceRegistry, parties RidePartiesLookup) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		mylog:    log,
		auth:     auth,
		presence: presence,
		parties:  parties,
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Shutdown closes every connection; called from server stop.
func (h *Hub) Shutdown() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		c.close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
}

// WsHandler upgrades the connection and runs the auth handshake: the first
// frame must be an auth event carrying a token for the path actor id,
// within authTimeout.
func (h *Hub) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.mylog.Action("WsHandler")

		pathActorId := r.PathValue("actor_id")
		if pathActorId == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade connection", err)
			return
		}

		actorId, kind, err := h.awaitAuth(conn, pathActorId)
		if err != nil {
			log.Warn("websocket auth failed", "actor_id", pathActorId, "err", err.Error())
			conn.WriteJSON(websocketdto.NewEvent(websocketdto.TypeError,
				websocketdto.ErrorMessage{Message: "authentication failed"}))
			conn.Close()
			return
		}

		client := newClient(actorId, kind, conn, h)
		h.addClient(client)

		client.send(websocketdto.NewEvent(websocketdto.TypeAuthSuccess, struct{}{}))
		log.Info("websocket client connected", "actor_id", actorId, "kind", string(kind))

		go client.writeLoop()
		go client.readLoop()
	}
}

func (h *Hub) awaitAuth(conn *websocket.Conn, pathActorId string) (string, model.ActorKind, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var e websocketdto.Event
	if err := conn.ReadJSON(&e); err != nil {
		return "", "", err
	}

	payload, err := websocketdto.DecodeInbound(e)
	if err != nil {
		return "", "", err
	}
	auth, ok := payload.(websocketdto.AuthMessage)
	if !ok {
		return "", "", errFirstFrameNotAuth
	}

	actorId, kind, err := h.auth.VerifyToken(auth.Token)
	if err != nil {
		return "", "", err
	}
	if actorId != pathActorId {
		return "", "", errTokenActorMismatch
	}
	return actorId, kind, nil
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if existing, ok := h.clients[c.actorId]; ok {
		// The replaced connection loses its registration here; its own
		// teardown must not touch presence or the gauge anymore.
		existing.close()
		metrics.WsConnections.Dec()
	}
	h.clients[c.actorId] = c
	h.mu.Unlock()

	h.presence.Connect(c.actorId, c.kind)
	metrics.WsConnections.Inc()
}

func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	owned := h.clients[c.actorId] == c
	if owned {
		delete(h.clients, c.actorId)
	}
	for rideId, room := range h.rooms {
		if room[c.actorId] == c {
			delete(room, c.actorId)
			if len(room) == 0 {
				delete(h.rooms, rideId)
			}
		}
	}
	h.mu.Unlock()

	c.close()

	// A connection replaced by a reconnect no longer owns the actor's
	// registration; erasing presence here would blind dispatch to the
	// live connection.
	if owned {
		h.presence.Disconnect(c.actorId)
		metrics.WsConnections.Dec()
	}
}

// handleInbound dispatches a decoded client frame. The presence registry
// is written only here, from the owning actor's own connection.
func (h *Hub) handleInbound(c *Client, e websocketdto.Event) {
	payload, err := websocketdto.DecodeInbound(e)
	if err != nil {
		c.send(websocketdto.NewEvent(websocketdto.TypeError,
			websocketdto.ErrorMessage{Message: err.Error()}))
		return
	}

	switch p := payload.(type) {
	case websocketdto.AuthMessage:
		// Already authenticated; ignore.

	case websocketdto.ToggleAvailability:
		if c.kind == model.KindDriver {
			h.presence.SetAvailability(c.actorId, p.Available)
		}

	case websocketdto.UpdateLocation:
		h.presence.UpdateLocation(c.actorId, model.Coordinates{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		})
		if p.RideId != "" {
			h.PublishLocation(c.actorId, websocketdto.DriverLocation{
				ActorKind: string(c.kind),
				ActorId:   c.actorId,
				RideId:    p.RideId,
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
			})
		}

	case websocketdto.JoinRide:
		if err := h.joinRide(c, p.RideId); err != nil {
			c.send(websocketdto.NewEvent(websocketdto.TypeError,
				websocketdto.ErrorMessage{Message: "cannot join ride"}))
		}

	case struct{}: // leave_ride
		h.leaveRooms(c)

	case websocketdto.ChatMessage:
		p.Sender = c.actorId
		h.publishToRoom(p.RideId, c.actorId, websocketdto.NewEvent(websocketdto.TypeChatMessage, p))
	}
}

// joinRide subscribes the client to a ride topic, but only if the token
// actor is actually a party to that ride.
func (h *Hub) joinRide(c *Client, rideId string) error {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	riderId, driverId, err := h.parties.GetRideParties(ctx, rideId)
	if err != nil {
		return err
	}
	if c.actorId != riderId && c.actorId != driverId {
		return errNotRideParty
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[rideId]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[rideId] = room
	}
	room[c.actorId] = c
	return nil
}

func (h *Hub) leaveRooms(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for rideId, room := range h.rooms {
		if room[c.actorId] == c {
			delete(room, c.actorId)
			if len(room) == 0 {
				delete(h.rooms, rideId)
			}
		}
	}
}

// PublishNewRequest fans the request out to every available, connected
// driver. Binary eligibility, no ranking.
func (h *Hub) PublishNewRequest(req websocketdto.NewRideRequest) {
	event := websocketdto.NewEvent(websocketdto.TypeNewRideRequest, req)

	drivers := h.presence.AvailableDrivers()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, driverId := range drivers {
		if c, ok := h.clients[driverId]; ok {
			c.send(event)
		}
	}
}

// RetractRequest tells every connected driver except the claimer that the
// request is gone.
func (h *Hub) RetractRequest(rideId, claimedBy string) {
	event := websocketdto.NewEvent(websocketdto.TypeRideUnavailable,
		websocketdto.RideUnavailable{RideId: rideId})

	h.mu.RLock()
	defer h.mu.RUnlock()

	for actorId, c := range h.clients {
		if c.kind != model.KindDriver || actorId == claimedBy {
			continue
		}
		c.send(event)
	}
}

// PublishStatusChange delivers to the ride topic plus both parties' actor
// topics, deduplicated, so the rider hears about the accept before either
// side joined the ride room.
func (h *Hub) PublishStatusChange(riderId, driverId string, upd websocketdto.RideStatusUpdate) {
	event := websocketdto.NewEvent(websocketdto.TypeRideStatusUpdate, upd)

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[string]bool, 2)
	if room, ok := h.rooms[upd.RideId]; ok {
		for actorId, c := range room {
			c.send(event)
			sent[actorId] = true
		}
	}
	for _, actorId := range []string{riderId, driverId} {
		if actorId == "" || sent[actorId] {
			continue
		}
		if c, ok := h.clients[actorId]; ok {
			c.send(event)
		}
	}
}

// PublishLocation forwards a location to the counterparty on the ride
// topic. A sender who is not in that room reaches nobody: locations never
// leave an active ride pairing.
func (h *Hub) PublishLocation(senderId string, loc websocketdto.DriverLocation) {
	h.publishToRoom(loc.RideId, senderId, websocketdto.NewEvent(websocketdto.TypeDriverLocation, loc))
}

func (h *Hub) publishToRoom(rideId, senderId string, event websocketdto.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[rideId]
	if !ok || room[senderId] == nil {
		return
	}
	for actorId, c := range room {
		if actorId == senderId {
			continue
		}
		c.send(event)
	}
}
