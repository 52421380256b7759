// Package websocketdto defines the real-time wire contract. Every frame is
// a tagged union: {"type": <kind>, "data": <payload>}. Payloads are decoded
// into their concrete struct at the channel boundary; unknown kinds are
// rejected there.
package websocketdto

import (
	"encoding/json"
	"fmt"

	"ridehail/internal/ride-service/core/domain/model"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server event kinds.
const (
	TypeAuth               = "auth"
	TypeToggleAvailability = "toggle_availability"
	TypeUpdateLocation     = "update_location"
	TypeJoinRide           = "join_ride"
	TypeLeaveRide          = "leave_ride"
	TypeChatMessage        = "chat_message"
)

// Server -> client event kinds.
const (
	TypeAuthSuccess      = "auth_success"
	TypeNewRideRequest   = "new_ride_request"
	TypeRideUnavailable  = "ride_unavailable"
	TypeRideStatusUpdate = "ride_status_update"
	TypeDriverLocation   = "driver_location"
	TypeError            = "error"
)

type AuthMessage struct {
	Token string `json:"token"`
}

type ToggleAvailability struct {
	Available bool `json:"available"`
}

type UpdateLocation struct {
	RideId    string  `json:"ride_id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type JoinRide struct {
	RideId string `json:"ride_id"`
}

type ChatMessage struct {
	RideId  string `json:"ride_id"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

type NewRideRequest struct {
	RideId     string      `json:"ride_id"`
	RideNumber string      `json:"ride_number"`
	Pickup     model.Point `json:"pickup"`
	Dropoff    model.Point `json:"dropoff"`
	FareTotal  float64     `json:"fare_total"`
}

type RideUnavailable struct {
	RideId string `json:"ride_id"`
}

type RideStatusUpdate struct {
	RideId     string `json:"ride_id"`
	RideNumber string `json:"ride_number"`
	Status     string `json:"status"`
	DriverId   string `json:"driver_id,omitempty"`
	Timestamp  string `json:"timestamp"`
	Reason     string `json:"reason,omitempty"`
}

type DriverLocation struct {
	ActorKind string  `json:"actor_kind"`
	ActorId   string  `json:"actor_id"`
	RideId    string  `json:"ride_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// NewEvent marshals a payload into a tagged frame. Marshalling our own
// payload structs cannot fail, so errors are swallowed into an empty body.
func NewEvent(kind string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{Type: kind, Data: data}
}

// DecodeInbound validates and decodes a client frame into its concrete
// payload. The boundary rejects unknown kinds instead of passing loose
// maps deeper in.
func DecodeInbound(e Event) (any, error) {
	switch e.Type {
	case TypeAuth:
		return decode[AuthMessage](e)
	case TypeToggleAvailability:
		return decode[ToggleAvailability](e)
	case TypeUpdateLocation:
		return decode[UpdateLocation](e)
	case TypeJoinRide:
		return decode[JoinRide](e)
	case TypeLeaveRide:
		return struct{}{}, nil
	case TypeChatMessage:
		return decode[ChatMessage](e)
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

func decode[T any](e Event) (T, error) {
	var payload T
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return payload, nil
}
