package ports

import (
	"ridehail/internal/ride-service/core/domain/model"
)

// IPresenceRegistry owns transient actor state. Writes come only from the
// owning actor's connection; the event channel and dispatch notifier only
// read.
type IPresenceRegistry interface {
	Connect(actorId string, kind model.ActorKind)
	Disconnect(actorId string)
	SetAvailability(actorId string, available bool)
	UpdateLocation(actorId string, c model.Coordinates)

	Get(actorId string) (model.Presence, bool)
	AvailableDrivers() []string
}
