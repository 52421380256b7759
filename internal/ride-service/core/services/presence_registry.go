package services

import (
	"sync"
	"time"

	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/ports"
)

// PresenceRegistry keeps per-actor transient state in memory. Nothing here
// survives a restart; clients reconnect and re-announce themselves.
type PresenceRegistry struct {
	mu     sync.RWMutex
	actors map[string]*model.Presence
}

func NewPresenceRegistry() ports.IPresenceRegistry {
	return &PresenceRegistry{
		actors: make(map[string]*model.Presence),
	}
}

func (pr *PresenceRegistry) Connect(actorId string, kind model.ActorKind) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	now := time.Now()
	pr.actors[actorId] = &model.Presence{
		ActorID:     actorId,
		Kind:        kind,
		ConnectedAt: now,
		UpdatedAt:   now,
	}
}

func (pr *PresenceRegistry) Disconnect(actorId string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	delete(pr.actors, actorId)
}

func (pr *PresenceRegistry) SetAvailability(actorId string, available bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if p, ok := pr.actors[actorId]; ok && p.Kind == model.KindDriver {
		p.Available = available
		p.UpdatedAt = time.Now()
	}
}

func (pr *PresenceRegistry) UpdateLocation(actorId string, c model.Coordinates) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if p, ok := pr.actors[actorId]; ok {
		p.Location = &c
		p.UpdatedAt = time.Now()
	}
}

func (pr *PresenceRegistry) Get(actorId string) (model.Presence, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	p, ok := pr.actors[actorId]
	if !ok {
		return model.Presence{}, false
	}
	return *p, true
}

// AvailableDrivers is the whole eligibility rule for dispatch: connected
// drivers currently marked available. No distance ranking.
func (pr *PresenceRegistry) AvailableDrivers() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	ids := make([]string, 0, len(pr.actors))
	for id, p := range pr.actors {
		if p.Kind == model.KindDriver && p.Available {
			ids = append(ids, id)
		}
	}
	return ids
}
