package handle

import (
	"net/http"

	"ridehail/internal/ride-service/core/domain/model"
)

// actorFrom reads the identity the auth middleware stamped on the request.
func actorFrom(r *http.Request) model.Actor {
	return model.Actor{
		ID:   r.Header.Get("X-UserId"),
		Role: r.Header.Get("X-Role"),
	}
}
