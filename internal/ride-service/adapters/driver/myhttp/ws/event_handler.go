package ws

import (
	"fmt"
	"strings"
	"time"

	"ridehail/internal/ride-service/core/domain/model"

	"github.com/golang-jwt/jwt"
)

// EventHandler verifies the bearer token presented in the websocket auth
// handshake.
type EventHandler struct {
	jwtSecret string
}

func NewEventHandler(jwtSecret string) *EventHandler {
	return &EventHandler{jwtSecret: jwtSecret}
}

// VerifyToken parses the token and returns the actor it identifies. The
// actor kind is derived from the token role, never from the client.
func (eh *EventHandler) VerifyToken(tokenString string) (actorId string, kind model.ActorKind, err error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(eh.jwtSecret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("cannot read claims")
	}

	userId, ok := claims["user_id"].(string)
	if !ok {
		return "", "", fmt.Errorf("user_id not found in token")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return "", "", fmt.Errorf("role not found in token")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return "", "", fmt.Errorf("exp not found in token")
	}
	if time.Now().Unix() > int64(exp) {
		return "", "", fmt.Errorf("token expired")
	}

	switch role {
	case model.RoleRider:
		kind = model.KindRider
	case model.RoleDriver:
		kind = model.KindDriver
	default:
		return "", "", fmt.Errorf("role %q has no realtime channel", role)
	}

	return userId, kind, nil
}
