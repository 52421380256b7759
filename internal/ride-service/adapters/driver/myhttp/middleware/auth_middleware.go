package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ridehail/internal/ride-service/adapters/driver/myhttp/handle"
	"ridehail/internal/ride-service/core/domain/model"

	"github.com/golang-jwt/jwt"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Wrap verifies the bearer token and, when roles are given, requires the
// token role to be one of them. The verified identity travels to handlers
// in the X-UserId / X-Role headers, overwriting anything the client sent.
func (am *AuthMiddleware) Wrap(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := am.parse(r.Header.Get("Authorization"))
		if err != nil {
			handle.JsonErrorStatus(w, http.StatusUnauthorized, "UNAUTHORIZED", err)
			return
		}

		if len(roles) > 0 && !contains(roles, actor.Role) {
			handle.JsonErrorStatus(w, http.StatusForbidden, "FORBIDDEN",
				fmt.Errorf("role %s is not authorized", actor.Role))
			return
		}

		r.Header.Set("X-UserId", actor.ID)
		r.Header.Set("X-Role", actor.Role)

		next.ServeHTTP(w, r)
	})
}

func (am *AuthMiddleware) parse(header string) (model.Actor, error) {
	if header == "" {
		return model.Actor{}, fmt.Errorf("empty bearer token")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(am.jwtSecret), nil
	})
	if err != nil {
		return model.Actor{}, fmt.Errorf("failed to parse bearer token")
	}
	if !token.Valid {
		return model.Actor{}, fmt.Errorf("invalid bearer token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, fmt.Errorf("invalid claims")
	}

	userId, ok := claims["user_id"].(string)
	if !ok {
		return model.Actor{}, fmt.Errorf("user_id not found in token")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return model.Actor{}, fmt.Errorf("role not found in token")
	}
	exp, ok := claims["exp"].(float64)
	if !ok || time.Now().Unix() > int64(exp) {
		return model.Actor{}, fmt.Errorf("token expired")
	}

	return model.Actor{ID: userId, Role: role}, nil
}

func contains(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
